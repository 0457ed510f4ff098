// Package noteschema matches a work item's tags to the configured note
// schemas and computes the gate predicate workflow transitions enforce
// (§4.4).
package noteschema

import (
	"github.com/workitem-mcp/workitem-mcp/internal/model"
	"github.com/workitem-mcp/workitem-mcp/internal/wfconfig"
)

// Entry mirrors wfconfig.SchemaEntry with the phase already typed as a
// model.Role for callers outside the config package.
type Entry struct {
	Key         string
	Phase       model.Role
	Required    bool
	Description string
}

// SchemaForTags returns the merged, first-wins entry set for tags
// (§4.4 schemaForTags).
func SchemaForTags(schemas *wfconfig.Schemas, tags map[string]struct{}) []Entry {
	merged := schemas.MergedEntries(tags)
	out := make([]Entry, 0, len(merged))
	for _, e := range merged {
		out = append(out, Entry{Key: e.Key, Phase: model.Role(e.Phase), Required: e.Required, Description: e.Description})
	}
	return out
}

// RequiredForPhase returns the subset of entries that are required in
// the given role phase (§4.4 requiredForPhase).
func RequiredForPhase(schemas *wfconfig.Schemas, tags map[string]struct{}, phase model.Role) []Entry {
	var out []Entry
	for _, e := range SchemaForTags(schemas, tags) {
		if e.Required && e.Phase == phase {
			out = append(out, e)
		}
	}
	return out
}

// ExpectedNote augments a schema entry with whether a matching note
// already exists on the item (§4.4 expectedNotes).
type ExpectedNote struct {
	Entry
	Exists bool
}

// ExpectedNotes computes the schema entries for an item's tags,
// each annotated with whether the item already carries that note.
func ExpectedNotes(schemas *wfconfig.Schemas, tags map[string]struct{}, notes []*model.Note) []ExpectedNote {
	have := make(map[string]bool, len(notes))
	for _, n := range notes {
		have[n.Key] = true
	}
	entries := SchemaForTags(schemas, tags)
	out := make([]ExpectedNote, 0, len(entries))
	for _, e := range entries {
		out = append(out, ExpectedNote{Entry: e, Exists: have[e.Key]})
	}
	return out
}

// MissingRequired returns the keys required for phase that are absent
// from notes — the gate-blocked details payload (§4.3, §7).
func MissingRequired(schemas *wfconfig.Schemas, tags map[string]struct{}, phase model.Role, notes []*model.Note) []string {
	have := make(map[string]bool, len(notes))
	for _, n := range notes {
		have[n.Key] = true
	}
	var missing []string
	for _, e := range RequiredForPhase(schemas, tags, phase) {
		if !have[e.Key] {
			missing = append(missing, e.Key)
		}
	}
	return missing
}

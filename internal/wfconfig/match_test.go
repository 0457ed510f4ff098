package wfconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tagSet(tags ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	return set
}

func TestSelectFlowDefault(t *testing.T) {
	wf := defaultWorkflow()
	flow := wf.SelectFlow(tagSet("backend"))
	require.NotNil(t, flow)
	assert.Equal(t, "default_flow", flow.Name)
}

func TestSelectFlowTagMatch(t *testing.T) {
	wf := defaultWorkflow()
	flow := wf.SelectFlow(tagSet("review", "backend"))
	require.NotNil(t, flow)
	assert.Equal(t, "review_flow", flow.Name)
}

func TestSelectFlowMostSpecificWins(t *testing.T) {
	wf := &Workflow{
		Flows: []Flow{
			{Name: "one_tag", MatchTags: []string{"a"}, Sequence: []string{"x"}},
			{Name: "two_tags", MatchTags: []string{"a", "b"}, Sequence: []string{"y"}},
		},
	}
	flow := wf.SelectFlow(tagSet("a", "b", "c"))
	require.NotNil(t, flow)
	assert.Equal(t, "two_tags", flow.Name)
}

func TestSelectFlowTieBreaksOnDeclarationOrder(t *testing.T) {
	wf := &Workflow{
		Flows: []Flow{
			{Name: "first", MatchTags: []string{"a"}},
			{Name: "second", MatchTags: []string{"b"}},
		},
	}
	flow := wf.SelectFlow(tagSet("a", "b"))
	require.NotNil(t, flow)
	assert.Equal(t, "first", flow.Name)
}

func TestRoleOf(t *testing.T) {
	wf := defaultWorkflow()
	role, ok := wf.RoleOf("in_progress")
	require.True(t, ok)
	assert.Equal(t, "work", string(role))

	_, ok = wf.RoleOf("nonexistent")
	assert.False(t, ok)
}

func TestMergedEntriesFirstWins(t *testing.T) {
	schemas := &Schemas{Schemas: []NoteSchema{
		{MatchTags: []string{"backend"}, Entries: []SchemaEntry{
			{Key: "plan", Phase: "work", Required: true},
		}},
		{MatchTags: []string{}, Entries: []SchemaEntry{
			{Key: "plan", Phase: "work", Required: false},
			{Key: "summary", Phase: "review", Required: true},
		}},
	}}
	merged := schemas.MergedEntries(tagSet("backend"))
	require.Len(t, merged, 2)
	assert.True(t, merged[0].Required, "first-declared schema's entry should win over the later duplicate key")
}

func TestMergedEntriesSubsetMatch(t *testing.T) {
	schemas := &Schemas{Schemas: []NoteSchema{
		{MatchTags: []string{"security"}, Entries: []SchemaEntry{{Key: "threat-model", Phase: "work"}}},
	}}
	assert.Empty(t, schemas.MergedEntries(tagSet("backend")))
	assert.Len(t, schemas.MergedEntries(tagSet("backend", "security")), 1)
}

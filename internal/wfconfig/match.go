package wfconfig

// SelectFlow picks the active flow for an item's tag set: the flow with
// the most-specific non-empty matchTags subset of tags wins; ties break
// by declaration order; if none match, DefaultFlow applies (§4.3).
func (w *Workflow) SelectFlow(tags map[string]struct{}) *Flow {
	var best *Flow
	bestSize := -1
	for i := range w.Flows {
		f := &w.Flows[i]
		if len(f.MatchTags) == 0 {
			continue
		}
		if !subsetOf(f.MatchTags, tags) {
			continue
		}
		if len(f.MatchTags) > bestSize {
			best = f
			bestSize = len(f.MatchTags)
		}
	}
	if best != nil {
		return best
	}
	return w.DefaultFlow()
}

func subsetOf(matchTags []string, tags map[string]struct{}) bool {
	for _, t := range matchTags {
		if _, ok := tags[t]; !ok {
			return false
		}
	}
	return true
}

// MergedEntries returns the union of entries from every schema whose
// matchTags is a subset of tags, keyed by entry Key, first-wins on
// conflict using declaration order (§3 NoteSchema, §9 "Note-schema
// matching").
func (s *Schemas) MergedEntries(tags map[string]struct{}) []SchemaEntry {
	seen := make(map[string]bool)
	var out []SchemaEntry
	for _, schema := range s.Schemas {
		if !subsetOf(schema.MatchTags, tags) {
			continue
		}
		for _, e := range schema.Entries {
			if seen[e.Key] {
				continue
			}
			seen[e.Key] = true
			out = append(out, e)
		}
	}
	return out
}

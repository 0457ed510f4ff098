package wfconfig

// defaultWorkflow is the bundled fallback used when no config.yaml is found.
func defaultWorkflow() *Workflow {
	return &Workflow{
		Flows: []Flow{
			{
				Name:      "default_flow",
				Sequence:  []string{"pending", "in_progress", "completed"},
				Terminal:  []string{"completed", "cancelled"},
				Emergency: []string{"blocked", "on_hold"},
			},
			{
				Name:      "review_flow",
				MatchTags: []string{"review"},
				Sequence:  []string{"pending", "in_progress", "in_review", "completed"},
				Terminal:  []string{"completed", "cancelled"},
				Emergency: []string{"blocked", "on_hold"},
			},
		},
		StatusRoles: map[string]string{
			"pending":     "queue",
			"in_progress": "work",
			"in_review":   "review",
			"blocked":     "blocked",
			"on_hold":     "blocked",
			"completed":   "terminal",
			"cancelled":   "terminal",
		},
		AutoCascade: AutoCascade{Enabled: true, MaxDepth: 3},
	}
}

// defaultSchemas is the bundled fallback used when no schemas.yaml is found.
// With no schemas declared, every phase's required-notes count is zero.
func defaultSchemas() *Schemas {
	return &Schemas{Schemas: []NoteSchema{}}
}

// Package wfconfig loads and caches the workflow and note-schema
// configuration files (§6): <CONFIG_DIR>/.workflow/config.yaml and
// <CONFIG_DIR>/.workflow/schemas.yaml.
package wfconfig

import "github.com/workitem-mcp/workitem-mcp/internal/model"

// Flow is one named, tag-selected status sequence.
type Flow struct {
	Name      string   `yaml:"name"`
	MatchTags []string `yaml:"matchTags,omitempty"`
	Sequence  []string `yaml:"sequence"`
	Terminal  []string `yaml:"terminal"`
	Emergency []string `yaml:"emergency,omitempty"`
}

// AutoCascade holds the cascade engine's enablement and recursion cap.
type AutoCascade struct {
	Enabled  bool `yaml:"enabled"`
	MaxDepth int  `yaml:"maxDepth"`
}

// Workflow is the parsed contents of config.yaml.
type Workflow struct {
	Flows       []Flow            `yaml:"flows"`
	StatusRoles map[string]string `yaml:"status_roles"`
	AutoCascade AutoCascade       `yaml:"auto_cascade"`
}

// RoleOf returns the role a status maps to and whether it is declared.
func (w *Workflow) RoleOf(status string) (model.Role, bool) {
	r, ok := w.StatusRoles[status]
	return model.Role(r), ok
}

// DefaultFlow returns the flow with no matchTags (the fallback flow),
// or the first flow declared if none is tag-less.
func (w *Workflow) DefaultFlow() *Flow {
	for i := range w.Flows {
		if len(w.Flows[i].MatchTags) == 0 {
			return &w.Flows[i]
		}
	}
	if len(w.Flows) > 0 {
		return &w.Flows[0]
	}
	return nil
}

// SchemaEntry is one required/optional note declaration within a schema.
type SchemaEntry struct {
	Key         string `yaml:"key"`
	Phase       string `yaml:"phase"`
	Required    bool   `yaml:"required"`
	Description string `yaml:"description,omitempty"`
}

// NoteSchema is a single tag-matched schema block.
type NoteSchema struct {
	MatchTags []string      `yaml:"matchTags"`
	Entries   []SchemaEntry `yaml:"entries"`
}

// Schemas is the parsed contents of schemas.yaml.
type Schemas struct {
	Schemas []NoteSchema `yaml:"schemas"`
}

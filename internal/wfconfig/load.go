package wfconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Dir resolves the configuration directory: CONFIG_DIR if set, else the
// working directory (§6).
func Dir() string {
	if d := os.Getenv("CONFIG_DIR"); d != "" {
		return d
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// Load reads config.yaml and schemas.yaml from <dir>/.workflow/. Either or
// both files may be absent, in which case the bundled default is used for
// that file alone.
func Load(dir string) (*Workflow, *Schemas, error) {
	wfPath := filepath.Join(dir, ".workflow", "config.yaml")
	schemaPath := filepath.Join(dir, ".workflow", "schemas.yaml")

	wf, err := loadWorkflow(wfPath)
	if err != nil {
		return nil, nil, err
	}
	schemas, err := loadSchemas(schemaPath)
	if err != nil {
		return nil, nil, err
	}
	return wf, schemas, nil
}

func loadWorkflow(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return defaultWorkflow(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var wf Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := validateWorkflow(&wf); err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}
	return &wf, nil
}

func loadSchemas(path string) (*Schemas, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return defaultSchemas(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var s Schemas
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &s, nil
}

// validateWorkflow enforces §3's Flow invariants: every status in every
// flow must appear in the role map, and each flow needs >=1 terminal status.
func validateWorkflow(wf *Workflow) error {
	if len(wf.Flows) == 0 {
		return fmt.Errorf("no flows declared")
	}
	for _, f := range wf.Flows {
		if len(f.Terminal) == 0 {
			return fmt.Errorf("flow %q declares no terminal status", f.Name)
		}
		all := append(append([]string{}, f.Sequence...), f.Emergency...)
		for _, status := range all {
			if _, ok := wf.StatusRoles[status]; !ok {
				return fmt.Errorf("flow %q references status %q with no role mapping", f.Name, status)
			}
		}
	}
	return nil
}

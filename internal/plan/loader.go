// Package plan loads execution plans produced by an external planner.
// A plan file is YAML: a list of subtasks with identifiers, group numbers,
// instructions, and optional engine selectors.
package plan

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/loom-sh/loom/pkg/models"
)

// Load reads and validates a plan file.
func Load(path string) (*models.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates plan YAML.
func Parse(data []byte) (*models.Plan, error) {
	p := &models.Plan{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}

	for _, st := range p.Subtasks {
		st.Status = models.StatusPending
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}

	return p, nil
}

package rubric

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jonesrussell/aeoscan/internal/domain"
)

// overridesFile is the shape of a rubric overrides YAML file. Check
// logic stays in code; the file retunes weights and labels.
type overridesFile struct {
	Version string `yaml:"version"`
	Pillars []struct {
		ID     string   `yaml:"id"`
		Name   string   `yaml:"name"`
		Weight *float64 `yaml:"weight"`
	} `yaml:"pillars"`
	Checks []struct {
		ID       string   `yaml:"id"`
		Weight   *float64 `yaml:"weight"`
		Severity string   `yaml:"severity"`
	} `yaml:"checks"`
}

// LoadOverrides merges weight and version overrides from a YAML file
// into the registry. Entries must reference existing pillar and check
// IDs; the file cannot add checks.
func (r *Registry) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read rubric overrides: %w", err)
	}

	var file overridesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse rubric overrides: %w", err)
	}

	if file.Version != "" {
		r.Version = file.Version
	}

	for _, p := range file.Pillars {
		idx := -1
		for i := range r.Pillars {
			if r.Pillars[i].ID == p.ID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("rubric overrides: unknown pillar %q", p.ID)
		}
		if p.Name != "" {
			r.Pillars[idx].Name = p.Name
		}
		if p.Weight != nil {
			r.Pillars[idx].Weight = *p.Weight
		}
	}

	for _, c := range file.Checks {
		check := r.checkByID(c.ID)
		if check == nil {
			return fmt.Errorf("rubric overrides: unknown check %q", c.ID)
		}
		if c.Weight != nil {
			check.Weight = *c.Weight
		}
		if c.Severity != "" {
			sev := domain.Severity(c.Severity)
			if !sev.Valid() {
				return fmt.Errorf("rubric overrides: check %q: %w", c.ID, domain.ErrInvalidSeverity)
			}
			check.Severity = sev
		}
	}

	return nil
}

func (r *Registry) checkByID(id string) *Check {
	for _, c := range r.Checks {
		if c.ID == id {
			return c
		}
	}
	return nil
}

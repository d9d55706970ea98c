package program

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// UnitSpec is the raw, uncompiled form of a program unit.
// It uses "mapstructure" tags so it can also be decoded from document frontmatter.
type UnitSpec struct {
	Name        string           `yaml:"name" json:"name" mapstructure:"name"`
	Description string           `yaml:"description,omitempty" json:"description,omitempty" mapstructure:"description"`
	Channels    []string         `yaml:"channels,omitempty" json:"channels,omitempty" mapstructure:"channels"`
	Vars        map[string]any   `yaml:"vars,omitempty" json:"vars,omitempty" mapstructure:"vars"`
	Start       []any            `yaml:"start,omitempty" json:"start,omitempty" mapstructure:"start"`
	Fibers      map[string][]any `yaml:"fibers" json:"fibers" mapstructure:"fibers"`
}

// Parse decodes a YAML unit definition.
func Parse(data []byte) (*UnitSpec, error) {
	var spec UnitSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse unit: %w", err)
	}
	return &spec, nil
}

// Marshal encodes a unit definition back to YAML.
func Marshal(spec *UnitSpec) ([]byte, error) {
	data, err := yaml.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal unit %s: %w", spec.Name, err)
	}
	return data, nil
}

package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/aretw0/strand/pkg/domain"
)

// Source implements ports.UnitSource using an in-memory map.
type Source struct {
	units map[string][]byte
}

// NewSource creates a Source from raw unit definitions (YAML strings).
func NewSource(data map[string]string) *Source {
	units := make(map[string][]byte, len(data))
	for k, v := range data {
		units[k] = []byte(v)
	}
	return &Source{units: units}
}

// Fetch returns the raw definition of a unit.
func (s *Source) Fetch(_ context.Context, name string) ([]byte, error) {
	content, ok := s.units[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnitNotFound, name)
	}
	return content, nil
}

// List returns all available unit names.
func (s *Source) List(context.Context) ([]string, error) {
	keys := make([]string, 0, len(s.units))
	for k := range s.units {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys, nil
}

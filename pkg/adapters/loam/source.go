// Package loam serves program units out of a Loam document repository.
//
// A unit may live in any format Loam understands: a plain YAML or JSON
// document, or a Markdown file whose frontmatter carries the unit and whose
// body becomes its description.
package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/strand/pkg/domain"
	"github.com/aretw0/strand/pkg/program"
)

// Source adapts a typed Loam repository to ports.UnitSource.
type Source struct {
	Repo *loam.TypedRepository[program.UnitSpec]
}

// New creates a new Loam unit source.
func New(repo *loam.TypedRepository[program.UnitSpec]) *Source {
	return &Source{
		Repo: repo,
	}
}

// Open initializes a read-only Loam repository rooted at dir.
func Open(dir string) (*Source, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve unit directory: %w", err)
	}
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
		loam.WithVersioning(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open loam repository at %s: %w", absPath, err)
	}
	return New(loam.NewTypedRepository[program.UnitSpec](repo)), nil
}

// Fetch returns the unit as normalized YAML.
// Loam resolves the extension, so "pingpong" finds pingpong.yaml or pingpong.md.
func (s *Source) Fetch(ctx context.Context, name string) ([]byte, error) {
	doc, err := s.Repo.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrUnitNotFound, name, err)
	}

	spec := doc.Data
	if spec.Name == "" {
		spec.Name = trimExtension(doc.ID)
	}
	if spec.Description == "" {
		spec.Description = strings.TrimSpace(doc.Content)
	}

	data, err := program.Marshal(&spec)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// List lists all units in the repository.
// Documents that declare no fibers, such as strand.yaml, are not units.
func (s *Source) List(ctx context.Context) ([]string, error) {
	docs, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	names := make([]string, 0, len(docs))

	for _, doc := range docs {
		if len(doc.Data.Fibers) == 0 {
			continue
		}
		rawName := doc.Data.Name
		if rawName == "" {
			rawName = doc.ID
		}
		name := trimExtension(rawName)

		if existingPath, ok := seen[name]; ok {
			return nil, fmt.Errorf("collision detected: unit '%s' is defined in both '%s' and '%s'", name, existingPath, doc.ID)
		}
		seen[name] = doc.ID
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

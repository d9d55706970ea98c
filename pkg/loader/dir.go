package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/strand/pkg/domain"
)

// unitExts are the file extensions DirSource recognises, in lookup order.
var unitExts = []string{".yaml", ".yml"}

// projectFile holds project configuration, not a unit.
const projectFile = "strand.yaml"

// DirSource implements ports.UnitSource over a directory of YAML files.
// A unit named "a/b" lives in "<dir>/a/b.yaml" (or .yml).
type DirSource struct {
	dir string
}

// NewDirSource creates a source rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

// Fetch reads the unit file.
func (s *DirSource) Fetch(_ context.Context, name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("invalid unit name %q", name)
	}
	for _, ext := range unitExts {
		data, err := os.ReadFile(filepath.Join(s.dir, filepath.FromSlash(name)+ext))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read unit %s: %w", name, err)
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrUnitNotFound, name)
}

// List walks the directory for unit files.
func (s *DirSource) List(context.Context) ([]string, error) {
	var names []string
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == projectFile {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		rel, err := filepath.Rel(s.dir, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(strings.TrimSuffix(rel, ext)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list units in %s: %w", s.dir, err)
	}
	sort.Strings(names)
	return names, nil
}

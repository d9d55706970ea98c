package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/strand/pkg/domain"
)

// Store implements ports.ReportStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Report
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Report),
	}
}

// Save persists the report in memory.
func (s *Store) Save(ctx context.Context, report *domain.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[report.ID] = clone(report)
	return nil
}

// Load retrieves a report from memory.
func (s *Store) Load(ctx context.Context, runID string) (*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.data[runID]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	// Copy on read so callers cannot mutate the stored report.
	return clone(report), nil
}

// Delete removes the report.
func (s *Store) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, runID)
	return nil
}

// List returns stored run IDs, oldest first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := s.data[ids[i]], s.data[ids[j]]
		if a.StartedAt.Equal(b.StartedAt) {
			return ids[i] < ids[j]
		}
		return a.StartedAt.Before(b.StartedAt)
	})
	return ids, nil
}

func clone(r *domain.Report) *domain.Report {
	c := *r
	c.Output = append([]string(nil), r.Output...)
	c.Roots.Violations = append([]string(nil), r.Roots.Violations...)
	if len(c.Roots.Violations) == 0 {
		c.Roots.Violations = nil
	}
	if len(c.Output) == 0 {
		c.Output = nil
	}
	return &c
}

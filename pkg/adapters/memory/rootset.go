package memory

import (
	"fmt"
	"sync"

	"github.com/aretw0/strand/pkg/domain"
)

// RootSet is an in-memory ports.Collector.
//
// It stands in for a real garbage collector: fibers become known when they
// are first rooted, and Collect releases every known fiber that is no longer
// rooted. Redundant root traffic is recorded as a violation instead of being
// silently absorbed, so tests can assert that the driver is balanced.
type RootSet struct {
	mu         sync.Mutex
	roots      map[*domain.Fiber]struct{}
	known      map[*domain.Fiber]struct{}
	added      int
	removed    int
	collected  int
	violations []string
}

// NewRootSet creates an empty root set.
func NewRootSet() *RootSet {
	return &RootSet{
		roots: make(map[*domain.Fiber]struct{}),
		known: make(map[*domain.Fiber]struct{}),
	}
}

// AddRoot roots f.
func (r *RootSet) AddRoot(f *domain.Fiber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.roots[f]; ok {
		r.violations = append(r.violations, fmt.Sprintf("double add: %s", f))
		return
	}
	r.added++
	r.roots[f] = struct{}{}
	r.known[f] = struct{}{}
}

// RemoveRoot unroots f.
func (r *RootSet) RemoveRoot(f *domain.Fiber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.roots[f]; !ok {
		r.violations = append(r.violations, fmt.Sprintf("remove of unrooted fiber: %s", f))
		return
	}
	r.removed++
	delete(r.roots, f)
}

// Collect forgets every known fiber that is no longer rooted.
func (r *RootSet) Collect() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for f := range r.known {
		if _, ok := r.roots[f]; ok {
			continue
		}
		delete(r.known, f)
		n++
	}
	r.collected += n
	return n
}

// Rooted reports whether f currently holds a root.
func (r *RootSet) Rooted(f *domain.Fiber) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.roots[f]
	return ok
}

// Len is the number of live roots.
func (r *RootSet) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.roots)
}

// Collected is the total number of fibers released by Collect.
func (r *RootSet) Collected() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.collected
}

// Audit reports the root traffic seen so far.
func (r *RootSet) Audit() domain.RootAudit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return domain.RootAudit{
		Added:      r.added,
		Removed:    r.removed,
		Live:       len(r.roots),
		Violations: append([]string(nil), r.violations...),
	}
}

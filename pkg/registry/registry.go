// Package registry maps delegated request kinds to host handlers.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/strand/pkg/domain"
)

// Handler services one delegated request. The returned value is written to
// the request's reply slot; an error fails the run.
type Handler func(ctx context.Context, req *domain.Request) (any, error)

// Registry manages the available handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[domain.RequestKind]Handler
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[domain.RequestKind]Handler),
	}
}

// Register adds a handler to the registry.
// If a handler for the same kind exists, it is overwritten.
func (r *Registry) Register(kind domain.RequestKind, fn Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = fn
}

// Lookup returns the handler for kind.
func (r *Registry) Lookup(kind domain.RequestKind) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.handlers[kind]
	return fn, ok
}

// Execute looks up the handler for the request's kind and runs it.
// Returns domain.ErrHandlerNotFound if none is registered.
func (r *Registry) Execute(ctx context.Context, req *domain.Request) (any, error) {
	fn, ok := r.Lookup(req.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrHandlerNotFound, req.Kind)
	}
	return fn(ctx, req)
}

// Kinds lists the registered request kinds.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		out = append(out, string(k))
	}
	sort.Strings(out)
	return out
}

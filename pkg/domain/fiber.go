package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Continuation is the resumable state behind a fiber.
type Continuation interface {
	// Resume runs the fiber until it needs the scheduler and returns that
	// request, or returns nil once the fiber has finished.
	Resume(self *Fiber) *Request

	// Stop releases the continuation. It is never resumed afterwards.
	Stop()
}

// Fiber is a single cooperative unit of execution.
//
// A nil continuation means the fiber is dead: it finished, or it was killed.
// Queues only hold references to fibers; liveness is the collector's business.
type Fiber struct {
	ID   string
	Name string

	cc  Continuation
	svc *Request
}

// NewFiber wraps a continuation into a fresh fiber with a unique ID.
func NewFiber(name string, cc Continuation) *Fiber {
	return &Fiber{
		ID:   uuid.NewString(),
		Name: name,
		cc:   cc,
	}
}

// Step runs the fiber until it suspends or terminates.
// It returns the produced request, or nil if the fiber is (now) dead.
func (f *Fiber) Step() *Request {
	if f.cc == nil {
		f.svc = nil
		return nil
	}
	req := f.cc.Resume(f)
	if req == nil {
		f.cc = nil
	}
	f.svc = req
	return req
}

// Kill terminates the fiber. Killing a dead fiber is a no-op.
func (f *Fiber) Kill() {
	cc := f.cc
	if cc == nil {
		return
	}
	f.cc = nil
	f.svc = nil
	cc.Stop()
}

// Dead reports whether the fiber has no continuation left.
func (f *Fiber) Dead() bool {
	return f.cc == nil
}

// Pending returns the last request the fiber produced and has not moved past.
func (f *Fiber) Pending() *Request {
	return f.svc
}

func (f *Fiber) String() string {
	if f == nil {
		return "<nil fiber>"
	}
	if f.Name == "" {
		return f.ID
	}
	return fmt.Sprintf("%s(%s)", f.Name, shortID(f.ID))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

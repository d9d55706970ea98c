package coro

import "github.com/aretw0/strand/pkg/domain"

// Context is a coroutine's handle on the scheduler.
// It must only be used from inside its own body.
type Context struct {
	self  *domain.Fiber
	yield func(*domain.Request) struct{}
}

// Self returns the fiber running this body.
func (c *Context) Self() *domain.Fiber {
	return c.self
}

func (c *Context) suspend(req *domain.Request) {
	c.yield(req)
}

// Yield gives up the rest of this turn.
func (c *Context) Yield() {
	c.suspend(domain.Yield())
}

// Spawn starts body as a new fiber. The child runs before anything else
// already queued, and the caller keeps its turn.
func (c *Context) Spawn(name string, body Body) *domain.Fiber {
	child := New(name, body)
	c.SpawnFiber(child)
	return child
}

// SpawnFiber schedules an existing fiber.
func (c *Context) SpawnFiber(f *domain.Fiber) {
	c.suspend(domain.Spawn(f))
}

// Read blocks until a writer delivers a value on ch.
func (c *Context) Read(ch *domain.Channel) any {
	slot := &domain.Slot{}
	c.suspend(domain.Read(ch, slot))
	return slot.Value
}

// Write blocks until a reader takes v from ch.
func (c *Context) Write(ch *domain.Channel, v any) {
	c.suspend(domain.Write(ch, &domain.Slot{Value: v}))
}

// Kill terminates f. The caller keeps its turn; killing itself ends the body.
func (c *Context) Kill(f *domain.Fiber) {
	c.suspend(domain.Kill(f))
}

// Call delegates a request of the given kind to the host and returns its reply.
func (c *Context) Call(kind domain.RequestKind, payload any) (any, error) {
	req := domain.Host(kind, payload)
	c.suspend(req)
	return req.Slot.Get()
}

// ReadAs reads a value from ch and asserts it to T.
// ok is false if the value has another type.
func ReadAs[T any](c *Context, ch *domain.Channel) (v T, ok bool) {
	v, ok = c.Read(ch).(T)
	return v, ok
}

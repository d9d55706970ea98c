// Package coro builds fibers from ordinary Go functions.
//
// A body runs as a coroutine: every scheduler operation on its Context
// suspends it and hands the request to the driver, which resumes it once the
// request has been serviced. Bodies run strictly one at a time, interleaved
// with the driver, so they may share state without locking.
package coro

import (
	gocoro "github.com/0x5a17ed/coro"

	"github.com/aretw0/strand/pkg/domain"
)

// Body is the code of a coroutine fiber.
type Body func(c *Context)

type coroutine struct {
	resume func(struct{}) (*domain.Request, bool)
	cancel func()

	// failure holds a panic raised by the body, re-raised on the driver side.
	failure    any
	cancelling bool
}

// New creates a fiber running body. The body does not start until the
// fiber is first stepped.
func New(name string, body Body) *domain.Fiber {
	c := &Context{}
	co := &coroutine{}
	co.resume, co.cancel = gocoro.New(func(_ struct{}, yield func(*domain.Request) struct{}) *domain.Request {
		defer func() {
			if r := recover(); r != nil {
				if co.cancelling {
					panic(r)
				}
				co.failure = r
			}
		}()
		c.yield = yield
		body(c)
		return nil
	})

	f := domain.NewFiber(name, co)
	c.self = f
	return f
}

// Resume implements domain.Continuation.
func (co *coroutine) Resume(*domain.Fiber) *domain.Request {
	req, ok := co.resume(struct{}{})
	if r := co.failure; r != nil {
		co.failure = nil
		panic(r)
	}
	if !ok {
		return nil
	}
	return req
}

// Stop implements domain.Continuation. A suspended body is unwound: its
// pending operation panics and deferred calls run.
func (co *coroutine) Stop() {
	co.cancelling = true
	co.cancel()
}

package runner

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/strand/internal/runtime"
	"github.com/aretw0/strand/pkg/domain"
)

type runStateKey struct{}

// runState is what the built-in handlers of one run share.
type runState struct {
	report *domain.Report
	runner *Runner
	timers timers
}

func withRunState(ctx context.Context, st *runState) context.Context {
	return context.WithValue(ctx, runStateKey{}, st)
}

func runStateFrom(ctx context.Context) *runState {
	st, _ := ctx.Value(runStateKey{}).(*runState)
	return st
}

// timers parks sleeping fibers outside the driver and hands them back once
// their timer fires. Fibers only ever cross back through the run loop, so the
// driver is never touched from a timer goroutine.
type timers struct {
	once    sync.Once
	woken   chan *domain.Fiber
	done    chan struct{}
	pending int
}

func (t *timers) init() {
	t.once.Do(func() {
		t.woken = make(chan *domain.Fiber)
		t.done = make(chan struct{})
	})
}

func (t *timers) sleep(f *domain.Fiber, d time.Duration) {
	t.init()
	t.pending++
	time.AfterFunc(d, func() {
		select {
		case t.woken <- f:
		case <-t.done:
		}
	})
}

// drain wakes every fiber whose timer already fired.
func (t *timers) drain(d *runtime.Driver) {
	for t.pending > 0 {
		select {
		case f := <-t.woken:
			t.pending--
			d.Wake(f)
		default:
			return
		}
	}
}

// wait blocks until at least one sleeping fiber wakes.
func (t *timers) wait(ctx context.Context, d *runtime.Driver) error {
	select {
	case f := <-t.woken:
		t.pending--
		d.Wake(f)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *timers) stop() {
	if t.done != nil {
		close(t.done)
	}
}

package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/strand/internal/logging"
	"github.com/aretw0/strand/pkg/domain"
	"github.com/aretw0/strand/pkg/ports"
)

// Driver is the resumable scheduling loop.
//
// Each call to Drive dispatches fibers from the active queue until either the
// queue is empty or a fiber produces a request the driver does not own. The
// resumption position is kept as data so the next call continues exactly
// where the previous one stopped.
//
// Rooting: a fiber is rooted once when it is injected or spawned and stays
// rooted while it sits on any queue, channel wait queues included. It is
// unrooted once, when a step returns no request, when it is purged dead
// from a wait queue, or when Shutdown abandons it.
type Driver struct {
	collector ports.Collector
	active    *domain.Queue
	live      map[*domain.Fiber]struct{}

	pos     domain.Position
	status  domain.Status
	current *domain.Fiber
	request *domain.Request
	driving bool

	stats  domain.Stats
	hooks  domain.LifecycleHooks
	logger *slog.Logger
	debug  bool
}

// NewDriver creates a driver bound to collector.
func NewDriver(collector ports.Collector, opts ...Option) *Driver {
	d := &Driver{
		collector: collector,
		active:    domain.NewQueue(),
		live:      make(map[*domain.Fiber]struct{}),
		pos:       domain.PosNextFiber,
		status:    domain.StatusExhausted,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Inject seeds a new fiber: it is rooted and appended to the active queue.
func (d *Driver) Inject(ctx context.Context, f *domain.Fiber) {
	d.root(f)
	d.active.PushBack(f)
	d.emit(ctx, d.hooks.OnRoot, domain.EventInject, f, nil, "")
}

// Wake re-queues a fiber the host took over with Detach. Its root is kept
// across the detour, so none is added here.
func (d *Driver) Wake(f *domain.Fiber) {
	d.active.PushBack(f)
}

// Pending returns the fiber and request awaiting host service after Drive
// returned StatusDelegated, or nils otherwise.
func (d *Driver) Pending() (*domain.Fiber, *domain.Request) {
	if d.status != domain.StatusDelegated {
		return nil, nil
	}
	return d.current, d.request
}

// Detach hands the delegated fiber over to the host. The next Drive call
// picks the next fiber instead of resuming it; the host returns it with Wake.
// It returns nil when nothing is delegated.
func (d *Driver) Detach() *domain.Fiber {
	if d.status != domain.StatusDelegated {
		return nil
	}
	f := d.current
	d.current, d.request = nil, nil
	d.pos = domain.PosNextFiber
	d.status = domain.StatusRunning
	return f
}

// Status is the status returned by the last Drive call.
func (d *Driver) Status() domain.Status { return d.status }

// Position is where the next Drive call resumes.
func (d *Driver) Position() domain.Position { return d.pos }

// Active reports how many fibers are ready to run.
func (d *Driver) Active() int { return d.active.Len() }

// Stats returns cumulative counters.
func (d *Driver) Stats() domain.Stats { return d.stats }

// Drive runs fibers until the active queue is exhausted or a request has to
// be delegated to the host.
//
// Drive panics with *domain.CorruptionError on an unknown resumption
// position or when it is re-entered.
func (d *Driver) Drive(ctx context.Context) domain.Status {
	if d.driving {
		panic(&domain.CorruptionError{Position: d.pos, Detail: "drive re-entered"})
	}
	d.driving = true
	defer func() { d.driving = false }()

	switch d.pos {
	case domain.PosNextFiber:
	case domain.PosNextRequest:
		if d.current == nil {
			panic(&domain.CorruptionError{Position: d.pos, Detail: "no current fiber to resume"})
		}
	default:
		panic(&domain.CorruptionError{Position: d.pos, Detail: "unreachable resumption position"})
	}
	d.status = domain.StatusRunning

	for {
		if d.pos == domain.PosNextFiber {
			f := d.active.PopFront()
			if f == nil {
				d.current, d.request = nil, nil
				d.status = domain.StatusExhausted
				return d.status
			}
			d.current = f
			d.pos = domain.PosNextRequest
		}

		d.stats.Steps++
		d.request = d.current.Step()
		if d.request == nil {
			d.forget(ctx, d.current, domain.EventTerminate)
			d.current = nil
			d.pos = domain.PosNextFiber
			continue
		}

		if !d.dispatch(ctx) {
			d.stats.Delegations++
			d.status = domain.StatusDelegated
			d.emit(ctx, d.hooks.OnDelegate, domain.EventDelegate, d.current, nil, "")
			d.trace("delegating request", "fiber", d.current, "kind", d.request.Kind)
			return d.status
		}
	}
}

// dispatch interprets the current request. It sets the next position and
// returns false if the request belongs to the host.
func (d *Driver) dispatch(ctx context.Context) bool {
	f, req := d.current, d.request
	d.emit(ctx, d.hooks.OnRequest, domain.EventRequest, f, nil, "")

	switch req.Kind {
	case domain.RequestYield:
		d.stats.Yields++
		d.active.PushBack(f)
		d.pos = domain.PosNextFiber

	case domain.RequestSpawn:
		child := req.Fiber
		if child == nil {
			d.logger.Warn("spawn request without a fiber", "fiber", f)
			d.pos = domain.PosNextRequest
			return true
		}
		d.stats.Spawns++
		d.trace("spawn fiber", "fiber", f, "child", child)
		d.root(child)
		d.active.PushFront(child)
		d.emit(ctx, d.hooks.OnRoot, domain.EventSpawn, child, f, "")
		d.pos = domain.PosNextRequest

	case domain.RequestRead:
		d.stats.Reads++
		d.read(ctx, f, req)

	case domain.RequestWrite:
		d.stats.Writes++
		d.write(ctx, f, req)

	case domain.RequestKill:
		if target := req.Fiber; target != nil {
			d.stats.Kills++
			d.trace("kill fiber", "fiber", f, "target", target)
			target.Kill()
			d.emit(ctx, d.hooks.OnKill, domain.EventKill, f, target, "")
		}
		d.pos = domain.PosNextRequest

	default:
		return false
	}
	return true
}

// read matches the current reader with a live writer. The reader continues
// and the writer is queued at the front; without a writer the reader parks.
func (d *Driver) read(ctx context.Context, reader *domain.Fiber, req *domain.Request) {
	ch := req.Chan
	if ch == nil {
		d.strand(ctx, reader)
		return
	}
	d.trace("read on channel", "fiber", reader, "chan", ch)

	writer := d.popLive(ctx, ch, ch.PopWriter)
	if writer == nil {
		d.trace("no writers, blocking", "fiber", reader, "chan", ch)
		d.stats.Blocked++
		ch.PushReader(reader)
		d.emit(ctx, d.hooks.OnBlock, domain.EventBlock, reader, nil, ch.Name)
		d.current = nil
		d.pos = domain.PosNextFiber
		return
	}

	d.transfer(req, partnerRequest(writer, domain.RequestWrite))
	d.stats.Rendezvous++
	d.active.PushFront(writer)
	d.emit(ctx, d.hooks.OnRendezvous, domain.EventRendezvous, reader, writer, ch.Name)
	d.pos = domain.PosNextRequest
}

// write matches the current writer with a live reader. The reader becomes
// the current fiber and continues; the writer is queued at the front.
func (d *Driver) write(ctx context.Context, writer *domain.Fiber, req *domain.Request) {
	ch := req.Chan
	if ch == nil {
		d.strand(ctx, writer)
		return
	}
	d.trace("write on channel", "fiber", writer, "chan", ch)

	reader := d.popLive(ctx, ch, ch.PopReader)
	if reader == nil {
		d.trace("no readers, blocking", "fiber", writer, "chan", ch)
		d.stats.Blocked++
		ch.PushWriter(writer)
		d.emit(ctx, d.hooks.OnBlock, domain.EventBlock, writer, nil, ch.Name)
		d.current = nil
		d.pos = domain.PosNextFiber
		return
	}

	d.transfer(partnerRequest(reader, domain.RequestRead), req)
	d.stats.Rendezvous++
	d.active.PushFront(writer)
	d.current = reader
	d.request = reader.Pending()
	d.emit(ctx, d.hooks.OnRendezvous, domain.EventRendezvous, reader, writer, ch.Name)
	d.pos = domain.PosNextRequest
}

// popLive pops waiters until a live one turns up, purging dead ones.
func (d *Driver) popLive(ctx context.Context, ch *domain.Channel, pop func() *domain.Fiber) *domain.Fiber {
	for {
		f := pop()
		if f == nil {
			return nil
		}
		if !f.Dead() {
			return f
		}
		d.stats.Purged++
		d.trace("purging killed waiter", "fiber", f, "chan", ch)
		d.unroot(f)
		d.emit(ctx, d.hooks.OnUnroot, domain.EventPurge, f, nil, ch.Name)
	}
}

// strand handles a read or write on a nil channel: the fiber can never
// proceed and nothing can reach it, so it is killed and forgotten.
func (d *Driver) strand(ctx context.Context, f *domain.Fiber) {
	d.logger.Warn("channel operation on nil channel, fiber blocks forever", "fiber", f)
	f.Kill()
	d.forget(ctx, f, domain.EventTerminate)
	d.current = nil
	d.pos = domain.PosNextFiber
}

func (d *Driver) forget(ctx context.Context, f *domain.Fiber, ev domain.EventType) {
	d.stats.Terminated++
	d.trace("unrooting fiber", "fiber", f)
	d.unroot(f)
	d.emit(ctx, d.hooks.OnUnroot, ev, f, nil, "")
}

func (d *Driver) root(f *domain.Fiber) {
	d.collector.AddRoot(f)
	d.live[f] = struct{}{}
}

func (d *Driver) unroot(f *domain.Fiber) {
	d.collector.RemoveRoot(f)
	delete(d.live, f)
}

// Live reports how many fibers are rooted and not yet unrooted: ready,
// parked on a channel, or detached to the host.
func (d *Driver) Live() int { return len(d.live) }

// Shutdown kills and unroots every fiber still live, releasing their
// continuations. The driver must not be driven afterwards. It returns the
// number of fibers abandoned.
func (d *Driver) Shutdown(ctx context.Context) int {
	if d.driving {
		panic(&domain.CorruptionError{Position: d.pos, Detail: "shutdown while driving"})
	}
	d.current, d.request = nil, nil
	n := 0
	for f := range d.live {
		d.trace("abandoning fiber", "fiber", f)
		f.Kill()
		d.unroot(f)
		d.emit(ctx, d.hooks.OnUnroot, domain.EventShutdown, f, nil, "")
		n++
	}
	d.stats.Abandoned += n
	d.active = domain.NewQueue()
	d.pos = domain.PosNextFiber
	d.status = domain.StatusExhausted
	return n
}

func (d *Driver) transfer(dst, src *domain.Request) {
	if dst.Slot == nil || src.Slot == nil {
		panic(&domain.CorruptionError{Position: d.pos, Detail: "rendezvous without a slot"})
	}
	domain.Transfer(dst.Slot, src.Slot)
}

// partnerRequest returns the parked request of a waiter, which must be of
// the expected kind for the fiber to be on that queue at all.
func partnerRequest(f *domain.Fiber, kind domain.RequestKind) *domain.Request {
	req := f.Pending()
	if req == nil || req.Kind != kind {
		panic(&domain.CorruptionError{Position: domain.PosNextRequest, Detail: "waiter " + f.String() + " is not parked on " + string(kind)})
	}
	return req
}

func (d *Driver) emit(ctx context.Context, hook func(context.Context, *domain.FiberEvent), typ domain.EventType, f, peer *domain.Fiber, ch string) {
	if hook == nil {
		return
	}
	ev := &domain.FiberEvent{
		Timestamp: time.Now(),
		Type:      typ,
		FiberID:   f.ID,
		FiberName: f.Name,
		Channel:   ch,
	}
	if d.request != nil {
		ev.Kind = d.request.Kind
	}
	if peer != nil {
		ev.PeerID = peer.ID
	}
	hook(ctx, ev)
}

func (d *Driver) trace(msg string, args ...any) {
	if d.debug {
		d.logger.Debug(msg, args...)
	}
}

package runtime_test

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/aretw0/strand/internal/runtime"
	"github.com/aretw0/strand/pkg/adapters/memory"
	"github.com/aretw0/strand/pkg/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// script is a continuation that records every resumption in a shared trace
// and then runs its next step.
type script struct {
	name    string
	trace   *[]string
	steps   []func() *domain.Request
	next    int
	stopped bool
}

func (s *script) Resume(*domain.Fiber) *domain.Request {
	*s.trace = append(*s.trace, s.name)
	if s.next >= len(s.steps) {
		return nil
	}
	step := s.steps[s.next]
	s.next++
	return step()
}

func (s *script) Stop() { s.stopped = true }

func newScript(name string, trace *[]string, steps ...func() *domain.Request) (*domain.Fiber, *script) {
	s := &script{name: name, trace: trace, steps: steps}
	return domain.NewFiber(name, s), s
}

func yield() *domain.Request { return domain.Yield() }

func assertBalanced(t *testing.T, rs *memory.RootSet) {
	t.Helper()
	audit := rs.Audit()
	assert.Empty(t, audit.Violations)
	assert.True(t, audit.Balanced(), "root audit: %+v", audit)
}

func TestDriver_RoundRobinYields(t *testing.T) {
	ctx := context.Background()
	rs := memory.NewRootSet()
	d := runtime.NewDriver(rs)

	var trace []string
	for _, name := range []string{"a", "b", "c"} {
		f, _ := newScript(name, &trace, yield, yield)
		d.Inject(ctx, f)
	}

	status := d.Drive(ctx)

	assert.Equal(t, domain.StatusExhausted, status)
	want := []string{"a", "b", "c", "a", "b", "c", "a", "b", "c"}
	if diff := cmp.Diff(want, trace); diff != "" {
		t.Errorf("execution order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 0, rs.Len(), "all fibers terminated and unrooted")
	assert.Equal(t, 3, d.Stats().Terminated)
	assertBalanced(t, rs)
}

func TestDriver_ExhaustedWhenEmpty(t *testing.T) {
	d := runtime.NewDriver(memory.NewRootSet())
	assert.Equal(t, domain.StatusExhausted, d.Drive(context.Background()))
	assert.Equal(t, domain.PosNextFiber, d.Position())
}

func TestDriver_SpawnPriority(t *testing.T) {
	ctx := context.Background()
	rs := memory.NewRootSet()
	d := runtime.NewDriver(rs)

	var trace []string
	child, _ := newScript("child", &trace)
	parent, _ := newScript("parent", &trace,
		func() *domain.Request { return domain.Spawn(child) },
		yield,
	)
	other, _ := newScript("other", &trace)
	d.Inject(ctx, parent)
	d.Inject(ctx, other)

	require.Equal(t, domain.StatusExhausted, d.Drive(ctx))

	// The spawner keeps its turn, then the child runs before anyone queued earlier.
	want := []string{"parent", "parent", "child", "other", "parent"}
	if diff := cmp.Diff(want, trace); diff != "" {
		t.Errorf("execution order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, d.Stats().Spawns)
	assertBalanced(t, rs)
}

func TestDriver_RendezvousDeliversValue(t *testing.T) {
	ctx := context.Background()
	rs := memory.NewRootSet()
	d := runtime.NewDriver(rs)
	ch := domain.NewChannel("numbers")

	var trace []string
	var got any
	dst := &domain.Slot{}
	reader, _ := newScript("reader", &trace,
		func() *domain.Request { return domain.Read(ch, dst) },
		func() *domain.Request { got = dst.Value; return nil },
	)
	writer, _ := newScript("writer", &trace,
		func() *domain.Request { return domain.Write(ch, &domain.Slot{Value: 42}) },
	)

	// Reader first: it must park until the writer shows up.
	d.Inject(ctx, reader)
	d.Inject(ctx, writer)
	require.Equal(t, domain.StatusExhausted, d.Drive(ctx))

	assert.Equal(t, 42, got)
	assert.Equal(t, 0, ch.Readers())
	assert.Equal(t, 0, ch.Writers(), "writer is not left blocked")
	assert.True(t, writer.Dead())
	assert.Equal(t, 1, d.Stats().Rendezvous)
	assert.Equal(t, 1, d.Stats().Blocked)
	assertBalanced(t, rs)
	assert.Equal(t, 0, rs.Len())
}

func TestDriver_RendezvousAsymmetry(t *testing.T) {
	ch := domain.NewChannel("c")

	run := func(readerFirst bool) []string {
		ctx := context.Background()
		rs := memory.NewRootSet()
		d := runtime.NewDriver(rs)

		var trace []string
		dst := &domain.Slot{}
		reader, _ := newScript("R", &trace,
			func() *domain.Request { return domain.Read(ch, dst) },
			func() *domain.Request { trace = append(trace, "R:after-read"); return nil },
		)
		writer, _ := newScript("W", &trace,
			func() *domain.Request { return domain.Write(ch, &domain.Slot{Value: "v"}) },
			func() *domain.Request { trace = append(trace, "W:after-write"); return nil },
		)
		if readerFirst {
			d.Inject(ctx, reader)
			d.Inject(ctx, writer)
		} else {
			d.Inject(ctx, writer)
			d.Inject(ctx, reader)
		}
		require.Equal(t, domain.StatusExhausted, d.Drive(ctx))
		assertBalanced(t, rs)
		return trace
	}

	t.Run("Writer Arrives Second", func(t *testing.T) {
		want := []string{"R", "W", "R", "R:after-read", "W", "W:after-write"}
		if diff := cmp.Diff(want, run(true)); diff != "" {
			t.Errorf("reader must continue, writer requeued (-want +got):\n%s", diff)
		}
	})

	t.Run("Reader Arrives Second", func(t *testing.T) {
		want := []string{"W", "R", "R", "R:after-read", "W", "W:after-write"}
		if diff := cmp.Diff(want, run(false)); diff != "" {
			t.Errorf("reader must continue, writer requeued (-want +got):\n%s", diff)
		}
	})
}

func TestDriver_KillBeforeMatch(t *testing.T) {
	ctx := context.Background()
	rs := memory.NewRootSet()
	d := runtime.NewDriver(rs)
	ch := domain.NewChannel("c")

	var trace []string
	victimSlot := &domain.Slot{}
	victim, victimScript := newScript("victim", &trace,
		func() *domain.Request { return domain.Read(ch, victimSlot) },
		func() *domain.Request { t.Error("killed reader must never resume"); return nil },
	)
	killer, _ := newScript("killer", &trace,
		func() *domain.Request { return domain.Kill(victim) },
		func() *domain.Request { trace = append(trace, "killer:continues"); return nil },
	)
	writer, _ := newScript("writer", &trace,
		func() *domain.Request { return domain.Write(ch, &domain.Slot{Value: "lost?"}) },
	)

	d.Inject(ctx, victim)
	d.Inject(ctx, killer)
	d.Inject(ctx, writer)
	require.Equal(t, domain.StatusExhausted, d.Drive(ctx))

	want := []string{"victim", "killer", "killer", "killer:continues", "writer"}
	if diff := cmp.Diff(want, trace); diff != "" {
		t.Errorf("execution order mismatch (-want +got):\n%s", diff)
	}
	assert.Nil(t, victimSlot.Value, "nothing delivered to the killed reader")
	assert.True(t, victimScript.stopped)
	assert.Equal(t, 1, ch.Writers(), "writer blocks instead of matching the dead reader")
	assert.Equal(t, 0, ch.Readers())
	assert.False(t, rs.Rooted(victim), "purged reader is unrooted")
	assert.True(t, rs.Rooted(writer), "parked writer stays rooted")
	assert.Equal(t, 1, d.Stats().Purged)
	assertBalanced(t, rs)
}

func TestDriver_KillPrefersLiveReader(t *testing.T) {
	ctx := context.Background()
	rs := memory.NewRootSet()
	d := runtime.NewDriver(rs)
	ch := domain.NewChannel("c")

	var trace []string
	dead, _ := newScript("dead", &trace,
		func() *domain.Request { return domain.Read(ch, &domain.Slot{}) },
	)
	liveSlot := &domain.Slot{}
	live, _ := newScript("live", &trace,
		func() *domain.Request { return domain.Read(ch, liveSlot) },
	)
	writer, _ := newScript("writer", &trace,
		func() *domain.Request { return domain.Kill(dead) },
		func() *domain.Request { return domain.Write(ch, &domain.Slot{Value: 7}) },
	)

	d.Inject(ctx, dead)
	d.Inject(ctx, live)
	d.Inject(ctx, writer)
	require.Equal(t, domain.StatusExhausted, d.Drive(ctx))

	assert.Equal(t, 7, liveSlot.Value)
	assert.Equal(t, 0, ch.Writers())
	assert.Equal(t, 0, rs.Len())
	assertBalanced(t, rs)
}

func TestDriver_KillSelfEndsFiber(t *testing.T) {
	ctx := context.Background()
	rs := memory.NewRootSet()
	d := runtime.NewDriver(rs)

	var trace []string
	var self *domain.Fiber
	self, _ = newScript("self", &trace,
		func() *domain.Request { return domain.Kill(self) },
		func() *domain.Request { t.Error("killed fiber resumed"); return nil },
	)
	d.Inject(ctx, self)
	require.Equal(t, domain.StatusExhausted, d.Drive(ctx))

	assert.Equal(t, []string{"self"}, trace)
	assert.Equal(t, 0, rs.Len())
	assertBalanced(t, rs)
}

func TestDriver_NilChannelBlocksForever(t *testing.T) {
	ctx := context.Background()
	rs := memory.NewRootSet()
	d := runtime.NewDriver(rs)

	var trace []string
	f, s := newScript("lost", &trace,
		func() *domain.Request { return domain.Read(nil, &domain.Slot{}) },
		func() *domain.Request { t.Error("fiber on a nil channel resumed"); return nil },
	)
	d.Inject(ctx, f)
	require.Equal(t, domain.StatusExhausted, d.Drive(ctx))

	assert.True(t, f.Dead())
	assert.True(t, s.stopped)
	assert.Equal(t, 0, rs.Len())
	assertBalanced(t, rs)
}

// TestDriver_RootBalanceRandomized runs random workloads and checks that
// after exhaustion exactly the fibers parked on channels remain rooted.
func TestDriver_RootBalanceRandomized(t *testing.T) {
	for seed := int64(1); seed <= 50; seed++ {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			ctx := context.Background()
			rng := rand.New(rand.NewSource(seed))
			rs := memory.NewRootSet()
			d := runtime.NewDriver(rs)

			chans := []*domain.Channel{domain.NewChannel("c0"), domain.NewChannel("c1"), domain.NewChannel("c2")}
			var all []*domain.Fiber
			var trace []string

			var build func(name string, depth int) *domain.Fiber
			build = func(name string, depth int) *domain.Fiber {
				n := rng.Intn(6)
				steps := make([]func() *domain.Request, 0, n)
				for i := 0; i < n; i++ {
					ch := chans[rng.Intn(len(chans))]
					switch op := rng.Intn(5); {
					case op == 0:
						steps = append(steps, yield)
					case op == 1:
						steps = append(steps, func() *domain.Request { return domain.Read(ch, &domain.Slot{}) })
					case op == 2:
						steps = append(steps, func() *domain.Request { return domain.Write(ch, &domain.Slot{Value: i}) })
					case op == 3 && depth < 3:
						child := build(fmt.Sprintf("%s.%d", name, i), depth+1)
						steps = append(steps, func() *domain.Request { return domain.Spawn(child) })
					default:
						pick := rng.Int()
						steps = append(steps, func() *domain.Request {
							return domain.Kill(all[pick%len(all)])
						})
					}
				}
				f, _ := newScript(name, &trace, steps...)
				all = append(all, f)
				return f
			}

			for i := 0; i < 8; i++ {
				d.Inject(ctx, build(fmt.Sprintf("f%d", i), 0))
			}
			require.Equal(t, domain.StatusExhausted, d.Drive(ctx))

			parked := 0
			for _, ch := range chans {
				parked += ch.Readers() + ch.Writers()
			}
			audit := rs.Audit()
			assert.Empty(t, audit.Violations)
			assert.True(t, audit.Balanced(), "audit %+v", audit)
			assert.Equal(t, parked, audit.Live, "only parked fibers stay rooted")
			assert.Equal(t, audit.Removed, rs.Collect(), "every unrooted fiber is reclaimable")
		})
	}
}

func TestDriver_DelegationRoundTrip(t *testing.T) {
	ctx := context.Background()
	rs := memory.NewRootSet()
	d := runtime.NewDriver(rs)

	type payload struct{ Text string }
	var trace []string
	var reply any
	host := domain.Host("greet", &payload{Text: "hello"})
	f, _ := newScript("asker", &trace,
		func() *domain.Request { return host },
		func() *domain.Request { reply = host.Slot.Value; return nil },
	)
	bystander, _ := newScript("bystander", &trace)
	d.Inject(ctx, f)
	d.Inject(ctx, bystander)

	require.Equal(t, domain.StatusDelegated, d.Drive(ctx))
	assert.Equal(t, domain.PosNextRequest, d.Position())

	pf, req := d.Pending()
	require.Same(t, f, pf)
	require.Same(t, host, req, "payload is handed over unchanged")
	assert.Equal(t, &payload{Text: "hello"}, req.Payload)
	req.Slot.Set("hi back")

	require.Equal(t, domain.StatusExhausted, d.Drive(ctx))
	assert.Equal(t, "hi back", reply)
	assert.Equal(t, []string{"asker", "asker", "bystander"}, trace, "the delegating step is not re-run")
	assert.Equal(t, 1, d.Stats().Delegations)
	assertBalanced(t, rs)
}

func TestDriver_DetachAndWake(t *testing.T) {
	ctx := context.Background()
	rs := memory.NewRootSet()
	d := runtime.NewDriver(rs)

	var trace []string
	sleeper, _ := newScript("sleeper", &trace,
		func() *domain.Request { return domain.Host(domain.RequestSleep, "1ms") },
	)
	worker, _ := newScript("worker", &trace, yield)
	d.Inject(ctx, sleeper)
	d.Inject(ctx, worker)

	require.Equal(t, domain.StatusDelegated, d.Drive(ctx))
	held := d.Detach()
	require.Same(t, sleeper, held)
	assert.Nil(t, d.Detach(), "nothing left to detach")
	assert.True(t, rs.Rooted(held), "a detached fiber keeps its root")

	require.Equal(t, domain.StatusExhausted, d.Drive(ctx))
	assert.Equal(t, []string{"sleeper", "worker", "worker"}, trace)

	d.Wake(held)
	require.Equal(t, domain.StatusExhausted, d.Drive(ctx))
	assert.Equal(t, []string{"sleeper", "worker", "worker", "sleeper"}, trace)
	assert.Equal(t, 0, rs.Len())
	assertBalanced(t, rs)
}

func TestDriver_ReentrantDrivePanics(t *testing.T) {
	ctx := context.Background()
	d := runtime.NewDriver(memory.NewRootSet())

	var trace []string
	var recovered any
	f, _ := newScript("nested", &trace, func() *domain.Request {
		func() {
			defer func() { recovered = recover() }()
			d.Drive(ctx)
		}()
		return nil
	})
	d.Inject(ctx, f)
	d.Drive(ctx)

	var corruption *domain.CorruptionError
	require.IsType(t, corruption, recovered)
	assert.Contains(t, recovered.(*domain.CorruptionError).Detail, "re-entered")
}

func TestDriver_HooksObserveTransitions(t *testing.T) {
	ctx := context.Background()
	var events []domain.EventType
	record := func(_ context.Context, ev *domain.FiberEvent) { events = append(events, ev.Type) }
	d := runtime.NewDriver(memory.NewRootSet(), runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnRoot:       record,
		OnUnroot:     record,
		OnBlock:      record,
		OnRendezvous: record,
	}))
	ch := domain.NewChannel("c")

	var trace []string
	r, _ := newScript("r", &trace, func() *domain.Request { return domain.Read(ch, &domain.Slot{}) })
	w, _ := newScript("w", &trace, func() *domain.Request { return domain.Write(ch, &domain.Slot{Value: 1}) })
	d.Inject(ctx, r)
	d.Inject(ctx, w)
	d.Drive(ctx)

	want := []domain.EventType{
		domain.EventInject, domain.EventInject,
		domain.EventBlock, domain.EventRendezvous,
		domain.EventTerminate, domain.EventTerminate,
	}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("event sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestDriver_ShutdownReleasesParkedFibers(t *testing.T) {
	ctx := context.Background()
	rs := memory.NewRootSet()
	var unrooted []domain.EventType
	d := runtime.NewDriver(rs, runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnUnroot: func(_ context.Context, ev *domain.FiberEvent) { unrooted = append(unrooted, ev.Type) },
	}))
	ch := domain.NewChannel("void")

	var trace []string
	r, rs1 := newScript("r", &trace, func() *domain.Request { return domain.Read(ch, &domain.Slot{}) })
	w, rs2 := newScript("w", &trace, func() *domain.Request { return domain.Write(domain.NewChannel("other"), &domain.Slot{Value: 1}) })
	done, _ := newScript("done", &trace)
	d.Inject(ctx, r)
	d.Inject(ctx, w)
	d.Inject(ctx, done)

	require.Equal(t, domain.StatusExhausted, d.Drive(ctx))
	assert.Equal(t, 2, d.Live(), "reader and writer stay parked")
	assert.Equal(t, 2, rs.Audit().Live)

	assert.Equal(t, 2, d.Shutdown(ctx))
	assert.Zero(t, d.Live())
	assert.True(t, r.Dead())
	assert.True(t, w.Dead())
	assert.True(t, rs1.stopped, "continuation released")
	assert.True(t, rs2.stopped, "continuation released")
	assert.Equal(t, 2, d.Stats().Abandoned)
	assertBalanced(t, rs)
	assert.Equal(t, []domain.EventType{domain.EventTerminate, domain.EventShutdown, domain.EventShutdown}, unrooted)

	assert.Zero(t, d.Shutdown(ctx), "second shutdown finds nothing")
}

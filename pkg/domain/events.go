package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventRequest    EventType = "request"
	EventInject     EventType = "inject"
	EventSpawn      EventType = "spawn"
	EventTerminate  EventType = "terminate"
	EventBlock      EventType = "block"
	EventRendezvous EventType = "rendezvous"
	EventKill       EventType = "kill"
	EventPurge      EventType = "purge"
	EventDelegate   EventType = "delegate"
	EventShutdown   EventType = "shutdown"
)

// FiberEvent describes one scheduling transition.
type FiberEvent struct {
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	FiberID   string      `json:"fiber_id"`
	FiberName string      `json:"fiber_name,omitempty"`
	Kind      RequestKind `json:"kind,omitempty"`
	Channel   string      `json:"channel,omitempty"`
	PeerID    string      `json:"peer_id,omitempty"` // Rendezvous partner or kill target
}

// LifecycleHooks defines callbacks for scheduler observability.
// Nil callbacks are skipped.
type LifecycleHooks struct {
	OnRequest    func(context.Context, *FiberEvent)
	OnRoot       func(context.Context, *FiberEvent) // inject and spawn
	OnUnroot     func(context.Context, *FiberEvent) // terminate, purge and shutdown
	OnBlock      func(context.Context, *FiberEvent)
	OnRendezvous func(context.Context, *FiberEvent)
	OnKill       func(context.Context, *FiberEvent)
	OnDelegate   func(context.Context, *FiberEvent)
}

// Chain merges several hook sets. Every non-nil callback is called in order.
func Chain(hooks ...LifecycleHooks) LifecycleHooks {
	pick := func(get func(LifecycleHooks) func(context.Context, *FiberEvent)) func(context.Context, *FiberEvent) {
		var fns []func(context.Context, *FiberEvent)
		for _, h := range hooks {
			if fn := get(h); fn != nil {
				fns = append(fns, fn)
			}
		}
		switch len(fns) {
		case 0:
			return nil
		case 1:
			return fns[0]
		}
		return func(ctx context.Context, ev *FiberEvent) {
			for _, fn := range fns {
				fn(ctx, ev)
			}
		}
	}
	return LifecycleHooks{
		OnRequest:    pick(func(h LifecycleHooks) func(context.Context, *FiberEvent) { return h.OnRequest }),
		OnRoot:       pick(func(h LifecycleHooks) func(context.Context, *FiberEvent) { return h.OnRoot }),
		OnUnroot:     pick(func(h LifecycleHooks) func(context.Context, *FiberEvent) { return h.OnUnroot }),
		OnBlock:      pick(func(h LifecycleHooks) func(context.Context, *FiberEvent) { return h.OnBlock }),
		OnRendezvous: pick(func(h LifecycleHooks) func(context.Context, *FiberEvent) { return h.OnRendezvous }),
		OnKill:       pick(func(h LifecycleHooks) func(context.Context, *FiberEvent) { return h.OnKill }),
		OnDelegate:   pick(func(h LifecycleHooks) func(context.Context, *FiberEvent) { return h.OnDelegate }),
	}
}

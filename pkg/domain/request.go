package domain

// RequestKind discriminates service requests.
type RequestKind string

// Kinds owned by the scheduler. Every other kind is delegated to the host.
const (
	RequestYield RequestKind = "yield"
	RequestSpawn RequestKind = "spawn"
	RequestRead  RequestKind = "read"
	RequestWrite RequestKind = "write"
	RequestKill  RequestKind = "kill"
)

// Well-known host kinds serviced by the default runner.
const (
	RequestPrint RequestKind = "print"
	RequestSleep RequestKind = "sleep"
	RequestHalt  RequestKind = "halt"
)

// Request is the value a fiber hands back when it cannot proceed alone.
type Request struct {
	Kind RequestKind

	// Fiber is the child for spawn and the target for kill.
	Fiber *Fiber

	// Chan is the channel for read and write.
	Chan *Channel

	// Slot is the destination of a read, the source of a write,
	// and the reply slot of a host request.
	Slot *Slot

	// Payload carries host request arguments verbatim.
	Payload any
}

// Builtin reports whether the scheduler handles this request itself.
func (r *Request) Builtin() bool {
	switch r.Kind {
	case RequestYield, RequestSpawn, RequestRead, RequestWrite, RequestKill:
		return true
	}
	return false
}

// Yield asks to pause for one scheduling round.
func Yield() *Request {
	return &Request{Kind: RequestYield}
}

// Spawn asks to schedule child as an independent fiber.
func Spawn(child *Fiber) *Request {
	return &Request{Kind: RequestSpawn, Fiber: child}
}

// Read asks to receive one value from ch into dst.
func Read(ch *Channel, dst *Slot) *Request {
	return &Request{Kind: RequestRead, Chan: ch, Slot: dst}
}

// Write asks to send the value held by src on ch.
func Write(ch *Channel, src *Slot) *Request {
	return &Request{Kind: RequestWrite, Chan: ch, Slot: src}
}

// Kill asks to terminate target.
func Kill(target *Fiber) *Request {
	return &Request{Kind: RequestKill, Fiber: target}
}

// Host builds a request the scheduler delegates to its host.
// The host answers through the returned request's Slot.
func Host(kind RequestKind, payload any) *Request {
	return &Request{Kind: kind, Payload: payload, Slot: &Slot{}}
}

// Slot holds one value moved between fibers, or between host and fiber.
type Slot struct {
	Value any
	Err   error
}

// Set stores v and clears any error.
func (s *Slot) Set(v any) {
	s.Value = v
	s.Err = nil
}

// Fail stores err as the outcome.
func (s *Slot) Fail(err error) {
	s.Value = nil
	s.Err = err
}

// Get returns the stored value and error.
func (s *Slot) Get() (any, error) {
	return s.Value, s.Err
}

// Transfer copies the value held by src into dst.
func Transfer(dst, src *Slot) {
	dst.Set(src.Value)
}

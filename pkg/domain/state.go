package domain

// Status explains why the driver returned control to its host.
type Status string

const (
	StatusRunning   Status = "running"   // Dispatch in progress
	StatusExhausted Status = "exhausted" // Active queue empty, driver idle
	StatusDelegated Status = "delegated" // Host must service the pending request
)

// Position is where the driver resumes on its next invocation.
type Position int

const (
	PosNextFiber   Position = iota // About to pick the next fiber
	PosNextRequest                 // About to run the current fiber again
)

func (p Position) String() string {
	switch p {
	case PosNextFiber:
		return "next fiber"
	case PosNextRequest:
		return "next request"
	default:
		return "illegal position"
	}
}

// Stats counts what a driver did over its lifetime.
type Stats struct {
	Steps       int `json:"steps"`
	Yields      int `json:"yields"`
	Spawns      int `json:"spawns"`
	Reads       int `json:"reads"`
	Writes      int `json:"writes"`
	Rendezvous  int `json:"rendezvous"`
	Blocked     int `json:"blocked"`
	Kills       int `json:"kills"`
	Purged      int `json:"purged"`
	Delegations int `json:"delegations"`
	Terminated  int `json:"terminated"`
	Abandoned   int `json:"abandoned"`
}

package ports

import "github.com/aretw0/strand/pkg/domain"

// Collector is the part of the garbage collector the scheduler talks to.
//
// The driver calls AddRoot and RemoveRoot exactly once per logical
// transition; implementations need not tolerate redundant calls.
type Collector interface {
	// AddRoot makes f reachable regardless of any other reference.
	AddRoot(f *domain.Fiber)

	// RemoveRoot drops the root added for f.
	RemoveRoot(f *domain.Fiber)

	// Collect reclaims unreachable fibers and returns how many were freed.
	// Only the host calls it, between drives.
	Collect() int
}

// RootAuditor is implemented by collectors that can report their root traffic.
type RootAuditor interface {
	Audit() domain.RootAudit
}

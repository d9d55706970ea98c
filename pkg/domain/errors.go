package domain

import (
	"errors"
	"fmt"
)

// ErrRunNotFound is returned when a run report cannot be found in the store.
var ErrRunNotFound = errors.New("run not found")

// ErrUnitNotFound is returned when a source has no unit with the given name.
var ErrUnitNotFound = errors.New("unit not found")

// ErrHandlerNotFound is returned when no host handler serves a request kind.
var ErrHandlerNotFound = errors.New("handler not found")

// LinkFailure reports that a unit could not be linked.
// It is produced by the loader and propagated unchanged.
type LinkFailure struct {
	Filename  string
	Operation string
	What      string
}

func (e *LinkFailure) Error() string {
	return fmt.Sprintf("link failure: %s: %s: %s", e.Filename, e.Operation, e.What)
}

// ExecFailure reports that the host could not service a delegated request.
type ExecFailure struct {
	Filename  string
	Operation string
	What      string
}

func (e *ExecFailure) Error() string {
	return fmt.Sprintf("execution failure: %s: %s: %s", e.Filename, e.Operation, e.What)
}

// Halt is raised when a program asks to stop.
type Halt struct {
	Reason string
	Fiber  string
}

func (e *Halt) Error() string {
	if e.Fiber == "" {
		return "halt: " + e.Reason
	}
	return fmt.Sprintf("halt: %s (fiber %s)", e.Reason, e.Fiber)
}

// CorruptionError signals a broken driver invariant, such as an unknown
// resumption position or a re-entrant drive. The driver panics with it.
type CorruptionError struct {
	Position Position
	Detail   string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("driver corruption at %s: %s", e.Position, e.Detail)
}

package cli

import (
	"context"
	"errors"

	"github.com/aretw0/strand/pkg/domain"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitLinkFailure = 2
	ExitHalt        = 3
	ExitFailure     = 4
	ExitUnknown     = 5
	ExitCorruption  = 6
)

// ExitCode maps a run error to the process exit code.
// Link failures exit 2; halts and execution failures exit 3; a corrupted
// driver exits 6; anything else exits 4. An interrupted run exits 0.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var (
		link       *domain.LinkFailure
		halt       *domain.Halt
		exec       *domain.ExecFailure
		corruption *domain.CorruptionError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return ExitOK
	case errors.As(err, &link), errors.Is(err, domain.ErrUnitNotFound):
		return ExitLinkFailure
	case errors.As(err, &corruption):
		return ExitCorruption
	case errors.As(err, &halt), errors.As(err, &exec):
		return ExitHalt
	}
	return ExitFailure
}

// PanicExitCode is used when a command panics with something that is not an error.
func PanicExitCode(recovered any) int {
	if err, ok := recovered.(error); ok {
		return ExitCode(err)
	}
	return ExitUnknown
}

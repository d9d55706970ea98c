package ports

import (
	"context"

	"github.com/aretw0/strand/pkg/domain"
)

// ReportStore defines the interface for persisting run reports.
type ReportStore interface {
	// Save persists the report under its ID, replacing any previous version.
	Save(ctx context.Context, report *domain.Report) error

	// Load retrieves a report by run ID.
	// Returns domain.ErrRunNotFound if the run does not exist.
	Load(ctx context.Context, runID string) (*domain.Report, error)

	// Delete removes a report.
	Delete(ctx context.Context, runID string) error

	// List returns the IDs of stored runs.
	List(ctx context.Context) ([]string, error)
}

// UnitSource provides the raw definitions of program units.
type UnitSource interface {
	// Fetch returns the definition of the named unit.
	// Returns domain.ErrUnitNotFound if the source has no such unit.
	Fetch(ctx context.Context, name string) ([]byte, error)

	// List returns all available unit names.
	List(ctx context.Context) ([]string, error)
}

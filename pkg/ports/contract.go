package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/strand/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunReportStoreContract runs a suite of tests to verify that a ReportStore
// implementation adheres to the defined interface contract.
func RunReportStoreContract(t *testing.T, store ReportStore) {
	ctx := context.Background()
	runID := "contract-run-" + time.Now().Format("20060102150405")

	newReport := func(id string) *domain.Report {
		return &domain.Report{
			ID:        id,
			Unit:      "pingpong",
			StartedAt: time.Now().UTC().Truncate(time.Second),
			Stats:     domain.Stats{Steps: 7, Rendezvous: 2},
			Roots:     domain.RootAudit{Added: 2, Removed: 2},
			Output:    []string{"ping", "pong"},
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		report := newReport(runID)

		err := store.Save(ctx, report)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, report.Unit, loaded.Unit)
		assert.Equal(t, report.Stats, loaded.Stats)
		assert.Equal(t, report.Roots, loaded.Roots)
		assert.Equal(t, report.Output, loaded.Output)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, newReport(runID)))

		err := store.Delete(ctx, runID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound, "Load after Delete should return ErrRunNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := runID + "-1"
		id2 := runID + "-2"
		_ = store.Save(ctx, newReport(id1))
		_ = store.Save(ctx, newReport(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		runs, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, runs, id1)
		assert.Contains(t, runs, id2)
	})
}

// RunCollectorContract verifies the root bookkeeping of a Collector that also
// implements RootAuditor.
func RunCollectorContract(t *testing.T, newCollector func() Collector) {
	t.Run("Balanced Traffic", func(t *testing.T) {
		c := newCollector()
		a := domain.NewFiber("a", nil)
		b := domain.NewFiber("b", nil)

		c.AddRoot(a)
		c.AddRoot(b)
		c.RemoveRoot(a)

		audit := auditOf(t, c)
		assert.Equal(t, 2, audit.Added)
		assert.Equal(t, 1, audit.Removed)
		assert.Equal(t, 1, audit.Live)
		assert.True(t, audit.Balanced())
	})

	t.Run("Collect Reclaims Unrooted", func(t *testing.T) {
		c := newCollector()
		a := domain.NewFiber("a", nil)

		c.AddRoot(a)
		assert.Equal(t, 0, c.Collect())
		c.RemoveRoot(a)
		assert.Equal(t, 1, c.Collect())
		assert.Equal(t, 0, c.Collect(), "a fiber is reclaimed once")
	})

	t.Run("Double Remove Is Reported", func(t *testing.T) {
		c := newCollector()
		a := domain.NewFiber("a", nil)

		c.AddRoot(a)
		c.RemoveRoot(a)
		c.RemoveRoot(a)

		audit := auditOf(t, c)
		assert.False(t, audit.Balanced())
		assert.Len(t, audit.Violations, 1)
	})
}

func auditOf(t *testing.T, c Collector) domain.RootAudit {
	t.Helper()
	a, ok := c.(RootAuditor)
	require.True(t, ok, "collector must implement RootAuditor")
	return a.Audit()
}

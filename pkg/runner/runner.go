package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/strand/internal/logging"
	"github.com/aretw0/strand/internal/runtime"
	"github.com/aretw0/strand/pkg/domain"
	"github.com/aretw0/strand/pkg/ports"
	"github.com/aretw0/strand/pkg/registry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/aretw0/strand/pkg/runner"

// ContentRenderer is a function that transforms printed text before it is
// written to Output (e.g. markdown to ANSI).
type ContentRenderer func(string) (string, error)

// Runner drives fibers to completion and services the requests the driver
// delegates. A Runner may serve several runs concurrently; each run has its
// own driver and collector.
type Runner struct {
	// Registry holds the handlers for delegated requests.
	Registry *registry.Registry

	// Store persists run reports. If nil, reports are only returned.
	Store ports.ReportStore

	// Logger is used for internal debug logging.
	Logger *slog.Logger

	// Output receives printed lines as they happen. Optional.
	Output   io.Writer
	Renderer ContentRenderer

	CollectEvery int
	Hooks        domain.LifecycleHooks
	Debug        bool

	tracer trace.Tracer
}

// New creates a Runner with the built-in handlers registered.
func New(opts ...Option) *Runner {
	r := &Runner{
		Registry:     registry.NewRegistry(),
		Logger:       logging.NewNop(),
		CollectEvery: DefaultCollectEvery,
		tracer:       otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.registerBuiltins()
	return r
}

// Run injects fibers into a fresh driver and runs it until every fiber
// finished or blocked for good, a handler failed, or ctx was cancelled.
//
// The returned report is complete even when err is not nil. A driver
// corruption is returned as a *domain.CorruptionError.
func (r *Runner) Run(ctx context.Context, unit string, collector ports.Collector, fibers ...*domain.Fiber) (report *domain.Report, err error) {
	st := &runState{
		report: &domain.Report{
			ID:        uuid.NewString(),
			Unit:      unit,
			StartedAt: time.Now().UTC(),
		},
		runner: r,
	}
	ctx = withRunState(ctx, st)
	ctx, span := r.tracer.Start(ctx, "strand.run", trace.WithAttributes(
		attribute.String("strand.unit", unit),
		attribute.String("strand.run_id", st.report.ID),
	))
	defer span.End()

	d := runtime.NewDriver(collector,
		runtime.WithLogger(r.Logger),
		runtime.WithLifecycleHooks(r.Hooks),
		runtime.WithDebug(r.Debug),
	)
	for _, f := range fibers {
		d.Inject(ctx, f)
	}

	logger := r.Logger.With("unit", unit, "run_id", st.report.ID)
	logger.Debug("run started", "fibers", len(fibers))

	defer func() {
		if rec := recover(); rec != nil {
			corruption, ok := rec.(*domain.CorruptionError)
			if !ok {
				panic(rec)
			}
			err = corruption
		}
		st.timers.stop()
		report = r.finish(ctx, st, d, collector, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		logger.Debug("run finished", "drives", report.Drives, "error", err)
	}()

	return nil, r.loop(ctx, st, d, collector)
}

func (r *Runner) loop(ctx context.Context, st *runState, d *runtime.Driver, collector ports.Collector) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		st.timers.drain(d)

		status := r.drive(ctx, st, d)
		if r.CollectEvery > 0 && st.report.Drives%r.CollectEvery == 0 {
			st.report.Collected += collector.Collect()
		}

		switch status {
		case domain.StatusDelegated:
			if err := r.service(ctx, st, d); err != nil {
				return err
			}

		case domain.StatusExhausted:
			if st.timers.pending == 0 {
				return nil
			}
			if err := st.timers.wait(ctx, d); err != nil {
				return err
			}
		}
	}
}

func (r *Runner) drive(ctx context.Context, st *runState, d *runtime.Driver) domain.Status {
	ctx, span := r.tracer.Start(ctx, "strand.drive")
	defer span.End()

	status := d.Drive(ctx)
	st.report.Drives++
	span.SetAttributes(
		attribute.String("strand.status", string(status)),
		attribute.Int("strand.active", d.Active()),
	)
	return status
}

// service answers the pending request of a delegated driver.
func (r *Runner) service(ctx context.Context, st *runState, d *runtime.Driver) error {
	f, req := d.Pending()
	if req.Kind == domain.RequestSleep {
		dur, err := sleepDuration(req.Payload)
		if err != nil {
			return &domain.ExecFailure{Filename: st.report.Unit, Operation: string(req.Kind), What: err.Error()}
		}
		st.timers.sleep(d.Detach(), dur)
		return nil
	}

	reply, err := r.Registry.Execute(ctx, req)
	if err != nil {
		var halt *domain.Halt
		if errors.As(err, &halt) {
			if halt.Fiber == "" {
				halt.Fiber = f.String()
			}
			return halt
		}
		// A handler cut short by cancellation is not a failed operation.
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return ctxErr
		}
		what := err.Error()
		if errors.Is(err, domain.ErrHandlerNotFound) {
			what = "no handler registered"
		}
		return &domain.ExecFailure{Filename: st.report.Unit, Operation: string(req.Kind), What: what}
	}
	if req.Slot != nil {
		req.Slot.Set(reply)
	}
	return nil
}

func (r *Runner) finish(ctx context.Context, st *runState, d *runtime.Driver, collector ports.Collector, runErr error) *domain.Report {
	report := st.report
	report.Collected += collector.Collect()
	report.FinishedAt = time.Now().UTC()
	if auditor, ok := collector.(ports.RootAuditor); ok {
		report.Roots = auditor.Audit()
	}
	// Fibers still parked or sleeping can never be resumed by this run.
	if n := d.Shutdown(ctx); n > 0 {
		r.Logger.Debug("abandoned live fibers", "run_id", report.ID, "fibers", n)
	}
	report.Stats = d.Stats()
	if runErr != nil {
		report.Error = runErr.Error()
	}

	if r.Store != nil {
		// Save even if ctx was cancelled: the report documents the cancellation.
		if err := r.Store.Save(context.WithoutCancel(ctx), report); err != nil {
			r.Logger.Error("failed to save report", "run_id", report.ID, "error", err)
		}
	}
	return report
}

func sleepDuration(payload any) (time.Duration, error) {
	switch v := payload.(type) {
	case time.Duration:
		return v, nil
	case string:
		return time.ParseDuration(strings.TrimSpace(v))
	case int:
		return time.Duration(v) * time.Millisecond, nil
	}
	return 0, fmt.Errorf("invalid duration %v (%T)", payload, payload)
}

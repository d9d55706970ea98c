package runner

import (
	"io"
	"log/slog"

	"github.com/aretw0/strand/pkg/domain"
	"github.com/aretw0/strand/pkg/ports"
	"go.opentelemetry.io/otel/trace"
)

// DefaultCollectEvery is how many drives pass between collector runs.
const DefaultCollectEvery = 16

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithStore configures where run reports are saved.
func WithStore(store ports.ReportStore) Option {
	return func(r *Runner) {
		r.Store = store
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.Logger = logger
		}
	}
}

// WithOutput echoes printed lines to w.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) {
		r.Output = w
	}
}

// WithRenderer transforms printed text before it is echoed to Output.
func WithRenderer(renderer ContentRenderer) Option {
	return func(r *Runner) {
		r.Renderer = renderer
	}
}

// WithCollectEvery sets how many drives pass between collector runs.
// Zero disables periodic collection; the collector still runs once at the end.
func WithCollectEvery(n int) Option {
	return func(r *Runner) {
		r.CollectEvery = n
	}
}

// WithLifecycleHooks forwards scheduler hooks to every driver the runner creates.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Runner) {
		r.Hooks = hooks
	}
}

// WithDebug enables driver transition logging.
func WithDebug(debug bool) Option {
	return func(r *Runner) {
		r.Debug = debug
	}
}

// WithTracer replaces the global otel tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Runner) {
		if tracer != nil {
			r.tracer = tracer
		}
	}
}

package runtime

import (
	"log/slog"

	"github.com/aretw0/strand/pkg/domain"
)

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the structured logger. A nil logger keeps the default no-op one.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(d *Driver) {
		d.hooks = hooks
	}
}

// WithDebug enables per-transition debug logging.
func WithDebug(debug bool) Option {
	return func(d *Driver) {
		d.debug = debug
	}
}

// WithActiveQueue makes the driver dispatch from q instead of a private queue.
// The caller must not touch q while the driver owns it.
func WithActiveQueue(q *domain.Queue) Option {
	return func(d *Driver) {
		if q != nil {
			d.active = q
		}
	}
}

package strand

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/strand/internal/logging"
	loamAdapter "github.com/aretw0/strand/pkg/adapters/loam"
	"github.com/aretw0/strand/pkg/adapters/memory"
	"github.com/aretw0/strand/pkg/domain"
	"github.com/aretw0/strand/pkg/loader"
	"github.com/aretw0/strand/pkg/ports"
	"github.com/aretw0/strand/pkg/registry"
	"github.com/aretw0/strand/pkg/runner"
)

// Version is the release of the strand module.
const Version = "0.4.0"

// Engine is the high-level entry point for the library.
// It links units, runs them to exhaustion and keeps their reports.
type Engine struct {
	Name string

	loader *loader.Loader
	runner *runner.Runner
	store  ports.ReportStore
	source ports.UnitSource

	newCollector func() ports.Collector
	loaderOpts   []loader.Option
	runnerOpts   []runner.Option
	hooks        domain.LifecycleHooks
	logger       *slog.Logger
	debug        bool
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithSource injects a custom UnitSource, bypassing the default Loam repository.
func WithSource(src ports.UnitSource) Option {
	return func(e *Engine) {
		e.source = src
	}
}

// WithDirSource reads plain YAML units from dir without a Loam repository.
func WithDirSource(dir string) Option {
	return func(e *Engine) {
		e.source = loader.NewDirSource(dir)
	}
}

// WithStatic registers units implemented in Go.
func WithStatic(images ...*loader.Image) Option {
	return func(e *Engine) {
		e.loaderOpts = append(e.loaderOpts, loader.WithStatic(images...))
	}
}

// WithExtension hooks into the link and init lifecycle of every unit.
func WithExtension(ext loader.Extension) Option {
	return func(e *Engine) {
		e.loaderOpts = append(e.loaderOpts, loader.WithExtension(ext))
	}
}

// WithCollector sets the factory for the collector each run talks to.
// The default is a fresh memory.RootSet per run.
func WithCollector(factory func() ports.Collector) Option {
	return func(e *Engine) {
		if factory != nil {
			e.newCollector = factory
		}
	}
}

// WithStore sets where run reports are kept. The default is in memory.
func WithStore(store ports.ReportStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLifecycleHooks registers scheduler observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithDebug logs every scheduler transition at debug level.
func WithDebug(debug bool) Option {
	return func(e *Engine) {
		e.debug = debug
	}
}

// WithRunnerOptions passes extra options to the underlying runner.
func WithRunnerOptions(opts ...runner.Option) Option {
	return func(e *Engine) {
		e.runnerOpts = append(e.runnerOpts, opts...)
	}
}

// New initializes a new Engine.
// By default, units are read from a Loam repository at dir.
// If WithSource is provided, or only static units are used, dir can be empty.
func New(dir string, opts ...Option) (*Engine, error) {
	eng := &Engine{
		newCollector: func() ports.Collector { return memory.NewRootSet() },
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.source == nil && dir != "" {
		src, err := loamAdapter.Open(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize loam: %w", err)
		}
		eng.source = src
	}
	if dir != "" {
		absPath, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		eng.Name = filepath.Base(absPath)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("repo", eng.Name)
	}
	if eng.store == nil {
		eng.store = memory.NewStore()
	}

	loaderOpts := []loader.Option{loader.WithLogger(eng.logger)}
	if eng.source != nil {
		loaderOpts = append(loaderOpts, loader.WithSource(eng.source))
	}
	eng.loader = loader.New(append(loaderOpts, eng.loaderOpts...)...)

	runnerOpts := []runner.Option{
		runner.WithStore(eng.store),
		runner.WithLogger(eng.logger),
		runner.WithLifecycleHooks(eng.hooks),
		runner.WithDebug(eng.debug),
	}
	eng.runner = runner.New(append(runnerOpts, eng.runnerOpts...)...)

	return eng, nil
}

// Handle registers a handler for a delegated request kind.
// Handlers registered later replace earlier ones, built-ins included.
func (e *Engine) Handle(kind domain.RequestKind, fn registry.Handler) {
	e.runner.Registry.Register(kind, fn)
}

// RunUnit links the named unit, creates its frame and runs its start and
// main fibers until nothing can make progress.
//
// Link failures are returned before anything runs and produce no report.
// Otherwise the report is returned and saved even when err is not nil.
func (e *Engine) RunUnit(ctx context.Context, unit string) (*domain.Report, error) {
	lib, err := e.loader.Link(ctx, unit)
	if err != nil {
		return nil, err
	}
	inst, err := lib.Init(ctx)
	if err != nil {
		return nil, err
	}
	return e.runner.Run(ctx, unit, e.newCollector(), inst.Fibers()...)
}

// Units lists every unit the engine can run.
func (e *Engine) Units(ctx context.Context) ([]string, error) {
	return e.loader.List(ctx)
}

// Report loads a stored run report.
func (e *Engine) Report(ctx context.Context, runID string) (*domain.Report, error) {
	return e.store.Load(ctx, runID)
}

// Reports lists the IDs of stored runs.
func (e *Engine) Reports(ctx context.Context) ([]string, error) {
	return e.store.List(ctx)
}

// Loader returns the underlying loader.
func (e *Engine) Loader() *loader.Loader {
	return e.loader
}

// Runner returns the underlying runner.
func (e *Engine) Runner() *runner.Runner {
	return e.runner
}

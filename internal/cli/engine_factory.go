package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/strand"
	"github.com/aretw0/strand/internal/config"
	"github.com/aretw0/strand/pkg/adapters/file"
	"github.com/aretw0/strand/pkg/adapters/memory"
	"github.com/aretw0/strand/pkg/adapters/process"
	"github.com/aretw0/strand/pkg/adapters/redis"
	"github.com/aretw0/strand/pkg/domain"
	"github.com/aretw0/strand/pkg/observability"
	"github.com/aretw0/strand/pkg/persistence/middleware"
	"github.com/aretw0/strand/pkg/ports"
	"github.com/aretw0/strand/pkg/runner"
	"github.com/prometheus/client_golang/prometheus"
)

// Services bundles an engine with the infrastructure built for it.
type Services struct {
	Engine   *strand.Engine
	Store    ports.ReportStore
	Metrics  *observability.Metrics
	Registry *prometheus.Registry
	Shutdown func(context.Context) error
}

// EngineConfig tunes createEngine for a given command.
type EngineConfig struct {
	Hooks      []domain.LifecycleHooks
	RunnerOpts []runner.Option
}

// createEngine initializes an engine with standard CLI conventions.
func createEngine(ctx context.Context, opts RunOptions, cfg config.Config, logger *slog.Logger, ec EngineConfig) (*Services, error) {
	store, err := createStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	shutdown, err := observability.SetupTracing(ctx, cfg.OTLPEndpoint, "strand")
	if err != nil {
		return nil, fmt.Errorf("error initializing tracing: %w", err)
	}

	hooks := append([]domain.LifecycleHooks{metrics.Hooks()}, ec.Hooks...)
	if cfg.Debug {
		hooks = append(hooks, createDebugHooks(logger))
	}

	runnerOpts := ec.RunnerOpts
	if cfg.CollectEvery != nil {
		runnerOpts = append(runnerOpts, runner.WithCollectEvery(*cfg.CollectEvery))
	}

	engine, err := strand.New(opts.Dir,
		strand.WithLogger(logger),
		strand.WithStore(store),
		strand.WithDebug(cfg.Debug),
		strand.WithLifecycleHooks(domain.Chain(hooks...)),
		strand.WithRunnerOptions(runnerOpts...),
	)
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	if len(cfg.Processes) > 0 {
		procs := process.NewRunner(process.WithRegistry(cfg.Processes), process.WithBaseDir(opts.Dir))
		engine.Handle(process.RequestExec, procs.Handle)
		logger.Debug("exec processes registered", "names", procs.Names())
	}

	return &Services{
		Engine:   engine,
		Store:    store,
		Metrics:  metrics,
		Registry: reg,
		Shutdown: shutdown,
	}, nil
}

// createStore builds the report store selected in the config.
// The file backend defaults to .strand/runs in the working directory.
// Redaction runs before encryption when both are configured.
func createStore(sc config.StoreConfig) (ports.ReportStore, error) {
	var store ports.ReportStore
	switch sc.Backend {
	case "", config.StoreMemory:
		store = memory.NewStore()
	case config.StoreFile:
		store = file.New(sc.Path)
	case config.StoreRedis:
		store = redis.New(sc.Redis.Addr, sc.Redis.Password, sc.Redis.DB,
			redis.WithPrefix(sc.Redis.Prefix),
			redis.WithTTL(sc.Redis.TTL),
		)
	default:
		return nil, fmt.Errorf("unknown store backend %q", sc.Backend)
	}

	var mws []middleware.Middleware
	if len(sc.Redact) > 0 {
		pii, err := middleware.NewPIIMiddleware(sc.Redact)
		if err != nil {
			return nil, err
		}
		mws = append(mws, pii)
	}
	key, err := sc.Key()
	if err != nil {
		return nil, err
	}
	if key != nil {
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}
	return middleware.Chain(store, mws...), nil
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aretw0/strand"
	httpAdapter "github.com/aretw0/strand/pkg/adapters/http"
	mcpAdapter "github.com/aretw0/strand/pkg/adapters/mcp"
	"github.com/aretw0/strand/pkg/domain"
	"golang.org/x/sync/errgroup"
)

// Serve runs the HTTP API until ctx is cancelled.
func Serve(ctx context.Context, opts RunOptions, port int, stdout io.Writer) error {
	cfg := opts.Resolve()
	logger, err := createLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	if port == 0 {
		port = cfg.HTTPPort
	}

	streams := httpAdapter.NewStreamManager(logger)
	svc, err := createEngine(ctx, opts, cfg, logger, EngineConfig{
		Hooks: []domain.LifecycleHooks{streams.Hooks()},
	})
	if err != nil {
		return err
	}
	defer func() { _ = svc.Shutdown(context.WithoutCancel(ctx)) }()

	handler := httpAdapter.NewHandler(&observedEngine{Engine: svc.Engine, svc: svc},
		httpAdapter.WithStreams(streams),
		httpAdapter.WithGatherer(svc.Registry),
		httpAdapter.WithVersion(strand.Version),
		httpAdapter.WithLogger(logger),
	)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		printSystemMessage(stdout, "Starting strand server on %s", srv.Addr)
		printSystemMessage(stdout, "Serving units from: %s", opts.Dir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown did not complete: %w", err)
		}
		printSystemMessage(stdout, "Server stopped gracefully")
		return nil
	})
	return g.Wait()
}

// ServeMCP runs the MCP server on stdio, or over SSE when port is set.
func ServeMCP(ctx context.Context, opts RunOptions, port int) error {
	cfg := opts.Resolve()
	logger, err := createLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	svc, err := createEngine(ctx, opts, cfg, logger, EngineConfig{})
	if err != nil {
		return err
	}
	defer func() { _ = svc.Shutdown(context.WithoutCancel(ctx)) }()

	server := mcpAdapter.NewServer(&observedEngine{Engine: svc.Engine, svc: svc}, strand.Version, logger)
	if port > 0 {
		return server.ServeSSE(ctx, port)
	}
	return server.ServeStdio()
}

// observedEngine records the outcome of every run in the metrics.
type observedEngine struct {
	*strand.Engine
	svc *Services
}

func (o *observedEngine) RunUnit(ctx context.Context, unit string) (*domain.Report, error) {
	report, err := o.Engine.RunUnit(ctx, unit)
	if report != nil {
		o.svc.Metrics.ObserveRun(report)
	}
	return report, err
}

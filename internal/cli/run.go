package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/aretw0/strand/internal/presentation/tui"
	"github.com/aretw0/strand/pkg/domain"
	"github.com/aretw0/strand/pkg/runner"
)

// Execute runs one unit and prints its output and report.
// The returned error is the run error, to be mapped with ExitCode.
func Execute(ctx context.Context, opts RunOptions, stdout io.Writer) error {
	cfg := opts.Resolve()
	logger, err := createLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	var runnerOpts []runner.Option
	if !opts.JSON && !opts.Quiet {
		runnerOpts = append(runnerOpts, runner.WithOutput(stdout))
	}

	svc, err := createEngine(ctx, opts, cfg, logger, EngineConfig{RunnerOpts: runnerOpts})
	if err != nil {
		return err
	}
	defer func() { _ = svc.Shutdown(context.WithoutCancel(ctx)) }()

	unit := opts.Unit
	if unit == "" {
		units, err := svc.Engine.Units(ctx)
		if err != nil {
			return err
		}
		if unit, err = determineUnit(opts.Dir, units); err != nil {
			return err
		}
	}

	report, runErr := svc.Engine.RunUnit(ctx, unit)
	if report != nil {
		svc.Metrics.ObserveRun(report)
		if err := printReport(stdout, report, opts); err != nil {
			return err
		}
	}
	return runErr
}

// determineUnit picks the unit to run when none was named: "main" if it
// exists, then a unit named like the directory, then the only unit.
func determineUnit(dir string, units []string) (string, error) {
	if slices.Contains(units, "main") {
		return "main", nil
	}
	if abs, err := filepath.Abs(dir); err == nil {
		if base := filepath.Base(abs); slices.Contains(units, base) {
			return base, nil
		}
	}
	if len(units) == 1 {
		return units[0], nil
	}
	return "", fmt.Errorf("%w: no unit named and %d candidates in %s", domain.ErrUnitNotFound, len(units), dir)
}

func printReport(w io.Writer, report *domain.Report, opts RunOptions) error {
	if opts.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	if opts.Quiet {
		return nil
	}
	color := false
	if f, ok := w.(*os.File); ok {
		color = tui.IsTerminal(f)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, tui.RenderReport(report, color))
	return nil
}

// ShowReport prints a stored report, or the list of stored runs when id is empty.
func ShowReport(ctx context.Context, opts RunOptions, id string, stdout io.Writer) error {
	cfg := opts.Resolve()
	store, err := createStore(cfg.Store)
	if err != nil {
		return err
	}
	if id == "" {
		ids, err := store.List(ctx)
		if err != nil {
			return err
		}
		if opts.JSON {
			return json.NewEncoder(stdout).Encode(ids)
		}
		if len(ids) == 0 {
			printSystemMessage(stdout, "No stored runs.")
		}
		for _, id := range ids {
			fmt.Fprintln(stdout, id)
		}
		return nil
	}
	report, err := store.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("report %s: %w", id, err)
	}
	return printReport(stdout, report, opts)
}

// Package process lets units run allow-listed local commands through the
// exec host call.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/strand/pkg/domain"
)

// RequestExec is the host request kind served by Runner.Handle.
const RequestExec domain.RequestKind = "exec"

// ArgPrefix prefixes the environment variables carrying call arguments.
const ArgPrefix = "STRAND_ARG_"

// DefaultGracePeriod is how long a cancelled process gets to exit after the
// interrupt before it is killed.
const DefaultGracePeriod = 5 * time.Second

// Runner executes local processes from an allow-list.
type Runner struct {
	registry map[string]ProcessConfig
	baseDir  string
	grace    time.Duration
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithRegistry populates the allow-list from configuration.
func WithRegistry(procs []ProcessConfig) RunnerOption {
	return func(r *Runner) {
		for _, p := range procs {
			if p.Name != "" {
				r.registry[p.Name] = p
			}
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithGracePeriod overrides DefaultGracePeriod.
func WithGracePeriod(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.grace = d
	}
}

// NewRunner creates a new process runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: make(map[string]ProcessConfig),
		grace:    DefaultGracePeriod,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list.
func (r *Runner) Register(name string, command string, args ...string) {
	r.registry[name] = ProcessConfig{Name: name, Command: command, Args: args}
}

// Names lists the allow-listed process names.
func (r *Runner) Names() []string {
	out := make([]string, 0, len(r.registry))
	for name := range r.registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Handle serves an exec request. The payload names the process under
// "process"; every other argument reaches the process as STRAND_ARG_<KEY>,
// never as a command line flag. Stdout is the reply, decoded when it is JSON.
//
// The call blocks the run until the process exits.
func (r *Runner) Handle(ctx context.Context, req *domain.Request) (any, error) {
	args, _ := req.Payload.(map[string]any)
	name, _ := args["process"].(string)
	if name == "" {
		return nil, errors.New("missing process argument")
	}
	proc, ok := r.registry[name]
	if !ok {
		return nil, fmt.Errorf("process not registered: %s", name)
	}
	return r.run(ctx, proc, args)
}

func (r *Runner) run(ctx context.Context, proc ProcessConfig, args map[string]any) (any, error) {
	cmd := exec.CommandContext(ctx, proc.Command, proc.Args...)
	cmd.Dir = r.baseDir
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = r.grace

	env := cmd.Environ()
	for k, v := range proc.Environment {
		env = append(env, k+"="+v)
	}
	for k, v := range args {
		if k == "process" {
			continue
		}
		env = append(env, ArgPrefix+strings.ToUpper(k)+"="+envValue(v))
	}
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		return nil, fmt.Errorf("%s failed: %w. Stderr: %s", proc.Name, err, strings.TrimSpace(stderr.String()))
	}

	trimmed := strings.TrimSpace(stdout.String())
	if (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) {
		var decoded any
		if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
			return decoded, nil
		}
	}
	return trimmed, nil
}

// envValue renders primitives as text and anything structured as JSON.
func envValue(v any) string {
	switch v.(type) {
	case nil:
		return ""
	case string, int, int64, float64, bool:
		return fmt.Sprintf("%v", v)
	}
	if data, err := json.Marshal(v); err == nil {
		return string(data)
	}
	return fmt.Sprintf("%v", v)
}

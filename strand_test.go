package strand_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/strand"
	"github.com/aretw0/strand/internal/testutils"
	"github.com/aretw0/strand/pkg/adapters/memory"
	"github.com/aretw0/strand/pkg/coro"
	"github.com/aretw0/strand/pkg/domain"
	"github.com/aretw0/strand/pkg/loader"
	"github.com/aretw0/strand/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pingpong = `
name: pingpong
channels: [ping, pong]
fibers:
  main:
    - spawn: {fiber: ponger, as: p}
    - repeat:
        times: 2
        steps:
          - write: {chan: ping, value: hello}
          - read: {chan: pong, into: reply}
          - print: "got ${reply}"
    - kill: p
  ponger:
    - loop:
        - read: {chan: ping, into: msg}
        - write: {chan: pong, value: $msg}
`

func newEngine(t *testing.T, opts ...strand.Option) *strand.Engine {
	t.Helper()
	src := memory.NewSource(map[string]string{"pingpong": pingpong})
	eng, err := strand.New("", append([]strand.Option{strand.WithSource(src)}, opts...)...)
	require.NoError(t, err)
	return eng
}

func TestEngine_RunUnit(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()

	report, err := eng.RunUnit(ctx, "pingpong")
	require.NoError(t, err)

	assert.Equal(t, "pingpong", report.Unit)
	assert.Equal(t, []string{"got hello", "got hello"}, report.Output)
	assert.True(t, report.Roots.Balanced(), "violations: %v", report.Roots.Violations)
	assert.Zero(t, report.Roots.Live, "ponger was killed, nothing stays rooted")

	stored, err := eng.Report(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, report.Output, stored.Output)

	ids, err := eng.Reports(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{report.ID}, ids)
}

func TestEngine_LoamDirectory(t *testing.T) {
	dir, _ := testutils.SetupTestRepo(t)
	testutils.WriteUnits(t, dir, map[string]string{"pingpong.yaml": pingpong})

	eng, err := strand.New(dir)
	require.NoError(t, err)

	units, err := eng.Units(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"pingpong"}, units)

	report, err := eng.RunUnit(context.Background(), "pingpong")
	require.NoError(t, err)
	assert.Len(t, report.Output, 2)
}

func TestEngine_UnknownUnit(t *testing.T) {
	eng := newEngine(t)

	report, err := eng.RunUnit(context.Background(), "missing")
	assert.Nil(t, report)
	assert.ErrorIs(t, err, domain.ErrUnitNotFound)
}

func TestEngine_CompileErrorIsLinkFailure(t *testing.T) {
	src := memory.NewSource(map[string]string{
		"broken": "fibers:\n  main:\n    - spawn: nowhere\n",
	})
	eng, err := strand.New("", strand.WithSource(src))
	require.NoError(t, err)

	_, err = eng.RunUnit(context.Background(), "broken")
	var lf *domain.LinkFailure
	require.ErrorAs(t, err, &lf)
	assert.Equal(t, "compile", lf.Operation)
}

func TestEngine_StaticCoroutineUnit(t *testing.T) {
	ball := domain.NewChannel("ball")
	var got []any

	img := loader.Static("relay",
		func(context.Context) (any, error) { return nil, nil },
		nil,
		func(any) *domain.Fiber {
			return coro.New("main", func(c *coro.Context) {
				c.Spawn("catcher", func(c *coro.Context) {
					got = append(got, c.Read(ball))
				})
				c.Write(ball, 42)
				reply, err := c.Call("greet", "world")
				if err == nil {
					got = append(got, reply)
				}
			})
		},
	)

	eng, err := strand.New("", strand.WithStatic(img))
	require.NoError(t, err)
	eng.Handle("greet", func(_ context.Context, req *domain.Request) (any, error) {
		return "hello " + req.Payload.(string), nil
	})

	report, err := eng.RunUnit(context.Background(), "relay")
	require.NoError(t, err)
	assert.Equal(t, []any{42, "hello world"}, got)
	assert.Equal(t, 1, report.Stats.Rendezvous)
	assert.Equal(t, 1, report.Stats.Delegations)
}

func TestEngine_CustomCollector(t *testing.T) {
	var collectors []*memory.RootSet
	eng := newEngine(t, strand.WithCollector(func() ports.Collector {
		rs := memory.NewRootSet()
		collectors = append(collectors, rs)
		return rs
	}))

	_, err := eng.RunUnit(context.Background(), "pingpong")
	require.NoError(t, err)
	_, err = eng.RunUnit(context.Background(), "pingpong")
	require.NoError(t, err)

	require.Len(t, collectors, 2, "every run gets its own collector")
	assert.Zero(t, collectors[0].Len())
}

func TestEngine_ExtensionCanAbortInit(t *testing.T) {
	boom := errors.New("boom")
	eng := newEngine(t, strand.WithExtension(loader.ExtensionFuncs{
		OnInitialized: func(context.Context, *loader.Instance) error { return boom },
	}))

	_, err := eng.RunUnit(context.Background(), "pingpong")
	assert.ErrorIs(t, err, boom)
}

func TestEngine_HaltIsReported(t *testing.T) {
	src := memory.NewSource(map[string]string{
		"stop": "fibers:\n  main:\n    - print: before\n    - halt: enough\n    - print: after\n",
	})
	eng, err := strand.New("", strand.WithSource(src))
	require.NoError(t, err)

	report, err := eng.RunUnit(context.Background(), "stop")
	var halt *domain.Halt
	require.ErrorAs(t, err, &halt)
	assert.Equal(t, "enough", halt.Reason)
	require.NotNil(t, report)
	assert.Equal(t, []string{"before"}, report.Output)
	assert.NotEmpty(t, report.Error)
}

func TestEngine_DirSourcePipeline(t *testing.T) {
	eng, err := strand.New("", strand.WithDirSource("examples/units"))
	require.NoError(t, err)

	report, err := eng.RunUnit(context.Background(), "pipeline")
	require.NoError(t, err)

	require.Len(t, report.Output, 5)
	assert.Equal(t, "pipeline starting", report.Output[0])
	assert.Contains(t, report.Output, "producer done")
	consumed := 0
	for _, line := range report.Output {
		if strings.HasPrefix(line, "consumed hello at ") {
			consumed++
		}
	}
	assert.Equal(t, 3, consumed)
	assert.True(t, report.Roots.Balanced(), "violations: %v", report.Roots.Violations)
	assert.Equal(t, 1, report.Roots.Live, "the stage loops forever, parked on raw")
}

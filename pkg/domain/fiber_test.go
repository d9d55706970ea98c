package domain_test

import (
	"context"
	"testing"

	"github.com/aretw0/strand/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted replays a fixed list of requests.
type scripted struct {
	reqs    []*domain.Request
	stopped int
}

func (s *scripted) Resume(*domain.Fiber) *domain.Request {
	if len(s.reqs) == 0 {
		return nil
	}
	r := s.reqs[0]
	s.reqs = s.reqs[1:]
	return r
}

func (s *scripted) Stop() { s.stopped++ }

func TestFiber_StepUntilDone(t *testing.T) {
	cc := &scripted{reqs: []*domain.Request{domain.Yield(), domain.Yield()}}
	f := domain.NewFiber("worker", cc)
	require.NotEmpty(t, f.ID)

	assert.Equal(t, domain.RequestYield, f.Step().Kind)
	assert.NotNil(t, f.Pending())
	assert.Equal(t, domain.RequestYield, f.Step().Kind)
	assert.Nil(t, f.Step())
	assert.True(t, f.Dead())
	assert.Nil(t, f.Pending())
	assert.Nil(t, f.Step(), "a dead fiber stays dead")
	assert.Equal(t, 0, cc.stopped, "natural termination does not stop the continuation")
}

func TestFiber_KillIsIdempotent(t *testing.T) {
	cc := &scripted{reqs: []*domain.Request{domain.Yield()}}
	f := domain.NewFiber("victim", cc)

	f.Kill()
	f.Kill()

	assert.True(t, f.Dead())
	assert.Equal(t, 1, cc.stopped)
	assert.Nil(t, f.Step())
}

func TestRequest_Builtin(t *testing.T) {
	assert.True(t, domain.Yield().Builtin())
	assert.True(t, domain.Read(nil, &domain.Slot{}).Builtin())
	assert.False(t, domain.Host(domain.RequestPrint, "hi").Builtin())
	assert.NotNil(t, domain.Host("custom", nil).Slot)
}

func TestChain_CallsEveryHook(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{OnKill: func(context.Context, *domain.FiberEvent) { calls = append(calls, "a") }}
	b := domain.LifecycleHooks{OnKill: func(context.Context, *domain.FiberEvent) { calls = append(calls, "b") }}

	merged := domain.Chain(a, domain.LifecycleHooks{}, b)
	require.NotNil(t, merged.OnKill)
	assert.Nil(t, merged.OnBlock)
	merged.OnKill(context.Background(), &domain.FiberEvent{})
	assert.Equal(t, []string{"a", "b"}, calls)
}

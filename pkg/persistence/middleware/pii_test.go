package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/strand/pkg/adapters/memory"
	"github.com/aretw0/strand/pkg/domain"
	"github.com/aretw0/strand/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIMiddleware_MasksOutputAndError(t *testing.T) {
	underlying := memory.NewStore()
	mw, err := middleware.NewPIIMiddleware([]string{`token=\S+`, `\d{3}-\d{2}-\d{4}`})
	require.NoError(t, err)
	store := mw(underlying)
	ctx := context.Background()

	report := &domain.Report{
		ID:     "pii",
		Unit:   "login",
		Output: []string{"auth token=abc123 ok", "ssn 123-45-6789"},
		Error:  "halt: bad token=zzz",
	}
	require.NoError(t, store.Save(ctx, report))

	stored, err := underlying.Load(ctx, "pii")
	require.NoError(t, err)
	assert.Equal(t, []string{"auth *** ok", "ssn ***"}, stored.Output)
	assert.Equal(t, "halt: bad ***", stored.Error)

	assert.Equal(t, "auth token=abc123 ok", report.Output[0], "caller's report is not modified")
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewPIIMiddleware([]string{"("})
	assert.Error(t, err)
}

func TestChain_OrderAndRoundtrip(t *testing.T) {
	underlying := memory.NewStore()
	pii, err := middleware.NewPIIMiddleware([]string{"secret"})
	require.NoError(t, err)
	enc := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	store := middleware.Chain(underlying, pii, enc)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &domain.Report{ID: "c", Output: []string{"a secret"}}))
	loaded, err := store.Load(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, []string{"a ***"}, loaded.Output)
}

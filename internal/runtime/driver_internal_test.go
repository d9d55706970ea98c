package runtime

import (
	"context"
	"testing"

	"github.com/aretw0/strand/pkg/adapters/memory"
	"github.com/aretw0/strand/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func corruptionOf(t *testing.T, fn func()) *domain.CorruptionError {
	t.Helper()
	var recovered any
	func() {
		defer func() { recovered = recover() }()
		fn()
	}()
	require.NotNil(t, recovered, "expected a panic")
	err, ok := recovered.(*domain.CorruptionError)
	require.True(t, ok, "panic value %T is not a corruption error", recovered)
	return err
}

func TestDrive_UnknownPositionPanics(t *testing.T) {
	d := NewDriver(memory.NewRootSet())
	d.pos = domain.Position(42)

	err := corruptionOf(t, func() { d.Drive(context.Background()) })
	assert.Equal(t, domain.Position(42), err.Position)
	assert.Contains(t, err.Error(), "illegal position")
	assert.False(t, d.driving, "guard is released after the panic")
}

func TestDrive_ResumeWithoutFiberPanics(t *testing.T) {
	d := NewDriver(memory.NewRootSet())
	d.pos = domain.PosNextRequest

	err := corruptionOf(t, func() { d.Drive(context.Background()) })
	assert.Equal(t, domain.PosNextRequest, err.Position)
}

package session

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/keyreply-go/internal/domain/ports"
)

var _ ports.Resetter = (*Restarter)(nil)

func TestNewID_IsUUID(t *testing.T) {
	a, b := NewID(), NewID()
	_, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestRestarter_RunsHooksInOrder(t *testing.T) {
	var calls []string
	r := NewRestarter(func(ctx context.Context, id string) error {
		calls = append(calls, "first:"+id)
		return nil
	})
	r.OnReset(func(ctx context.Context, id string) error {
		calls = append(calls, "second:"+id)
		return nil
	})
	r.newID = func() string { return "s-2" }

	id, err := r.Reset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "s-2", id)
	assert.Equal(t, []string{"first:s-2", "second:s-2"}, calls)
}

func TestRestarter_HookErrorDoesNotStopOthers(t *testing.T) {
	boom := errors.New("boom")
	ran := false
	r := NewRestarter(
		func(context.Context, string) error { return boom },
		func(context.Context, string) error { ran = true; return nil },
	)

	id, err := r.Reset(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.NotEmpty(t, id)
	assert.True(t, ran)
}

func TestRestarter_NoHooks(t *testing.T) {
	id, err := NewRestarter().Reset(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

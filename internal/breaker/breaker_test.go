package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func failing(context.Context) error { return errBoom }
func succeeding(context.Context) error { return nil }

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cb := New("test", 3, 1, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, failing), errBoom)
		assert.Equal(t, StateClosed, cb.State())
	}

	assert.ErrorIs(t, cb.Execute(ctx, failing), errBoom)
	assert.Equal(t, StateOpen, cb.State())
}

func TestBreakerFailsFastWhileOpen(t *testing.T) {
	cb := New("test", 1, 1, time.Minute)
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failing))
	require.Equal(t, StateOpen, cb.State())

	calls := 0
	err := cb.Execute(ctx, func(context.Context) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, ErrOpen)
	assert.Zero(t, calls, "open breaker must not invoke the action")
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := New("test", 1, 2, 10*time.Millisecond)
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failing))
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)

	// First probe moves to half-open and succeeds.
	require.NoError(t, cb.Execute(ctx, succeeding))
	assert.Equal(t, StateHalfOpen, cb.State())

	// Second success closes.
	require.NoError(t, cb.Execute(ctx, succeeding))
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	cb := New("test", 1, 2, 10*time.Millisecond)
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failing))
	time.Sleep(20 * time.Millisecond)

	// The probe itself fails: straight back to open.
	require.Error(t, cb.Execute(ctx, failing))
	assert.Equal(t, StateOpen, cb.State())
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := New("test", 2, 1, time.Minute)
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failing))
	require.NoError(t, cb.Execute(ctx, succeeding))
	require.Error(t, cb.Execute(ctx, failing))
	assert.Equal(t, StateClosed, cb.State(), "non-consecutive failures must not open the breaker")
}

func TestBreakerTransitionCallback(t *testing.T) {
	type transition struct{ from, to State }
	var seen []transition

	cb := New("test", 1, 1, 10*time.Millisecond, WithTransitionFunc(func(name string, from, to State) {
		assert.Equal(t, "test", name)
		seen = append(seen, transition{from, to})
	}))
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failing))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, cb.Execute(ctx, succeeding))

	require.Len(t, seen, 3)
	assert.Equal(t, transition{StateClosed, StateOpen}, seen[0])
	assert.Equal(t, transition{StateOpen, StateHalfOpen}, seen[1])
	assert.Equal(t, transition{StateHalfOpen, StateClosed}, seen[2])
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "CLOSED", StateClosed.String())
	assert.Equal(t, "OPEN", StateOpen.String())
	assert.Equal(t, "HALF_OPEN", StateHalfOpen.String())
}

package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(threshold int, reset time.Duration) (*CircuitBreaker, *time.Time) {
	now := time.Now()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: threshold,
		ResetTimeout:     reset,
	})
	cb.nowFunc = func() time.Time { return now }
	return cb, &now
}

func failCall(ctx context.Context, cb *CircuitBreaker) error {
	_, err := ExecuteVal(ctx, cb, func(context.Context) (int, error) {
		return 0, errors.New("boom")
	})
	return err
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	t.Parallel()

	cb, _ := newTestBreaker(2, time.Minute)
	ctx := context.Background()

	require.Error(t, failCall(ctx, cb))
	assert.Equal(t, CircuitClosed, cb.State())

	require.Error(t, failCall(ctx, cb))
	assert.Equal(t, CircuitOpen, cb.State())

	calls := 0
	_, err := ExecuteVal(ctx, cb, func(context.Context) (int, error) {
		calls++
		return 1, nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Zero(t, calls, "open circuit must not invoke the call")
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	t.Parallel()

	cb, _ := newTestBreaker(2, time.Minute)
	ctx := context.Background()

	require.Error(t, failCall(ctx, cb))
	_, err := ExecuteVal(ctx, cb, func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)

	// The earlier failure no longer counts.
	require.Error(t, failCall(ctx, cb))
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestBreakerProbeAfterResetTimeout(t *testing.T) {
	t.Parallel()

	cb, now := newTestBreaker(1, time.Minute)
	ctx := context.Background()

	require.Error(t, failCall(ctx, cb))
	assert.Equal(t, CircuitOpen, cb.State())

	*now = now.Add(2 * time.Minute)
	assert.Equal(t, CircuitHalfOpen, cb.State())

	got, err := ExecuteVal(ctx, cb, func(context.Context) (string, error) {
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", got)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	t.Parallel()

	cb, now := newTestBreaker(1, time.Minute)
	ctx := context.Background()

	require.Error(t, failCall(ctx, cb))
	*now = now.Add(2 * time.Minute)

	require.Error(t, failCall(ctx, cb))
	assert.Equal(t, CircuitOpen, cb.State())

	_, err := ExecuteVal(ctx, cb, func(context.Context) (int, error) { return 1, nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreakerShouldTripFilter(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
		ShouldTrip:       IsTransient,
	})
	ctx := context.Background()

	// A permanent error passes through without tripping the breaker.
	_, err := ExecuteVal(ctx, cb, func(context.Context) (int, error) {
		return 0, errors.New("not found")
	})
	require.Error(t, err)
	assert.Equal(t, CircuitClosed, cb.State())

	_, err = ExecuteVal(ctx, cb, func(context.Context) (int, error) {
		return 0, NewTransientError(errors.New("503"), 503)
	})
	require.Error(t, err)
	assert.Equal(t, CircuitOpen, cb.State())
}

func TestBreakerStateChangeCallback(t *testing.T) {
	t.Parallel()

	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
		OnStateChange: func(from, to CircuitState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	now := time.Now()
	cb.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	require.Error(t, failCall(ctx, cb))
	now = now.Add(2 * time.Minute)
	_, err := ExecuteVal(ctx, cb, func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestCircuitStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "closed", CircuitClosed.String())
	assert.Equal(t, "open", CircuitOpen.String())
	assert.Equal(t, "half-open", CircuitHalfOpen.String())
	assert.Equal(t, "unknown", CircuitState(99).String())
}

package resilience

import (
	"errors"
	"io"
	"testing"
	"time"

	"ai-companion-chat/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", JSON: false, Output: io.Discard})
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(Config{
		Name:             "textgen",
		FailureThreshold: 3,
		SuccessThreshold: 1,
		RetryTimeout:     time.Minute,
	}, testLogger())

	failing := func() error { return errors.New("provider overloaded") }

	for i := 0; i < 3; i++ {
		require.Error(t, cb.Execute(failing))
	}
	assert.Equal(t, StateOpen, cb.GetState())

	// Further calls are short-circuited without invoking fn
	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_RecoversThroughHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker(Config{
		Name:             "textgen",
		FailureThreshold: 1,
		SuccessThreshold: 2,
		RetryTimeout:     time.Millisecond,
	}, testLogger())

	require.Error(t, cb.Execute(func() error { return errors.New("boom") }))
	require.Equal(t, StateOpen, cb.GetState())

	time.Sleep(5 * time.Millisecond)

	// Two successes in half-open close the circuit
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateHalfOpen, cb.GetState())
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_FailureInHalfOpenReopens(t *testing.T) {
	cb := NewCircuitBreaker(Config{
		Name:             "textgen",
		FailureThreshold: 1,
		SuccessThreshold: 2,
		RetryTimeout:     time.Millisecond,
	}, testLogger())

	require.Error(t, cb.Execute(func() error { return errors.New("boom") }))
	time.Sleep(5 * time.Millisecond)

	require.Error(t, cb.Execute(func() error { return errors.New("still down") }))
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreaker_ClosedPassesThrough(t *testing.T) {
	cb := NewCircuitBreaker(DefaultConfig("textgen"), testLogger())

	err := cb.Execute(func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.GetState())

	metrics := cb.GetMetrics()
	assert.Equal(t, uint64(1), metrics["total_requests"])
	assert.Equal(t, uint64(1), metrics["total_successes"])
}

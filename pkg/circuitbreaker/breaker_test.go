package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func failTimes(b *Breaker, n int) {
	for i := 0; i < n; i++ {
		b.Execute(context.Background(), func() error { return errBoom })
	}
}

func TestTripsAfterConsecutiveFailures(t *testing.T) {
	b := New("test", Config{FailureThreshold: 3, Cooldown: time.Minute})

	failTimes(b, 2)
	assert.Equal(t, StateClosed, b.State())

	failTimes(b, 1)
	assert.Equal(t, StateOpen, b.State())

	err := b.Execute(context.Background(), func() error { return nil })
	assert.ErrorIs(t, err, ErrOpen)
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b := New("test", Config{FailureThreshold: 3, Cooldown: time.Minute})

	failTimes(b, 2)
	require.NoError(t, b.Execute(context.Background(), func() error { return nil }))
	failTimes(b, 2)

	assert.Equal(t, StateClosed, b.State())
}

func TestHalfOpenProbeClosesOnSuccess(t *testing.T) {
	b := New("test", Config{FailureThreshold: 1, Cooldown: time.Millisecond, Probes: 1})

	failTimes(b, 1)
	require.Equal(t, StateOpen, b.State())

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, b.Execute(context.Background(), func() error { return nil }))
	assert.Equal(t, StateClosed, b.State())
}

func TestHalfOpenProbeReopensOnFailure(t *testing.T) {
	b := New("test", Config{FailureThreshold: 1, Cooldown: 200 * time.Millisecond, Probes: 1})

	failTimes(b, 1)
	time.Sleep(250 * time.Millisecond)
	failTimes(b, 1)

	// The failed probe restarts the cooldown, so the next call is shed.
	assert.Equal(t, StateOpen, b.State())
	err := b.Execute(context.Background(), func() error { return nil })
	assert.ErrorIs(t, err, ErrOpen)
}

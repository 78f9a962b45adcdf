package worker

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacer_DisabledReturnsImmediately(t *testing.T) {
	pacer := NewPacer(false, time.Minute, 85*time.Second, nil)

	start := time.Now()
	require.NoError(t, pacer.Wait(context.Background()))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestPacer_FirstWaitUsesBurstToken(t *testing.T) {
	pacer := NewPacer(true, 50*time.Millisecond, 100*time.Millisecond, rand.New(rand.NewSource(1)))

	start := time.Now()
	require.NoError(t, pacer.Wait(context.Background()))
	// First wait skips the limiter floor and only pays jitter.
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestPacer_EnforcesMinimumSpacing(t *testing.T) {
	pacer := NewPacer(true, 80*time.Millisecond, 120*time.Millisecond, rand.New(rand.NewSource(1)))

	require.NoError(t, pacer.Wait(context.Background()))
	start := time.Now()
	require.NoError(t, pacer.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestPacer_CancelledContext(t *testing.T) {
	pacer := NewPacer(true, time.Minute, 85*time.Second, nil)
	require.NoError(t, pacer.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := pacer.Wait(ctx)
	assert.Error(t, err)
}

func TestPacer_DefaultsWindow(t *testing.T) {
	pacer := NewPacer(true, 0, 0, nil)
	assert.Equal(t, 60*time.Second, pacer.min)
	assert.Equal(t, 85*time.Second, pacer.max)
}

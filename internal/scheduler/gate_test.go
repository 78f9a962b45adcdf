package scheduler

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGate_SingleSlot(t *testing.T) {
	gate := NewGate()

	assert.False(t, gate.Held())
	assert.True(t, gate.TryAcquire())
	assert.True(t, gate.Held())
	assert.False(t, gate.TryAcquire(), "second acquire must fail while held")

	gate.Release()
	assert.False(t, gate.Held())
	assert.True(t, gate.TryAcquire())
}

func TestGate_ConcurrentAcquireExactlyOneWinner(t *testing.T) {
	gate := NewGate()
	var winners int64
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if gate.TryAcquire() {
				atomic.AddInt64(&winners, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), winners)
}

func TestGate_ReleaseWhenNotHeld(t *testing.T) {
	gate := NewGate()
	gate.Release()
	assert.True(t, gate.TryAcquire())
}

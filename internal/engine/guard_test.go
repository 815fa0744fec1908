package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStopGuard_AcquireRelease(t *testing.T) {
	g := NewStopGuard()

	assert.True(t, g.Acquire("s1"))
	assert.True(t, g.InFlight("s1"))
	assert.False(t, g.Acquire("s1"), "second acquire while in flight must fail")
	assert.True(t, g.Acquire("s2"), "other subjects are independent")
	assert.Equal(t, 2, g.Size())

	g.Release("s1")
	assert.False(t, g.InFlight("s1"))
	assert.True(t, g.Acquire("s1"), "acquire succeeds again after release")
}

func TestStopGuard_ReleaseUnknownIsNoop(t *testing.T) {
	g := NewStopGuard()
	g.Release("missing")
	assert.Equal(t, 0, g.Size())
}

func TestStopGuard_ConcurrentAcquireOneWinner(t *testing.T) {
	g := NewStopGuard()
	const goroutines = 100

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Acquire("s1") {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}

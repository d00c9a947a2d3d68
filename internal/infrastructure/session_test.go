package infrastructure

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLockerSerialisesSameSession(t *testing.T) {
	locker := NewSessionLocker()

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locker.Lock("s1")
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, locker.Active())
}

func TestSessionLockerIndependentSessions(t *testing.T) {
	locker := NewSessionLocker()
	unlockA := locker.Lock("a")

	done := make(chan struct{})
	go func() {
		unlockB := locker.Lock("b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked behind a")
	}
	assert.Equal(t, 1, locker.Active())
	unlockA()
	unlockA()
	assert.Equal(t, 0, locker.Active())
}

func TestKeyedLimiter(t *testing.T) {
	kl := NewKeyedLimiter(1, 2, time.Minute)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	kl.now = func() time.Time { return clock }

	assert.True(t, kl.Allow("a"))
	assert.True(t, kl.Allow("a"))
	assert.False(t, kl.Allow("a"))
	assert.True(t, kl.Allow("b"), "keys are independent")

	clock = clock.Add(time.Second)
	assert.True(t, kl.Allow("a"))

	clock = clock.Add(2 * time.Minute)
	kl.limiters["b"].lastSeen = clock.Add(-2 * time.Minute)
	kl.limiters["a"].lastSeen = clock
	require.Equal(t, 1, kl.Sweep())
	stats := kl.GetStats()
	assert.Equal(t, 1, stats["active_keys"])
	assert.Equal(t, float64(1), stats["rate"])
	assert.Equal(t, 2, stats["burst"])
}

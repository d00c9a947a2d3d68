package infrastructure

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyedLimiter keeps one token bucket per key (operator id, DM sender).
type KeyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*keyedEntry
	rate     rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

type keyedEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewKeyedLimiter allows perSecond events per key with the given burst.
// Buckets unused for idle are discarded by Sweep.
func NewKeyedLimiter(perSecond float64, burst int, idle time.Duration) *KeyedLimiter {
	return &KeyedLimiter{
		limiters: make(map[string]*keyedEntry),
		rate:     rate.Limit(perSecond),
		burst:    burst,
		idle:     idle,
		now:      time.Now,
	}
}

// Allow consumes one token for key if available.
func (kl *KeyedLimiter) Allow(key string) bool {
	kl.mu.Lock()
	now := kl.now()
	entry, exists := kl.limiters[key]
	if !exists {
		entry = &keyedEntry{limiter: rate.NewLimiter(kl.rate, kl.burst)}
		kl.limiters[key] = entry
	}
	entry.lastSeen = now
	kl.mu.Unlock()

	return entry.limiter.AllowN(now, 1)
}

// Sweep removes buckets idle longer than the configured window and reports how many remain.
func (kl *KeyedLimiter) Sweep() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	now := kl.now()
	for key, entry := range kl.limiters {
		if now.Sub(entry.lastSeen) > kl.idle {
			delete(kl.limiters, key)
		}
	}
	return len(kl.limiters)
}

// RunCleanup sweeps every tick until stop is closed.
func (kl *KeyedLimiter) RunCleanup(tick time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			kl.Sweep()
		case <-stop:
			return
		}
	}
}

// GetStats reports live bucket count and the configured limit.
func (kl *KeyedLimiter) GetStats() map[string]interface{} {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return map[string]interface{}{
		"active_keys": len(kl.limiters),
		"rate":        float64(kl.rate),
		"burst":       kl.burst,
	}
}

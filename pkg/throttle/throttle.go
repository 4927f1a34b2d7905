// Package throttle provides per-key token buckets built on golang.org/x/time/rate.
package throttle

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config defines how many events a single key may spend per window.
type Config struct {
	// Events is the number of events refilled per Window.
	Events int
	// Window is the refill period for Events.
	Window time.Duration
	// Burst is the bucket size. Defaults to Events.
	Burst int
}

// Limit converts the config into a rate.Limit.
func (c Config) Limit() rate.Limit {
	if c.Events <= 0 || c.Window <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(c.Events) / c.Window.Seconds())
}

func (c Config) burst() int {
	if c.Burst > 0 {
		return c.Burst
	}
	if c.Events > 0 {
		return c.Events
	}
	return 1
}

// KeyedLimiter hands out one rate.Limiter per key and forgets idle ones.
type KeyedLimiter struct {
	cfg      Config
	limiters sync.Map // map[string]*rate.Limiter

	mu          sync.Mutex
	lastCleanup time.Time
	cleanupTick time.Duration
}

// New returns a KeyedLimiter for cfg.
func New(cfg Config) *KeyedLimiter {
	return &KeyedLimiter{
		cfg:         cfg,
		lastCleanup: time.Now(),
		cleanupTick: 5 * time.Minute,
	}
}

// Allow spends one token for key and reports whether it was available.
func (kl *KeyedLimiter) Allow(key string) bool {
	return kl.limiter(key).Allow()
}

// RetryAfter reports how long key has to wait for its next token, without
// spending it.
func (kl *KeyedLimiter) RetryAfter(key string) time.Duration {
	r := kl.limiter(key).Reserve()
	defer r.Cancel()
	return r.Delay()
}

func (kl *KeyedLimiter) limiter(key string) *rate.Limiter {
	if l, ok := kl.limiters.Load(key); ok {
		return l.(*rate.Limiter)
	}

	l := rate.NewLimiter(kl.cfg.Limit(), kl.cfg.burst())
	actual, _ := kl.limiters.LoadOrStore(key, l)

	kl.maybeCleanup()

	return actual.(*rate.Limiter)
}

// maybeCleanup drops limiters whose buckets are full again, i.e. keys that
// have been idle for at least a full refill.
func (kl *KeyedLimiter) maybeCleanup() {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	if time.Since(kl.lastCleanup) < kl.cleanupTick {
		return
	}
	kl.lastCleanup = time.Now()

	burst := float64(kl.cfg.burst())
	kl.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= burst {
			kl.limiters.Delete(key)
		}
		return true
	})
}

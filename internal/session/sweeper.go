// ABOUTME: Background expiration sweeper for the session cache
// ABOUTME: Evicts sessions whose per-kind TTL has elapsed since last activity

package session

import (
	"context"
	"time"
)

// Run drives the sweeper until ctx is cancelled. The period is fixed at
// construction and independent of any individual session's TTL; an in-flight
// login never pauses it.
func (c *Cache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.sweepEvery)
	defer ticker.Stop()

	c.logger.Info("sweeper started", "period", c.sweepEvery)
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Sweep evicts every session whose expiry instant (UpdatedAt plus the TTL
// for its kind) has passed, and returns the eviction count. It never resets
// or extends a TTL; running it twice back-to-back leaves the same state as
// running it once.
func (c *Cache) Sweep() int {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for sid, s := range c.sessions {
		if now.After(s.UpdatedAt.Add(c.ttls.For(s.Kind))) {
			delete(c.sessions, sid)
			evicted++
			c.logger.Debug("session expired",
				"name", s.Name,
				"kind", s.Kind,
				"lifetime", now.Sub(s.CreatedAt),
			)
		}
	}
	return evicted
}

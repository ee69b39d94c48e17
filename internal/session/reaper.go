package session

import (
	"context"
	"time"
)

// StartReaper sweeps idle sessions every interval until ctx is done. The
// returned channel is closed once the sweeping goroutine has exited.
func (m *Manager) StartReaper(ctx context.Context, interval, ttl time.Duration) <-chan struct{} {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if interval <= 0 {
		interval = time.Hour
	}
	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		m.logger.Info("session reaper started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				if n := m.Reap(ttl); n > 0 {
					m.logger.Info("session reaper sweep", "removed", n, "remaining", m.Len())
				}
			case <-ctx.Done():
				m.logger.Info("session reaper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
	return done
}

package session

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Purger is implemented by stores that can drop expired sessions in bulk.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// StartPurge evicts expired sessions every interval until ctx is cancelled.
// The returned function blocks until the purge goroutine has exited.
func StartPurge(ctx context.Context, p Purger, interval time.Duration, log logrus.FieldLogger) (wait func()) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				n, err := p.PurgeExpired(ctx, now)
				if err != nil {
					log.WithError(err).Warn("session purge failed")
					continue
				}
				if n > 0 {
					log.WithField("purged", n).Debug("purged expired sessions")
				}
			}
		}
	}()
	return wg.Wait
}

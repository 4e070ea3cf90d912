package storage

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
)

// Probe reports whether a dependency answers.
type Probe func(ctx context.Context) error

// WaitReady polls probe every interval until it succeeds stable times in a row or
// ctx is done. It returns the context error together with the last probe failure.
func WaitReady(ctx context.Context, probe Probe, interval time.Duration, stable int) error {
	if stable < 1 {
		stable = 1
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	successes := 0
	for {
		if err := probe(ctx); err != nil {
			lastErr = err
			successes = 0
			log.WithError(err).Debug("store not ready")
		} else {
			successes++
			if successes >= stable {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			if lastErr != nil {
				return errors.Join(ctx.Err(), lastErr)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

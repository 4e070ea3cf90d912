package domain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	log "github.com/sirupsen/logrus"
)

// RetryPolicy bounds the backoff applied to a single view write that failed with
// ErrStoreUnavailable. Other failures are never retried.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsed      time.Duration
	MaxTries        uint
}

// DefaultRetryPolicy is used for zero fields of a RetryPolicy.
var DefaultRetryPolicy = RetryPolicy{
	InitialInterval: 200 * time.Millisecond,
	MaxInterval:     5 * time.Second,
	MaxElapsed:      30 * time.Second,
	MaxTries:        8,
}

// Ingestor projects events and writes every view record.
type Ingestor struct {
	projector     Projector
	byCorrelation *EventsByCorrelationIDRepository
	byReference   *EventsByReferenceRepository
	retry         RetryPolicy
}

func NewIngestor(projector Projector, store RowStore, retry RetryPolicy) *Ingestor {
	if retry.InitialInterval <= 0 {
		retry.InitialInterval = DefaultRetryPolicy.InitialInterval
	}
	if retry.MaxInterval <= 0 {
		retry.MaxInterval = DefaultRetryPolicy.MaxInterval
	}
	if retry.MaxElapsed <= 0 {
		retry.MaxElapsed = DefaultRetryPolicy.MaxElapsed
	}
	if retry.MaxTries == 0 {
		retry.MaxTries = DefaultRetryPolicy.MaxTries
	}
	return &Ingestor{
		projector:     projector,
		byCorrelation: NewEventsByCorrelationIDRepository(store),
		byReference:   NewEventsByReferenceRepository(store),
		retry:         retry,
	}
}

// Ingest projects ev and writes both views concurrently. An invalid event makes
// no store call. A failed view write is reported as *ViewWriteError and does not
// undo the other view.
func (i *Ingestor) Ingest(ctx context.Context, ev *Event) (Projection, error) {
	return i.Redrive(ctx, ev)
}

// Redrive projects ev and rewrites only the named views, or all views when none are named.
func (i *Ingestor) Redrive(ctx context.Context, ev *Event, views ...string) (Projection, error) {
	if len(views) == 0 {
		views = Views
	}
	for _, view := range views {
		if view != ViewByCorrelationID && view != ViewByReference {
			return Projection{}, fmt.Errorf("unknown view %q", view)
		}
	}
	p, err := i.projector.Project(ev)
	if err != nil {
		return Projection{}, err
	}
	return p, i.write(ctx, p, views)
}

func (i *Ingestor) write(ctx context.Context, p Projection, views []string) error {
	writes := map[string]func(context.Context) error{
		ViewByCorrelationID: func(ctx context.Context) error { return i.byCorrelation.Save(ctx, p.ByCorrelationID) },
		ViewByReference:     func(ctx context.Context) error { return i.byReference.Save(ctx, p.ByReference) },
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		failed = map[string]error{}
	)
	for _, view := range views {
		write := writes[view]
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := i.withRetry(ctx, view, write); err != nil {
				mu.Lock()
				failed[view] = err
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(failed) > 0 {
		return &ViewWriteError{Failed: failed}
	}
	return nil
}

func (i *Ingestor) withRetry(ctx context.Context, view string, write func(context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = i.retry.InitialInterval
	b.MaxInterval = i.retry.MaxInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := write(ctx)
		if err != nil && !errors.Is(err, ErrStoreUnavailable) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(i.retry.MaxElapsed),
		backoff.WithMaxTries(i.retry.MaxTries),
		backoff.WithNotify(func(err error, d time.Duration) {
			log.WithFields(log.Fields{"view": view, "retry_in": d}).WithError(err).Warn("view write failed, retrying")
		}),
	)
	return err
}

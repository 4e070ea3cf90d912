package main

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"activity-events/storage"
)

type messageQueue interface {
	Dequeue(ctx context.Context, visibility time.Duration) (*storage.Message, error)
	Delete(ctx context.Context, msg *storage.Message) error
}

type consumer struct {
	queue        messageQueue
	processor    *processor
	pollInterval time.Duration
	visibility   time.Duration
}

// run drains the queue until ctx is done. It returns an error only when a
// message demands the consumer halt.
func (c *consumer) run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		msg, err := c.queue.Dequeue(ctx, c.visibility)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.WithError(err).Error("receive")
			c.sleep(ctx)
			continue
		}
		if msg == nil {
			c.sleep(ctx)
			continue
		}
		if err := c.handle(ctx, msg); err != nil {
			return err
		}
	}
}

func (c *consumer) handle(ctx context.Context, msg *storage.Message) error {
	entry := log.WithFields(log.Fields{
		"messageId":    msg.ID,
		"dequeueCount": msg.DequeueCount,
	})
	d, err := c.processor.process(ctx, msg.Text)
	switch d {
	case dispositionDelete:
		if err != nil {
			entry.WithError(err).Warn("dropping message")
		} else {
			entry.Debug("event ingested")
		}
		if err := c.queue.Delete(ctx, msg); err != nil {
			entry.WithError(err).Error("delete message")
		}
	case dispositionRetain:
		entry.WithError(err).Warn("ingest failed, message left for redelivery")
	case dispositionHalt:
		entry.WithError(err).Error("view schema mismatch")
		return fmt.Errorf("message %s: %w", msg.ID, err)
	}
	return nil
}

func (c *consumer) sleep(ctx context.Context) {
	t := time.NewTimer(c.pollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

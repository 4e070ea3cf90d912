package main

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"activity-events/domain"
)

const (
	tracerName     = "activity-events/event-ingester"
	ingestSpanName = "ingest.event"
)

// disposition is what the consumer does with a message once processed.
type disposition int

const (
	// dispositionDelete removes the message: it was ingested or can never be.
	dispositionDelete disposition = iota
	// dispositionRetain leaves the message for redelivery.
	dispositionRetain
	// dispositionHalt stops the consumer.
	dispositionHalt
)

func (d disposition) String() string {
	switch d {
	case dispositionDelete:
		return "delete"
	case dispositionRetain:
		return "retain"
	case dispositionHalt:
		return "halt"
	}
	return "unknown"
}

type eventIngestor interface {
	Ingest(ctx context.Context, ev *domain.Event) (domain.Projection, error)
}

type processor struct {
	ingestor eventIngestor
	loc      *time.Location
	rc       *redis.Client
	channel  string
}

func (p *processor) tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

func (p *processor) process(ctx context.Context, text string) (disposition, error) {
	ctx, span := p.tracer().Start(ctx, ingestSpanName)
	defer span.End()

	ev, err := domain.DecodeEvent([]byte(text), p.loc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode")
		return dispositionDelete, err
	}
	span.SetAttributes(
		attribute.String("activity.correlation_id", ev.CorrelationID),
		attribute.String("activity.reference", ev.Reference),
	)

	proj, err := p.ingestor.Ingest(ctx, ev)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ingest")
		return dispositionFor(err), err
	}
	span.SetAttributes(attribute.Int("activity.year", proj.ByReference.PrimaryKey.Year))
	span.SetStatus(codes.Ok, "")

	p.publish(ctx, ev, proj)
	return dispositionDelete, nil
}

// dispositionFor maps an ingest failure onto the message's fate.
func dispositionFor(err error) disposition {
	switch {
	case errors.Is(err, domain.ErrInvalidEvent), errors.Is(err, domain.ErrDeserialization):
		return dispositionDelete
	case errors.Is(err, domain.ErrSchemaMismatch):
		return dispositionHalt
	default:
		return dispositionRetain
	}
}

func (p *processor) publish(ctx context.Context, ev *domain.Event, proj domain.Projection) {
	if p.rc == nil || p.channel == "" {
		return
	}
	payload, err := domain.NewNotification(proj).Encode()
	if err != nil {
		log.WithError(err).Error("encode notification")
		return
	}
	if err := p.rc.Publish(ctx, p.channel, payload).Err(); err != nil {
		log.WithError(err).Errorf("Unable to publish event %s to %s", ev.ID, p.channel)
	}
}

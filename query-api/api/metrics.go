package api

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName             = "activity-events/query-api"
	observabilityEventName = "observability.event"
	queryEventDomain       = "activity-events.query"
	queryAttrPrefix        = "activity.query."
)

// requestMetrics times one query request and reports it as a span plus an
// observability.event log entry.
type requestMetrics struct {
	logger          *log.Logger
	span            trace.Span
	route           string
	name            string
	start           time.Time
	authDuration    time.Duration
	fetchDuration   time.Duration
	recordsReturned int
	errorStage      string
}

func newRequestMetrics(ctx context.Context, logger *log.Logger, route, name string) (*requestMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("http.route", route)),
	)
	return &requestMetrics{
		logger: logger,
		span:   span,
		route:  route,
		name:   name,
		start:  time.Now(),
	}, spanCtx
}

func (m *requestMetrics) ObserveAuth(d time.Duration) {
	if d > 0 {
		m.authDuration = d
	}
}

func (m *requestMetrics) ObserveFetch(d time.Duration) {
	if d > 0 {
		m.fetchDuration = d
	}
}

func (m *requestMetrics) SetRecordsReturned(n int) {
	m.recordsReturned = max(n, 0)
}

func (m *requestMetrics) SetErrorStage(stage string) {
	if stage != "" {
		m.errorStage = stage
	}
}

// Log ends the span and emits the request summary.
func (m *requestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	kvs := []attribute.KeyValue{
		attribute.String("http.route", m.route),
		attribute.Int("http.status_code", status),
		attribute.Float64(queryAttrPrefix+"total_ms", durationToMillis(time.Since(m.start))),
		attribute.Int(queryAttrPrefix+"records_returned", m.recordsReturned),
	}
	if m.authDuration > 0 {
		kvs = append(kvs, attribute.Float64(queryAttrPrefix+"auth_ms", durationToMillis(m.authDuration)))
	}
	if m.fetchDuration > 0 {
		kvs = append(kvs, attribute.Float64(queryAttrPrefix+"fetch_ms", durationToMillis(m.fetchDuration)))
	}
	if m.errorStage != "" {
		kvs = append(kvs, attribute.String(queryAttrPrefix+"error_stage", m.errorStage))
	}

	severityText, severityNumber := severityForStatus(status, err)
	eventAttrs := append([]attribute.KeyValue{
		attribute.String("event.name", m.name),
		attribute.String("event.domain", queryEventDomain),
		attribute.String("severity_text", severityText),
	}, kvs...)
	if err != nil {
		eventAttrs = append(eventAttrs, attribute.String("error.message", err.Error()))
	}

	m.span.SetAttributes(kvs...)
	m.span.AddEvent(observabilityEventName, trace.WithAttributes(eventAttrs...))
	if severityText == "ERROR" {
		desc := http.StatusText(status)
		if err != nil {
			desc = err.Error()
		}
		m.span.SetStatus(codes.Error, desc)
	} else {
		m.span.SetStatus(codes.Ok, "")
	}
	sc := m.span.SpanContext()
	m.span.End()

	if m.logger == nil {
		return
	}
	attrs := make(map[string]any, len(kvs))
	for _, kv := range kvs {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	fields := log.Fields{
		"event.name":      m.name,
		"event.domain":    queryEventDomain,
		"attributes":      attrs,
		"severity_text":   severityText,
		"severity_number": severityNumber,
	}
	if sc.HasTraceID() {
		fields["trace_id"] = sc.TraceID().String()
	}
	if sc.HasSpanID() {
		fields["span_id"] = sc.SpanID().String()
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	entry := m.logger.WithFields(fields)
	switch severityText {
	case "ERROR":
		entry.Error(observabilityEventName)
	case "WARN":
		entry.Warn(observabilityEventName)
	default:
		entry.Info(observabilityEventName)
	}
}

// severityForStatus maps a response onto OpenTelemetry log severity.
func severityForStatus(status int, err error) (string, int) {
	switch {
	case status >= http.StatusInternalServerError:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
	case status == 0 && err != nil:
		return "ERROR", 17
	}
	return "INFO", 9
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}

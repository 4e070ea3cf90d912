package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"activity-events/domain"
)

const (
	routeByCorrelation      = "/api/events/correlation/:correlationId"
	routeByCorrelationExact = "/api/events/correlation/:correlationId/:eventDateTime"
	routeByReference        = "/api/events/reference/:reference/:year"
	routeByReferenceExact   = "/api/events/reference/:reference/:year/:eventDateTime"
	routeStream             = "/api/events/stream"

	maxQueryLimit = 1000
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, views Views, auth Authenticator, defaultLimit int, logger *log.Logger) {
	e.GET(routeByCorrelation, getByCorrelation(views.ByCorrelationID, auth, defaultLimit, logger))
	e.GET(routeByCorrelationExact, getByCorrelationExact(views.ByCorrelationID, auth, logger))
	e.GET(routeByReference, getByReference(views.ByReference, auth, logger))
	e.GET(routeByReferenceExact, getByReferenceExact(views.ByReference, auth, logger))
	if views.Updates != nil {
		e.GET(routeStream, streamEvents(views.Updates, auth, logger))
	}
	e.GET("/healthz", healthz(views.Store))
}

func healthz(store Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			return c.String(http.StatusServiceUnavailable, err.Error())
		}
		return c.NoContent(http.StatusOK)
	}
}

// begin starts metrics for a request and authenticates the caller. ok is false
// when the caller must be refused.
func begin(c echo.Context, auth Authenticator, logger *log.Logger, route, name string) (*requestMetrics, context.Context, bool) {
	metrics, ctx := newRequestMetrics(c.Request().Context(), logger, route, name)
	c.SetRequest(c.Request().WithContext(ctx))

	authStart := time.Now()
	_, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
	metrics.ObserveAuth(time.Since(authStart))
	if err != nil {
		metrics.SetErrorStage("auth")
		return metrics, ctx, false
	}
	return metrics, ctx, true
}

func getByCorrelation(repo CorrelationReader, auth Authenticator, defaultLimit int, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx, ok := begin(c, auth, logger, routeByCorrelation, "query.by_correlation")
		defer func() { metrics.Log(c.Response().Status, err) }()
		if !ok {
			return c.String(http.StatusUnauthorized, "unauthorized")
		}

		correlationID := domain.CanonicalID(c.Param("correlationId"))
		var after time.Time
		if raw := strings.TrimSpace(c.QueryParam("after")); raw != "" {
			if after, err = time.Parse(time.RFC3339Nano, raw); err != nil {
				metrics.SetErrorStage("invalid_after")
				return c.String(http.StatusBadRequest, "invalid after")
			}
		}
		limit, err := parseLimit(c.QueryParam("limit"), defaultLimit)
		if err != nil {
			metrics.SetErrorStage("invalid_limit")
			return c.String(http.StatusBadRequest, "invalid limit")
		}

		fetchStart := time.Now()
		recs, fetchErr := repo.FindByCorrelationIDAfter(ctx, correlationID, after, limit)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			return writeStoreError(c, metrics, fetchErr)
		}
		metrics.SetRecordsReturned(len(recs))

		resp := eventsResponse{Events: make([]eventResponse, len(recs))}
		for i, r := range recs {
			resp.Events[i] = fromCorrelationRecord(r)
		}
		if len(recs) == limit {
			resp.Next = recs[len(recs)-1].PrimaryKey.EventDateTime.UTC().Format(time.RFC3339Nano)
		}
		return c.JSON(http.StatusOK, resp)
	}
}

func getByCorrelationExact(repo CorrelationReader, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx, ok := begin(c, auth, logger, routeByCorrelationExact, "query.by_correlation.exact")
		defer func() { metrics.Log(c.Response().Status, err) }()
		if !ok {
			return c.String(http.StatusUnauthorized, "unauthorized")
		}

		at, err := time.Parse(time.RFC3339Nano, c.Param("eventDateTime"))
		if err != nil {
			metrics.SetErrorStage("invalid_event_date_time")
			return c.String(http.StatusBadRequest, "invalid eventDateTime")
		}

		fetchStart := time.Now()
		rec, fetchErr := repo.Get(ctx, domain.CanonicalID(c.Param("correlationId")), at)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			return writeStoreError(c, metrics, fetchErr)
		}
		if rec == nil {
			return c.String(http.StatusNotFound, "event not found")
		}
		metrics.SetRecordsReturned(1)
		return c.JSON(http.StatusOK, fromCorrelationRecord(*rec))
	}
}

func getByReference(repo ReferenceReader, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx, ok := begin(c, auth, logger, routeByReference, "query.by_reference")
		defer func() { metrics.Log(c.Response().Status, err) }()
		if !ok {
			return c.String(http.StatusUnauthorized, "unauthorized")
		}

		year, err := strconv.Atoi(c.Param("year"))
		if err != nil {
			metrics.SetErrorStage("invalid_year")
			return c.String(http.StatusBadRequest, "invalid year")
		}

		fetchStart := time.Now()
		recs, fetchErr := repo.FindByReferenceAndYear(ctx, c.Param("reference"), year)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			return writeStoreError(c, metrics, fetchErr)
		}
		metrics.SetRecordsReturned(len(recs))

		resp := eventsResponse{Events: make([]eventResponse, len(recs))}
		for i, r := range recs {
			resp.Events[i] = fromReferenceRecord(r)
		}
		return c.JSON(http.StatusOK, resp)
	}
}

func getByReferenceExact(repo ReferenceReader, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx, ok := begin(c, auth, logger, routeByReferenceExact, "query.by_reference.exact")
		defer func() { metrics.Log(c.Response().Status, err) }()
		if !ok {
			return c.String(http.StatusUnauthorized, "unauthorized")
		}

		year, err := strconv.Atoi(c.Param("year"))
		if err != nil {
			metrics.SetErrorStage("invalid_year")
			return c.String(http.StatusBadRequest, "invalid year")
		}
		at, err := time.Parse(time.RFC3339Nano, c.Param("eventDateTime"))
		if err != nil {
			metrics.SetErrorStage("invalid_event_date_time")
			return c.String(http.StatusBadRequest, "invalid eventDateTime")
		}

		fetchStart := time.Now()
		rec, fetchErr := repo.Get(ctx, c.Param("reference"), year, at)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			return writeStoreError(c, metrics, fetchErr)
		}
		if rec == nil {
			return c.String(http.StatusNotFound, "event not found")
		}
		metrics.SetRecordsReturned(1)
		return c.JSON(http.StatusOK, fromReferenceRecord(*rec))
	}
}

func parseLimit(raw string, defaultLimit int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if defaultLimit <= 0 || defaultLimit > maxQueryLimit {
			return maxQueryLimit, nil
		}
		return defaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > maxQueryLimit {
		return 0, errors.New("limit out of range")
	}
	return n, nil
}

// statusForError maps a lookup failure onto an HTTP status.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidKey):
		return http.StatusBadRequest, "invalid_key"
	case errors.Is(err, domain.ErrStoreUnavailable), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "store_unavailable"
	case errors.Is(err, domain.ErrSchemaMismatch):
		return http.StatusInternalServerError, "schema_mismatch"
	}
	return http.StatusInternalServerError, "storage"
}

func writeStoreError(c echo.Context, metrics *requestMetrics, err error) error {
	status, stage := statusForError(err)
	metrics.SetErrorStage(stage)
	if status == http.StatusBadRequest {
		return c.String(status, err.Error())
	}
	c.Logger().Error(err)
	return c.String(status, http.StatusText(status))
}

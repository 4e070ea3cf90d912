package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"activity-events/domain"
)

var streamHeartbeat = 15 * time.Second

// streamEvents sends a server-sent event for every notification matching the
// optional correlationId and reference query parameters.
func streamEvents(updates Subscriber, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		// EventSource cannot set headers, so the token may come as a query parameter.
		if c.Request().Header.Get(echo.HeaderAuthorization) == "" {
			if token := c.QueryParam("token"); token != "" {
				c.Request().Header.Set(echo.HeaderAuthorization, "Bearer "+token)
			}
		}
		metrics, ctx, ok := begin(c, auth, logger, routeStream, "query.stream")
		defer func() { metrics.Log(c.Response().Status, err) }()
		if !ok {
			return c.String(http.StatusUnauthorized, "unauthorized")
		}

		correlationID := strings.TrimSpace(c.QueryParam("correlationId"))
		if correlationID != "" {
			correlationID = domain.CanonicalID(correlationID)
		}
		reference := strings.TrimSpace(c.QueryParam("reference"))

		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			metrics.SetErrorStage("flush_unsupported")
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}

		ch, cancel := updates.Subscribe(correlationID, reference)
		defer cancel()

		c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
		c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
		c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
		c.Response().Header().Set("X-Accel-Buffering", "no")
		c.Response().WriteHeader(http.StatusOK)
		if _, err := c.Response().Write([]byte(": subscribed\n\n")); err != nil {
			return err
		}
		flusher.Flush()

		heartbeat := time.NewTicker(streamHeartbeat)
		defer heartbeat.Stop()
		sent := 0
		for {
			select {
			case <-ctx.Done():
				metrics.SetRecordsReturned(sent)
				return nil
			case <-heartbeat.C:
				if _, err := c.Response().Write([]byte(": ping\n\n")); err != nil {
					metrics.SetErrorStage("write")
					return err
				}
			case n := <-ch:
				data, err := n.Encode()
				if err != nil {
					metrics.SetErrorStage("encode")
					return err
				}
				if _, err := c.Response().Write([]byte("event: activity\ndata: ")); err != nil {
					metrics.SetErrorStage("write")
					return err
				}
				if _, err := c.Response().Write(data); err != nil {
					metrics.SetErrorStage("write")
					return err
				}
				if _, err := c.Response().Write([]byte("\n\n")); err != nil {
					metrics.SetErrorStage("write")
					return err
				}
				sent++
			}
			flusher.Flush()
		}
	}
}

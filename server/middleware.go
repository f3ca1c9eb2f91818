package server

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gaborage/go-bricks-authclient/logger"
)

// RequestLogger logs one summary line per request, skipping the given paths.
// Client errors log at warn and server errors at error.
func RequestLogger(log logger.Logger, skip ...string) echo.MiddlewareFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := skipped[c.Request().URL.Path]; ok {
				return next(c)
			}

			start := time.Now()
			err := next(c)
			if err != nil {
				// let the error handler write the status before it is logged
				c.Error(err)
			}
			status := c.Response().Status

			var event logger.LogEvent
			switch {
			case status >= 500:
				event = log.Error()
			case status >= 400:
				event = log.Warn()
			default:
				event = log.Info()
			}
			if err != nil {
				event = event.Err(err)
			}

			event.
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Str("http.request.method", c.Request().Method).
				Str("url.path", c.Request().URL.Path).
				Int("http.response.status_code", status).
				Dur("latency", time.Since(start)).
				Msg("Request handled")
			return nil
		}
	}
}

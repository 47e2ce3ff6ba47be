package middleware

import (
	"net/http"
	"strings"
	"time"

	applogger "AstroAI/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging writes one line per request. Server errors log at warn, everything
// else at debug. Health checks, scrapes and websocket upgrades are not logged.
func RequestLogging(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if quietPath(req.URL.Path) {
				return next(c)
			}
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			fields := []applogger.Field{
				applogger.String("method", req.Method),
				applogger.String("uri", req.RequestURI),
				applogger.String("remote", c.RealIP()),
				applogger.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
				applogger.Int("status", status),
				applogger.Duration("latency", time.Since(start)),
			}
			if status >= http.StatusInternalServerError {
				l.Warn("http request failed", fields...)
			} else {
				l.Debug("http request", fields...)
			}
			return err
		}
	}
}

func quietPath(p string) bool {
	return p == "/metrics" || p == "/api/health" || strings.HasPrefix(p, "/ws/")
}

package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"campus/config"
	deliverycontext "campus/internal/delivery/context"
)

// LoggerMiddleware writes one access line per request. Outside debug mode only
// responses with status >= 400 are logged.
type LoggerMiddleware struct {
	logger *slog.Logger
	debug  bool
}

func NewLoggerMiddleware(logger *slog.Logger, config *config.Config) *LoggerMiddleware {
	return &LoggerMiddleware{logger: logger, debug: config.Env.Debug}
}

func (m *LoggerMiddleware) Handle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		err := next(c)
		if err != nil {
			// Render now so the logged status is the one the client sees.
			c.Error(err)
		}

		status := c.Response().Status
		if !m.debug && status < http.StatusBadRequest {
			return nil
		}

		m.write(c, status, time.Since(start), err)

		return nil
	}
}

func (m *LoggerMiddleware) write(c echo.Context, status int, latency time.Duration, err error) {
	req := c.Request()
	ctx := req.Context()

	// The request logger already carries request_id, and user_id once authenticated.
	logger := deliverycontext.GetLoggerOrDefault(ctx, m.logger)
	if deliverycontext.GetRequestIDFromContext(ctx) == "" {
		logger = logger.With(slog.String("request_id", deliverycontext.GetRequestID(c)))
	}

	// Path only: OAuth callbacks and verify links carry secrets in the query.
	attrs := []slog.Attr{
		slog.String("method", req.Method),
		slog.String("uri", req.URL.Path),
		slog.Int("status", status),
		slog.Duration("latency", latency),
		slog.Int64("bytes_out", c.Response().Size),
		slog.String("remote_ip", c.RealIP()),
		slog.String("user_agent", req.UserAgent()),
	}
	if err != nil {
		attrs = append(attrs, slog.Any("error", err))
	}

	logger.LogAttrs(ctx, accessLevel(status), "HTTP Request", attrs...)
}

func accessLevel(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

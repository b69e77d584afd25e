// Package context carries request-scoped values between the delivery layer and the services:
// the request ID, the request logger and the authenticated principal.
package context

import (
	"context"
	"log/slog"
	"unicode"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"campus/internal/domain/entity"
)

// HeaderXRequestID is read from clients and echoed on every response.
const HeaderXRequestID = "X-Request-Id"

// maxRequestIDLength bounds client supplied IDs before they reach logs and event payloads.
const maxRequestIDLength = 128

type ctxKey int

const (
	requestIDKey ctxKey = iota
	loggerKey
	principalKey
)

// echoRequestIDKey stores the ID on echo.Context for the response envelope.
const echoRequestIDKey = "request_id"

// NormalizeRequestID returns id when it is usable as a log value, otherwise a new UUID.
func NormalizeRequestID(id string) string {
	if id == "" || len(id) > maxRequestIDLength {
		return uuid.NewString()
	}
	for _, r := range id {
		if !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return uuid.NewString()
		}
	}

	return id
}

// GetRequestID returns the ID set by the request ID middleware, or "" outside of it.
func GetRequestID(c echo.Context) string {
	if id, ok := c.Get(echoRequestIDKey).(string); ok {
		return id
	}

	return GetRequestIDFromContext(c.Request().Context())
}

func SetRequestID(c echo.Context, requestID string) {
	c.Set(echoRequestIDKey, requestID)
}

func GetRequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)

	return id
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetLoggerOrDefault returns the request logger, or fallback when ctx carries none.
func GetLoggerOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok && logger != nil {
		return logger
	}

	return fallback
}

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// WithPrincipal stores the claims of an authenticated request.
func WithPrincipal(ctx context.Context, principal entity.TokenUser) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// PrincipalFromContext returns the claims stored by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (entity.TokenUser, bool) {
	principal, ok := ctx.Value(principalKey).(entity.TokenUser)

	return principal, ok
}

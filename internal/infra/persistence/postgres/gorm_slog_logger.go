package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"campus/config"
	deliverycontext "campus/internal/delivery/context"
	"campus/internal/errors"
)

const slowQueryThreshold = 200 * time.Millisecond

// gormSlogLogger writes GORM output through the request-scoped slog logger so queries carry the
// request_id of the call that issued them. Bound parameters are never rendered into the logged
// SQL: they carry password hashes, reset tokens and refresh tokens.
type gormSlogLogger struct {
	base  *slog.Logger
	level logger.LogLevel
	slow  time.Duration
}

func newGormSlogLogger(base *slog.Logger, cfg *config.Config) logger.Interface {
	level := logger.Warn
	if cfg != nil && cfg.Env.Debug {
		level = logger.Info
	}

	return &gormSlogLogger{base: base, level: level, slow: slowQueryThreshold}
}

// ParamsFilter implements logger.ParamsFilter.
func (l *gormSlogLogger) ParamsFilter(_ context.Context, sql string, _ ...any) (string, []any) {
	return sql, nil
}

func (l *gormSlogLogger) LogMode(level logger.LogLevel) logger.Interface {
	cloned := *l
	cloned.level = level

	return &cloned
}

func (l *gormSlogLogger) Info(ctx context.Context, msg string, args ...any) {
	l.message(ctx, logger.Info, msg, args...)
}

func (l *gormSlogLogger) Warn(ctx context.Context, msg string, args ...any) {
	l.message(ctx, logger.Warn, msg, args...)
}

func (l *gormSlogLogger) Error(ctx context.Context, msg string, args ...any) {
	l.message(ctx, logger.Error, msg, args...)
}

func (l *gormSlogLogger) message(ctx context.Context, level logger.LogLevel, msg string, args ...any) {
	if !l.enabled(level) {
		return
	}

	l.log(ctx).LogAttrs(ctx, slogLevel(level), "GORM "+strings.ToLower(levelName(level)),
		slog.String("message", fmt.Sprintf(msg, args...)),
	)
}

// Trace logs failed queries, slow queries, and in debug mode every query.
// A missing record is an expected outcome of lookups and is not logged as a failure.
func (l *gormSlogLogger) Trace(ctx context.Context, begin time.Time, sqlAndRowsFn func() (string, int64), err error) {
	elapsed := time.Since(begin)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.enabled(logger.Error):
		attrs := append(queryAttrs(sqlAndRowsFn, elapsed), slog.String("error", err.Error()))
		l.log(ctx).LogAttrs(ctx, slog.LevelError, "GORM query failed", attrs...)
	case l.slow > 0 && elapsed > l.slow && l.enabled(logger.Warn):
		attrs := append(queryAttrs(sqlAndRowsFn, elapsed), slog.Duration("slowThreshold", l.slow))
		l.log(ctx).LogAttrs(ctx, slog.LevelWarn, "GORM slow query", attrs...)
	case l.enabled(logger.Info):
		l.log(ctx).LogAttrs(ctx, slog.LevelDebug, "GORM query", queryAttrs(sqlAndRowsFn, elapsed)...)
	}
}

func (l *gormSlogLogger) enabled(level logger.LogLevel) bool {
	return l.base != nil && l.level != logger.Silent && l.level >= level
}

func (l *gormSlogLogger) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, l.base)
}

func queryAttrs(sqlAndRowsFn func() (string, int64), elapsed time.Duration) []slog.Attr {
	sql, rows := sqlAndRowsFn()
	op, _, _ := strings.Cut(strings.TrimSpace(sql), " ")

	return []slog.Attr{
		slog.String("op", strings.ToUpper(op)),
		slog.Duration("elapsed", elapsed),
		slog.Int64("rows", rows),
		slog.String("sql", sql),
	}
}

func slogLevel(level logger.LogLevel) slog.Level {
	switch level {
	case logger.Error:
		return slog.LevelError
	case logger.Warn:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func levelName(level logger.LogLevel) string {
	switch level {
	case logger.Error:
		return "error"
	case logger.Warn:
		return "warn"
	default:
		return "info"
	}
}

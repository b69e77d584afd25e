package logs

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"go.uber.org/fx"

	"campus/config"
	"campus/internal/errors"
)

const redacted = "[REDACTED]"

// sensitiveKeys never reach the log output with their value, whatever the caller passes.
var sensitiveKeys = map[string]struct{}{
	"password":          {},
	"oldpassword":       {},
	"newpassword":       {},
	"confirmpassword":   {},
	"token":             {},
	"accesstoken":       {},
	"refreshtoken":      {},
	"resettoken":        {},
	"verificationtoken": {},
	"authorization":     {},
	"cookie":            {},
}

// Params defines the parameters required for the logger
type Params struct {
	fx.In

	Config *config.Config
}

// New builds the process logger: text when env.log.pretty is set, JSON otherwise.
func New(params Params) (*slog.Logger, error) {
	return newLogger(os.Stdout, params.Config)
}

func newLogger(w io.Writer, cfg *config.Config) (*slog.Logger, error) {
	level, err := parseLogLevel(cfg.Env.Log.Level)
	if err != nil {
		return nil, err
	}

	options := &slog.HandlerOptions{
		Level:       level,
		AddSource:   cfg.Env.Debug,
		ReplaceAttr: redactSensitive,
	}

	var handler slog.Handler
	if cfg.Env.Log.Pretty {
		handler = slog.NewTextHandler(w, options)
	} else {
		handler = slog.NewJSONHandler(w, options)
	}

	logger := slog.New(handler)
	if name := cfg.Env.ServiceName; name != "" {
		logger = logger.With(slog.String("service", name))
	}

	return logger, nil
}

func redactSensitive(_ []string, attr slog.Attr) slog.Attr {
	key := strings.ToLower(strings.ReplaceAll(attr.Key, "_", ""))
	if _, ok := sensitiveKeys[key]; ok {
		return slog.String(attr.Key, redacted)
	}

	return attr
}

func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, errors.Errorf("unknown log level: %s", level)
	}
}

package logfields

import (
	"context"
	"log/slog"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyTask       = "task"
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyFile       = "file"
	KeyOutput     = "output"
	KeyTemplate   = "template"
	KeyDurationMS = "duration_ms"
	KeyCount      = "count"
	KeyEnv        = "env"
	KeyPort       = "port"
	KeyMethod     = "method"
	KeyPath       = "path"
	KeyStatus     = "status"
	KeyRemoteAddr = "remote_addr"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Task(name string) slog.Attr       { return slog.String(KeyTask, name) }
func BuildID(id string) slog.Attr      { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func File(path string) slog.Attr       { return slog.String(KeyFile, path) }
func Output(path string) slog.Attr     { return slog.String(KeyOutput, path) }
func Template(name string) slog.Attr   { return slog.String(KeyTemplate, name) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Count(n int) slog.Attr            { return slog.Int(KeyCount, n) }
func Env(env string) slog.Attr         { return slog.String(KeyEnv, env) }
func Port(p int) slog.Attr             { return slog.Int(KeyPort, p) }
func Method(m string) slog.Attr        { return slog.String(KeyMethod, m) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Status(code int) slog.Attr        { return slog.Int(KeyStatus, code) }
func RemoteAddr(addr string) slog.Attr { return slog.String(KeyRemoteAddr, addr) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

type loggerKey struct{}

// WithLogger returns a context carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger carried by ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	return slog.Default()
}

// Package logger constructs the structured loggers used throughout ignitekv.
// Every subsystem Config accepts a *zap.SugaredLogger produced here rather
// than configuring zap itself, keeping logging setup in one place.
package logger

import "go.uber.org/zap"

// New builds a production-configured, service-scoped SugaredLogger. service
// typically names the component constructing the logger (e.g. "engine",
// "merge", "wal") and is attached to every log line it emits.
func New(service string) *zap.SugaredLogger {
	base, err := zap.NewProduction()
	if err != nil {
		// zap.NewProduction only fails if the process cannot open its
		// default sinks (stdout/stderr); there is no meaningful degraded
		// mode for a logging constructor to fall back to, so we fall back
		// to zap's no-op logger rather than panicking a library caller.
		base = zap.NewNop()
	}

	return base.Named(service).Sugar()
}

// NewDevelopment builds a development-configured, service-scoped
// SugaredLogger: human-readable console output with debug-level verbosity,
// useful for the cmd/ignite CLI and for tests that want readable failures.
func NewDevelopment(service string) *zap.SugaredLogger {
	base, err := zap.NewDevelopment()
	if err != nil {
		base = zap.NewNop()
	}

	return base.Named(service).Sugar()
}

// Noop returns a logger that discards everything, for tests that want to
// exercise a component without asserting on its log output.
func Noop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

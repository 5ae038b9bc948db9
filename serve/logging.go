package serve

import (
	"github.com/advdv/whttp"
	"github.com/advdv/whttp/di"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a zap logger configured from the environment.
// Uses JSON encoding suitable for log aggregation.
// WHTTP_LOG_LEVEL controls the level (debug, info, warn, error).
func NewLogger(env Environment) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(env.logLevel())
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

type zapLogger struct{ *zap.Logger }

func (l zapLogger) LogRouteOverwrite(method, path string) {
	l.Logger.Warn("route already registered, overwriting",
		zap.String("method", method),
		zap.String("path", path))
}

func (l zapLogger) LogPartialConstruction(tok di.Token, provided, arity int) {
	l.Logger.Warn("provider constructed with partial dependencies",
		zap.String("token", di.TokenName(tok)),
		zap.Int("provided", provided),
		zap.Int("arity", arity))
}

func (l zapLogger) LogSwallowedFilterError(err error) {
	l.Logger.Error("exception filter failed, trying next", zap.Error(err))
}

func (l zapLogger) LogUnhandledPipelineError(err error) {
	l.Logger.Error("unhandled pipeline error", zap.Error(err))
}

func (l zapLogger) LogDetachedTaskError(err error) {
	l.Logger.Error("detached task failed", zap.Error(err))
}

func (l zapLogger) LogResponseWriteError(err error) {
	l.Logger.Error("error while writing response", zap.Error(err))
}

func newZapWHTTPLogger(l *zap.Logger) whttp.Logger {
	return zapLogger{l.Named("whttp").Named("serve")}
}

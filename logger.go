package whttp

import (
	"log"
	"sync/atomic"
	"testing"

	"github.com/advdv/whttp/di"
)

// Logger can be implemented to get informed about important states. It covers
// the events of the root package as well as those of the di and router
// sub-packages, so a single implementation can be threaded everywhere.
type Logger interface {
	LogRouteOverwrite(method, path string)
	LogPartialConstruction(tok di.Token, provided, arity int)
	LogSwallowedFilterError(err error)
	LogUnhandledPipelineError(err error)
	LogDetachedTaskError(err error)
	LogResponseWriteError(err error)
}

type stdLogger struct{ *log.Logger }

func (l stdLogger) LogRouteOverwrite(method, path string) {
	l.Logger.Printf("whttp: route %s %s already registered, overwriting", method, path)
}

func (l stdLogger) LogPartialConstruction(tok di.Token, provided, arity int) {
	l.Logger.Printf("whttp: provider %s declares %d dependencies but its constructor takes %d, zero values passed for the remainder",
		di.TokenName(tok), provided, arity)
}

func (l stdLogger) LogSwallowedFilterError(err error) {
	l.Logger.Printf("whttp: exception filter failed, trying next: %s", err)
}

func (l stdLogger) LogUnhandledPipelineError(err error) {
	l.Logger.Printf("whttp: unhandled pipeline error: %s", err)
}

func (l stdLogger) LogDetachedTaskError(err error) {
	l.Logger.Printf("whttp: detached task failed: %s", err)
}

func (l stdLogger) LogResponseWriteError(err error) {
	l.Logger.Printf("whttp: error while writing response: %s", err)
}

func NewStdLogger(l *log.Logger) Logger {
	return stdLogger{l}
}

type TestLogger struct {
	tb testing.TB

	NumLogRouteOverwrite         int64
	NumLogPartialConstruction    int64
	NumLogSwallowedFilterError   int64
	NumLogUnhandledPipelineError int64
	NumLogDetachedTaskError      int64
	NumLogResponseWriteError     int64
}

func NewTestLogger(tb testing.TB) *TestLogger {
	return &TestLogger{tb: tb}
}

func (l *TestLogger) LogRouteOverwrite(method, path string) {
	atomic.AddInt64(&l.NumLogRouteOverwrite, 1)
	l.tb.Logf("whttp: route %s %s already registered, overwriting", method, path)
}

func (l *TestLogger) LogPartialConstruction(tok di.Token, provided, arity int) {
	atomic.AddInt64(&l.NumLogPartialConstruction, 1)
	l.tb.Logf("whttp: provider %s declares %d dependencies but its constructor takes %d, zero values passed for the remainder",
		di.TokenName(tok), provided, arity)
}

func (l *TestLogger) LogSwallowedFilterError(err error) {
	atomic.AddInt64(&l.NumLogSwallowedFilterError, 1)
	l.tb.Logf("whttp: exception filter failed, trying next: %s", err)
}

func (l *TestLogger) LogUnhandledPipelineError(err error) {
	atomic.AddInt64(&l.NumLogUnhandledPipelineError, 1)
	l.tb.Logf("whttp: unhandled pipeline error: %s", err)
}

func (l *TestLogger) LogDetachedTaskError(err error) {
	atomic.AddInt64(&l.NumLogDetachedTaskError, 1)
	l.tb.Logf("whttp: detached task failed: %s", err)
}

func (l *TestLogger) LogResponseWriteError(err error) {
	atomic.AddInt64(&l.NumLogResponseWriteError, 1)
	l.tb.Logf("whttp: error while writing response: %s", err)
}

var _ Logger = &TestLogger{}

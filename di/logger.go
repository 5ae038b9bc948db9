package di

import (
	"log"
	"sync/atomic"
	"testing"
)

// Logger can be implemented to get informed about non-fatal container
// events.
type Logger interface {
	LogPartialConstruction(tok Token, provided, arity int)
}

type stdLogger struct{ *log.Logger }

func (l stdLogger) LogPartialConstruction(tok Token, provided, arity int) {
	l.Logger.Printf("di: constructing %s with %d of %d arguments, the rest are zero values",
		TokenName(tok), provided, arity)
}

func NewStdLogger(l *log.Logger) Logger {
	return stdLogger{l}
}

type TestLogger struct {
	tb testing.TB

	NumLogPartialConstruction int64
}

func NewTestLogger(tb testing.TB) *TestLogger {
	return &TestLogger{tb: tb}
}

func (l *TestLogger) LogPartialConstruction(tok Token, provided, arity int) {
	atomic.AddInt64(&l.NumLogPartialConstruction, 1)
	l.tb.Logf("di: constructing %s with %d of %d arguments, the rest are zero values",
		TokenName(tok), provided, arity)
}

var _ Logger = &TestLogger{}

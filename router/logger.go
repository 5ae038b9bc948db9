package router

import "log"

// Logger can be implemented to get informed about route-table events.
type Logger interface {
	LogRouteOverwrite(method, path string)
}

type stdLogger struct{ *log.Logger }

func (l stdLogger) LogRouteOverwrite(method, path string) {
	l.Logger.Printf("router: overwriting handler for %s %s", method, path)
}

func NewStdLogger(l *log.Logger) Logger {
	return stdLogger{l}
}

package servetest

import (
	"strconv"
	"testing"
)

// Env provides a chainable builder for setting [serve.BaseEnvironment] env
// vars via t.Setenv. Create one with [SetBaseEnv].
type Env struct {
	t testing.TB
}

// SetBaseEnv sets all [serve.BaseEnvironment] env vars to sensible test
// defaults. Port is required because each test must use a unique port to
// avoid collisions.
//
// Defaults:
//   - WHTTP_SERVICE_NAME: "test"
//   - WHTTP_READINESS_CHECK_PATH: "/healthz"
//   - WHTTP_REQUEST_TIMEOUT: "30s"
//   - WHTTP_ERROR_STATUS_CODES: "500-599"
//   - OTEL_SDK_DISABLED: "true"
//
// Use the returned [Env] to override individual values:
//
//	servetest.SetBaseEnv(t, 18085).ServiceName("checkout").RequestTimeout("5s")
func SetBaseEnv(t testing.TB, port int) *Env {
	t.Helper()
	t.Setenv("WHTTP_PORT", strconv.Itoa(port))
	t.Setenv("WHTTP_SERVICE_NAME", "test")
	t.Setenv("WHTTP_READINESS_CHECK_PATH", "/healthz")
	t.Setenv("WHTTP_REQUEST_TIMEOUT", "30s")
	t.Setenv("WHTTP_ERROR_STATUS_CODES", "500-599")
	t.Setenv("OTEL_SDK_DISABLED", "true")
	return &Env{t: t}
}

// ServiceName overrides WHTTP_SERVICE_NAME.
func (e *Env) ServiceName(name string) *Env {
	e.t.Helper()
	e.t.Setenv("WHTTP_SERVICE_NAME", name)
	return e
}

// ReadinessCheckPath overrides WHTTP_READINESS_CHECK_PATH.
func (e *Env) ReadinessCheckPath(path string) *Env {
	e.t.Helper()
	e.t.Setenv("WHTTP_READINESS_CHECK_PATH", path)
	return e
}

// RequestTimeout overrides WHTTP_REQUEST_TIMEOUT.
func (e *Env) RequestTimeout(d string) *Env {
	e.t.Helper()
	e.t.Setenv("WHTTP_REQUEST_TIMEOUT", d)
	return e
}

// ErrorStatusCodes overrides WHTTP_ERROR_STATUS_CODES.
func (e *Env) ErrorStatusCodes(expr string) *Env {
	e.t.Helper()
	e.t.Setenv("WHTTP_ERROR_STATUS_CODES", expr)
	return e
}

// LogLevel overrides WHTTP_LOG_LEVEL.
func (e *Env) LogLevel(level string) *Env {
	e.t.Helper()
	e.t.Setenv("WHTTP_LOG_LEVEL", level)
	return e
}

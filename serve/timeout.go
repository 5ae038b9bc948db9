package serve

import (
	"context"
	"net/http"
	"time"

	"github.com/advdv/whttp"
)

// Timeout strategy
//
// The harness assumes a fronting proxy (a load balancer, API gateway or the
// Lambda Web Adapter) with its own hard timeout. Fixed per-handler timeouts
// are problematic in that setup: too short wastes remaining budget, too long
// means the proxy cuts the connection before the pipeline can render a
// response. We therefore use a two-tier approach:
//
//  1. Server-level timeouts derived from WHTTP_REQUEST_TIMEOUT. These act as
//     an outer bound and protect against stalled connections.
//
//  2. A per-request context deadline set by [WithRequestDeadline]. The whttp
//     pipeline tightens it with a deadline interceptor so handlers stop in
//     time to materialize a timeout response before the connection is cut.

// TimeoutConfig holds timeout configuration for the HTTP server.
type TimeoutConfig struct {
	// RequestTimeout is the upper bound for handling a single request,
	// configured through WHTTP_REQUEST_TIMEOUT. Used as the basis for
	// server-level timeouts.
	RequestTimeout time.Duration

	// DeadlineBuffer is subtracted from the request timeout to allow time for
	// rendering error responses. Defaults to [whttp.DefaultDeadlineBuffer].
	DeadlineBuffer time.Duration
}

// ServerTimeouts returns the recommended http.Server timeout values based on
// the request timeout. These serve as outer bounds; the per-request deadline
// from [WithRequestDeadline] takes precedence.
func (tc TimeoutConfig) ServerTimeouts() (readHeaderTimeout, readTimeout, writeTimeout, idleTimeout time.Duration) {
	buffer := tc.DeadlineBuffer
	if buffer <= 0 {
		buffer = whttp.DefaultDeadlineBuffer
	}

	timeout := tc.RequestTimeout - buffer
	if timeout <= 0 {
		timeout = tc.RequestTimeout // fallback if buffer >= timeout
	}

	// Headers arrive quickly from a local proxy, so wait briefly but never
	// longer than the effective timeout.
	readHeaderTimeout = min(timeout, 5*time.Second)

	readTimeout = timeout
	writeTimeout = timeout
	idleTimeout = timeout

	return
}

// WithRequestDeadline returns middleware that bounds every request context by
// the given timeout. Handlers and downstream calls observe the deadline
// through the context, and the pipeline's deadline interceptor reserves part
// of it for rendering a response. A non-positive timeout passes requests
// through unchanged.
func WithRequestDeadline(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestDeadline returns the context deadline for the current request.
// Returns the zero time and false if no deadline is set.
func RequestDeadline(ctx context.Context) (time.Time, bool) {
	return ctx.Deadline()
}

// RequestRemainingTime returns the duration until the request context
// deadline. Returns 0 if no deadline is set or if the deadline has passed.
func RequestRemainingTime(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0
	}
	remaining := time.Until(deadline)
	if remaining < 0 {
		return 0
	}
	return remaining
}

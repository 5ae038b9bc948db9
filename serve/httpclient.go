package serve

import (
	"net/http"

	"github.com/carlmjohnson/requests"
	"github.com/cockroachdb/errors"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// NewHTTPTransport creates an HTTP RoundTripper instrumented with
// OpenTelemetry tracing. The TracerProvider and Propagator are explicitly
// injected to avoid global state. Use this when you need a custom
// *http.Client but still want outbound request tracing.
func NewHTTPTransport(tp trace.TracerProvider, prop propagation.TextMapPropagator) http.RoundTripper {
	return otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithTracerProvider(tp),
		otelhttp.WithPropagators(prop),
	)
}

// NewHTTPClient creates an *http.Client that uses the instrumented transport.
// Outbound requests automatically create child spans and propagate trace
// context.
func NewHTTPClient(t http.RoundTripper) *http.Client {
	return &http.Client{Transport: t}
}

// newRequestBuilder creates a base [requests.Builder] with the instrumented
// transport. This is not exported; handlers access it via
// [Runtime.NewRequest].
func newRequestBuilder(t http.RoundTripper) *requests.Builder {
	return requests.New().Transport(t)
}

// breakerTransport runs requests through a circuit breaker. Transport errors
// and 5xx responses count as failures.
type breakerTransport struct {
	next http.RoundTripper
	cb   *gobreaker.CircuitBreaker
}

// WithCircuitBreaker wraps a RoundTripper so that a dependency failing
// consistently trips the breaker and fails fast until it recovers. The name
// identifies the dependency in the breaker's state.
func WithCircuitBreaker(next http.RoundTripper, name string) http.RoundTripper {
	return breakerTransport{
		next: next,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: name,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

func (t breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.cb.Execute(func() (any, error) {
		resp, err := t.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			// Drain so the connection can be reused, then count the
			// response as a failure.
			_ = resp.Body.Close()
			return nil, errors.Newf("upstream returned %s", resp.Status)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	httpResp, ok := resp.(*http.Response)
	if !ok {
		return nil, errors.New("circuit breaker returned a non-response")
	}

	return httpResp, nil
}

package serve

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNewHTTPTransport(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	prop := propagation.TraceContext{}

	rt := NewHTTPTransport(tp, prop)
	if rt == nil {
		t.Fatal("expected non-nil RoundTripper")
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, ts.URL, nil)
	if err != nil {
		t.Fatalf("NewRequest error: %v", err)
	}

	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestNewHTTPClient(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	prop := propagation.TraceContext{}
	rt := NewHTTPTransport(tp, prop)

	client := NewHTTPClient(rt)
	if client == nil {
		t.Fatal("expected non-nil client")
	}
	if client.Transport != rt {
		t.Error("expected client to use the provided transport")
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, ts.URL, nil)
	if err != nil {
		t.Fatalf("NewRequest error: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}
}

func TestNewRequestBuilder(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hello"))
	}))
	defer ts.Close()

	var body string
	err := newRequestBuilder(http.DefaultTransport).
		BaseURL(ts.URL).
		ToString(&body).
		Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if body != "hello" {
		t.Errorf("unexpected body: %s", body)
	}
}

type stubRoundTripper struct {
	fn func(*http.Request) (*http.Response, error)
}

func (s stubRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	return s.fn(r)
}

func TestWithCircuitBreaker(t *testing.T) {
	t.Run("passes successful responses through", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer ts.Close()

		rt := WithCircuitBreaker(http.DefaultTransport, "test-ok")
		req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, ts.URL, nil)

		resp, err := rt.RoundTrip(req)
		if err != nil {
			t.Fatalf("RoundTrip error: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
	})

	t.Run("counts 5xx responses as failures", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer ts.Close()

		rt := WithCircuitBreaker(http.DefaultTransport, "test-5xx")
		req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, ts.URL, nil)

		_, err := rt.RoundTrip(req)
		if err == nil {
			t.Fatal("expected error for 502 response")
		}
	})

	t.Run("opens after consecutive failures", func(t *testing.T) {
		rt := WithCircuitBreaker(stubRoundTripper{fn: func(*http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		}}, "test-open")

		req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "http://upstream.invalid/", nil)

		for i := range 5 {
			_, err := rt.RoundTrip(req)
			if err == nil {
				t.Fatalf("call %d: expected error", i)
			}
			if errors.Is(err, gobreaker.ErrOpenState) {
				t.Fatalf("call %d: breaker opened early", i)
			}
		}

		_, err := rt.RoundTrip(req)
		if !errors.Is(err, gobreaker.ErrOpenState) {
			t.Fatalf("expected open breaker, got: %v", err)
		}
	})
}

package serve_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/advdv/whttp"
	"github.com/advdv/whttp/serve"
	"github.com/advdv/whttp/serve/servetest"
)

// waitReady polls the readiness endpoint until the server accepts requests.
func waitReady(t *testing.T, client *http.Client, url string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}

		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("server at %s did not become ready", url)
}

func TestApp_ContextFeatures(t *testing.T) {
	setTestEnv(t, 18081).ServiceName("test-service").ReadinessCheckPath("/ready")

	app := servetest.New[TestEnv](t, itemsModule{})
	app.RequireStart()
	t.Cleanup(app.RequireStop)

	baseURL := "http://localhost:18081"
	client := &http.Client{Timeout: 5 * time.Second}
	ctx := context.Background()

	waitReady(t, client, baseURL+"/ready")

	t.Run("Context_Log_Span_Env_Reverse", func(t *testing.T) {
		resp, err := doGet(ctx, client, baseURL+"/context")
		if err != nil {
			t.Fatalf("GET /context failed: %v", err)
		}
		defer resp.Body.Close()

		var result map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("decode failed: %v", err)
		}

		env := result["env"].(map[string]any)
		if env["table"] != "test-table" {
			t.Errorf("expected table=test-table, got %v", env["table"])
		}
		if env["service_name"] != "test-service" {
			t.Errorf("expected service_name=test-service, got %v", env["service_name"])
		}
		if result["lambda_nil"] != true {
			t.Errorf("expected lambda_nil=true in test environment")
		}
		if result["reversed_url"] != "/items/test-123" {
			t.Errorf("expected reversed_url=/items/test-123, got %v", result["reversed_url"])
		}
		if id, _ := result["request_id"].(string); id == "" {
			t.Error("expected a generated request id")
		}
		if resp.Header.Get(serve.RequestIDHeader) == "" {
			t.Error("expected the request id reflected on the response")
		}
	})

	t.Run("Request_ID_Reuse", func(t *testing.T) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/context", nil)
		if err != nil {
			t.Fatalf("build request: %v", err)
		}
		req.Header.Set(serve.RequestIDHeader, "caller-supplied-id")

		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("GET /context failed: %v", err)
		}
		defer resp.Body.Close()

		var result map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("decode failed: %v", err)
		}

		if result["request_id"] != "caller-supplied-id" {
			t.Errorf("expected request_id=caller-supplied-id, got %v", result["request_id"])
		}
		if got := resp.Header.Get(serve.RequestIDHeader); got != "caller-supplied-id" {
			t.Errorf("expected the supplied id reflected back, got %q", got)
		}
	})

	t.Run("POST_with_body", func(t *testing.T) {
		body := strings.NewReader(`{"name": "Test", "value": 42}`)
		resp, err := doPost(ctx, client, baseURL+"/items", "application/json", body)
		if err != nil {
			t.Fatalf("POST /items failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			body, _ := io.ReadAll(resp.Body)
			t.Errorf("expected 201, got %d: %s", resp.StatusCode, body)
		}

		var result map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if result["table"] != "test-table" {
			t.Errorf("expected table=test-table, got %v", result["table"])
		}
		if result["name"] != "Test" {
			t.Errorf("expected name=Test, got %v", result["name"])
		}
	})

	t.Run("PathParams_and_Reverse", func(t *testing.T) {
		resp, err := doGet(ctx, client, baseURL+"/items/item-456")
		if err != nil {
			t.Fatalf("GET /items/item-456 failed: %v", err)
		}
		defer resp.Body.Close()

		var result map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if result["id"] != "item-456" {
			t.Errorf("expected id=item-456, got %v", result["id"])
		}
		if result["self_url"] != "/items/item-456" {
			t.Errorf("expected self_url=/items/item-456, got %v", result["self_url"])
		}
	})

	t.Run("Request_Deadline", func(t *testing.T) {
		resp, err := doGet(ctx, client, baseURL+"/deadline")
		if err != nil {
			t.Fatalf("GET /deadline failed: %v", err)
		}
		defer resp.Body.Close()

		var result map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if result["has_deadline"] != true {
			t.Error("expected the request context to carry a deadline")
		}

		remaining := result["remaining_ms"].(float64)
		if remaining <= 0 || remaining > float64((30*time.Second).Milliseconds()) {
			t.Errorf("expected remaining time within (0, 30s], got %vms", remaining)
		}
	})

	t.Run("Error_Envelope", func(t *testing.T) {
		resp, err := doGet(ctx, client, baseURL+"/boom")
		if err != nil {
			t.Fatalf("GET /boom failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", resp.StatusCode)
		}

		var result map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if result["statusCode"] != float64(http.StatusBadGateway) {
			t.Errorf("expected statusCode=502, got %v", result["statusCode"])
		}
		if result["message"] != "upstream exploded" {
			t.Errorf("expected message=upstream exploded, got %v", result["message"])
		}
	})

	t.Run("Health_Endpoint", func(t *testing.T) {
		resp, err := doGet(ctx, client, baseURL+"/ready")
		if err != nil {
			t.Fatalf("GET /ready failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
	})

	t.Run("Unknown_Route", func(t *testing.T) {
		resp, err := doGet(ctx, client, baseURL+"/nope")
		if err != nil {
			t.Fatalf("GET /nope failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", resp.StatusCode)
		}
	})
}

func TestApp_WebOptions(t *testing.T) {
	setTestEnv(t, 18082)

	app := servetest.New[TestEnv](t, itemsModule{},
		serve.WithWeb(whttp.WithGlobalPrefix("api")))
	app.RequireStart()
	t.Cleanup(app.RequireStop)

	baseURL := "http://localhost:18082"
	client := &http.Client{Timeout: 5 * time.Second}
	ctx := context.Background()

	waitReady(t, client, baseURL+"/healthz")

	t.Run("Prefixed_Route", func(t *testing.T) {
		resp, err := doGet(ctx, client, baseURL+"/api/items/abc")
		if err != nil {
			t.Fatalf("GET /api/items/abc failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}

		var result map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if result["self_url"] != "/api/items/abc" {
			t.Errorf("expected self_url=/api/items/abc, got %v", result["self_url"])
		}
	})

	t.Run("Unprefixed_Route_Misses", func(t *testing.T) {
		resp, err := doGet(ctx, client, baseURL+"/items/abc")
		if err != nil {
			t.Fatalf("GET /items/abc failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("Health_Stays_Unprefixed", func(t *testing.T) {
		resp, err := doGet(ctx, client, baseURL+"/healthz")
		if err != nil {
			t.Fatalf("GET /healthz failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
	})
}

package serve_test

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/advdv/whttp"
	"github.com/advdv/whttp/di"
	"github.com/advdv/whttp/serve"
	"github.com/advdv/whttp/serve/servetest"
)

// TestEnv is a test environment with app-specific fields beyond BaseEnvironment.
type TestEnv struct {
	serve.BaseEnvironment
	MainTableName string `env:"MAIN_TABLE_NAME,required"`
}

// setTestEnv sets the base test environment plus the TestEnv-specific vars.
func setTestEnv(t *testing.T, port int) *servetest.Env {
	t.Helper()
	t.Setenv("MAIN_TABLE_NAME", "test-table")
	return servetest.SetBaseEnv(t, port)
}

// ItemInput is the request body for item creation.
type ItemInput struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// ItemsController exercises runtime access, request context helpers and
// named-route reversal through a running server.
type ItemsController struct {
	rt *serve.Runtime[TestEnv]
}

func NewItemsController(rt *serve.Runtime[TestEnv]) *ItemsController {
	return &ItemsController{rt: rt}
}

func (c *ItemsController) Controller() *whttp.ControllerSpec {
	return whttp.NewController("").
		Route(whttp.Get("context"), c.Context, whttp.Request()).
		Route(whttp.Post("items").Status(http.StatusCreated), c.CreateItem, whttp.Body(&ItemInput{})).
		Route(whttp.Get("items/:id").Name("get-item"), c.GetItem, whttp.Param("id")).
		Route(whttp.Get("deadline"), c.Deadline, whttp.Request()).
		Route(whttp.Get("boom"), c.Boom)
}

func (c *ItemsController) Context(r *http.Request) (map[string]any, error) {
	ctx := r.Context()
	env := c.rt.Env()

	itemURL, err := c.rt.Reverse("get-item", "test-123")
	if err != nil {
		return nil, err
	}

	serve.Span(ctx).AddEvent("context-test")
	serve.Log(ctx).Info("testing context features")

	return map[string]any{
		"env": map[string]string{
			"table":        env.MainTableName,
			"service_name": env.ServiceName,
		},
		"request_id":   serve.RequestID(ctx),
		"lambda_nil":   serve.Lambda(ctx) == nil,
		"span_valid":   serve.Span(ctx).SpanContext().IsValid(),
		"reversed_url": itemURL,
	}, nil
}

func (c *ItemsController) CreateItem(input *ItemInput) map[string]any {
	return map[string]any{
		"id":    "item-123",
		"table": c.rt.Env().MainTableName,
		"name":  input.Name,
	}
}

func (c *ItemsController) GetItem(id string) (map[string]any, error) {
	selfURL, err := c.rt.Reverse("get-item", id)
	if err != nil {
		return nil, err
	}

	return map[string]any{"id": id, "self_url": selfURL}, nil
}

func (c *ItemsController) Deadline(r *http.Request) map[string]any {
	_, ok := serve.RequestDeadline(r.Context())

	return map[string]any{
		"has_deadline": ok,
		"remaining_ms": serve.RequestRemainingTime(r.Context()).Milliseconds(),
	}
}

func (c *ItemsController) Boom() error {
	return whttp.NewErrorf(whttp.CodeBadGateway, "upstream exploded")
}

// itemsModule mounts the controller; its runtime dependency is provided by
// the serve application itself.
type itemsModule struct{}

func (itemsModule) Module() whttp.ModuleSpec {
	return whttp.ModuleSpec{Controllers: []di.Class{{New: NewItemsController}}}
}

// doGet performs an HTTP GET with the given context.
func doGet(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return client.Do(req)
}

// doPost performs an HTTP POST with the given context and content type.
func doPost(ctx context.Context, client *http.Client, url, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	return client.Do(req)
}

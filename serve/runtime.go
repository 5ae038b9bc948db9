package serve

import (
	"context"
	"net/http"

	"github.com/advdv/whttp"
	"github.com/carlmjohnson/requests"
	"github.com/cockroachdb/errors"
)

// Runtime provides access to app-scoped harness dependencies. The harness
// registers it in the whttp container, so controllers declare it as a
// constructor dependency instead of pulling it from context.
//
// Example:
//
//	type ItemController struct {
//	    rt     *serve.Runtime[Env]
//	    dynamo *dynamodb.Client
//	}
//
//	func NewItemController(rt *serve.Runtime[Env], dynamo *dynamodb.Client) *ItemController {
//	    return &ItemController{rt: rt, dynamo: dynamo}
//	}
type Runtime[E Environment] struct {
	env       E
	app       *whttp.App
	transport http.RoundTripper
	secrets   SecretReader
}

// RuntimeParams holds optional dependencies for Runtime.
type RuntimeParams struct {
	Transport http.RoundTripper
	Secrets   SecretReader
}

// NewRuntime creates a new Runtime with the given dependencies.
func NewRuntime[E Environment](env E, app *whttp.App, params RuntimeParams) *Runtime[E] {
	return &Runtime[E]{
		env:       env,
		app:       app,
		transport: params.Transport,
		secrets:   params.Secrets,
	}
}

// Env returns the environment configuration.
func (r *Runtime[E]) Env() E {
	return r.env
}

// Reverse returns the URL for a named route with the given parameters.
// The route must have been registered with a name through its route spec.
func (r *Runtime[E]) Reverse(name string, params ...string) (string, error) {
	return r.app.Reverse(name, params...)
}

// NewRequest returns a [requests.Builder] on the instrumented transport so
// outbound calls create child spans and propagate trace context.
func (r *Runtime[E]) NewRequest() *requests.Builder {
	if r.transport == nil {
		return requests.New()
	}
	return newRequestBuilder(r.transport)
}

// Secret retrieves a secret value through the configured [SecretReader].
//
// The secretID is the secret name or ARN to read from (required).
// If jsonPath is provided, the secret is parsed as JSON and the path is
// extracted using gjson syntax (e.g., "database.password", "api.keys.0").
// If jsonPath is omitted, the raw secret string is returned.
//
// Example:
//
//	// Raw string secret
//	apiKey, err := rt.Secret(ctx, "my-api-key-secret")
//
//	// JSON secret with path extraction
//	password, err := rt.Secret(ctx, "my-db-credentials", "database.password")
func (r *Runtime[E]) Secret(ctx context.Context, secretID string, jsonPath ...string) (string, error) {
	if r.secrets == nil {
		return "", errors.New("serve: secret reader not configured")
	}
	return secretFromReader(ctx, r.secrets, secretID, jsonPath...)
}

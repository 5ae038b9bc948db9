package whttp

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/advdv/whttp/di"
	"github.com/advdv/whttp/router"
	"github.com/cockroachdb/errors"
)

// Platform exposes deployment-platform capabilities to handler code. The main
// one is detaching work so it can outlive the response. Server adapters
// provide implementations that track the work for draining at shutdown; the
// default runs plain goroutines.
type Platform interface {
	WaitUntil(fn func(ctx context.Context) error)
}

type goPlatform struct{ logs Logger }

func (p goPlatform) WaitUntil(fn func(ctx context.Context) error) {
	go func() {
		if err := fn(context.Background()); err != nil {
			p.logs.LogDetachedTaskError(err)
		}
	}()
}

// RouteInfo describes one registered route for introspection. The path is the
// full external path, including the global prefix and version segment.
type RouteInfo struct {
	Method     string
	Path       string
	Name       string
	Controller string
	Handler    string
}

// Ctx is the per-request execution context handed to guards, interceptors,
// pipes, exception filters and handlers. It carries the raw request, the
// matched route, path parameters, a request-scoped container and a small bag
// for passing values between pipeline stages. Methods are safe for concurrent
// use.
type Ctx struct {
	req      *http.Request
	route    *RouteInfo
	params   router.Params
	bindings map[string]string
	platform Platform
	scope    *di.Container
	response *Response

	mu    sync.Mutex
	bag   map[string]any
	query url.Values
	body  []byte
	read  bool
	ip    string
	ipSet bool
}

// Request returns the raw http request.
func (c *Ctx) Request() *http.Request { return c.req }

// Route returns information about the matched route, or nil when no route
// matched (as seen by exception filters handling a not-found error).
func (c *Ctx) Route() *RouteInfo { return c.route }

// Param returns the value bound to the named path parameter.
func (c *Ctx) Param(name string) string { return c.params[name] }

// Params returns a copy of all bound path parameters.
func (c *Ctx) Params() map[string]string {
	out := make(map[string]string, len(c.params))
	for name, val := range c.params {
		out[name] = val
	}

	return out
}

// Query returns the first value of the named query parameter. The query
// string is parsed once and cached.
func (c *Ctx) Query(name string) string { return c.queryValues().Get(name) }

// Queries returns all parsed query parameters.
func (c *Ctx) Queries() url.Values { return c.queryValues() }

func (c *Ctx) queryValues() url.Values {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.query == nil {
		c.query = c.req.URL.Query()
	}

	return c.query
}

// Header returns the named request header.
func (c *Ctx) Header(name string) string { return c.req.Header.Get(name) }

// Body returns the request body, reading and caching it on first use so that
// multiple pipeline stages can consume it.
func (c *Ctx) Body() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.read {
		return c.body, nil
	}

	if c.req.Body != nil {
		raw, err := io.ReadAll(c.req.Body)
		if err != nil {
			return nil, errors.Wrap(err, "read request body")
		}

		c.body = raw
	}

	c.read = true

	return c.body, nil
}

// ClientIP returns the caller's address, honoring X-Forwarded-For and
// X-Real-Ip before falling back to the connection's remote address.
func (c *Ctx) ClientIP() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ipSet {
		return c.ip
	}

	switch {
	case c.req.Header.Get("X-Forwarded-For") != "":
		fwd := c.req.Header.Get("X-Forwarded-For")
		c.ip = strings.TrimSpace(strings.Split(fwd, ",")[0])
	case c.req.Header.Get("X-Real-Ip") != "":
		c.ip = c.req.Header.Get("X-Real-Ip")
	default:
		host, _, err := net.SplitHostPort(c.req.RemoteAddr)
		if err != nil {
			host = c.req.RemoteAddr
		}

		c.ip = host
	}

	c.ipSet = true

	return c.ip
}

// Binding returns an application-level binding by name, the framework's
// analog of platform environment bindings.
func (c *Ctx) Binding(name string) (string, bool) {
	val, ok := c.bindings[name]
	return val, ok
}

// Set stores a value in the request bag, typically from a guard or
// interceptor for a later pipeline stage.
func (c *Ctx) Set(key string, val any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bag == nil {
		c.bag = map[string]any{}
	}

	c.bag[key] = val
}

// Get reads a value from the request bag.
func (c *Ctx) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	val, ok := c.bag[key]

	return val, ok
}

// Container returns the request-scoped container. Providers with the request
// scope resolved through it are shared for the duration of this request.
func (c *Ctx) Container() *di.Container { return c.scope }

// Platform returns the deployment platform the request runs on.
func (c *Ctx) Platform() Platform { return c.platform }

// Response returns the response builder. Status and headers set on it are
// merged into the materialized response.
func (c *Ctx) Response() *Response { return c.response }

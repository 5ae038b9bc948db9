package whttp

import (
	"context"
	"net/http"

	"github.com/advdv/whttp/router"
)

// ControllerSpec declares a controller's base path, its enhancers and its
// routes. Build one with [NewController] and return it from the controller's
// Controller method.
type ControllerSpec struct {
	basePath     string
	guards       []GuardRef
	interceptors []InterceptorRef
	pipes        []PipeRef
	routes       []routeDecl
}

type routeDecl struct {
	method       string
	path         string
	name         string
	status       int
	headers      map[string]string
	guards       []GuardRef
	interceptors []InterceptorRef
	pipes        []PipeRef
	handler      any
	params       []ParamSpec
}

// NewController inits a controller declaration with the given base path. All
// of the controller's routes are mounted below it.
func NewController(basePath string) *ControllerSpec {
	return &ControllerSpec{basePath: basePath}
}

// Guard adds guards that run for every route of the controller, before any
// route-level guards.
func (s *ControllerSpec) Guard(refs ...GuardRef) *ControllerSpec {
	s.guards = append(s.guards, refs...)
	return s
}

// Intercept adds interceptors that wrap every route of the controller,
// outside any route-level interceptors.
func (s *ControllerSpec) Intercept(refs ...InterceptorRef) *ControllerSpec {
	s.interceptors = append(s.interceptors, refs...)
	return s
}

// Pipe adds pipes applied to every bound argument of the controller's
// routes, before any route-level pipes.
func (s *ControllerSpec) Pipe(refs ...PipeRef) *ControllerSpec {
	s.pipes = append(s.pipes, refs...)
	return s
}

// Route mounts a handler. The handler must be a non-variadic function with
// one input per param spec, returning nothing, an error, a result, or a
// result and an error.
func (s *ControllerSpec) Route(r *RouteSpec, handler any, params ...ParamSpec) *ControllerSpec {
	s.routes = append(s.routes, routeDecl{
		method:       r.method,
		path:         r.path,
		name:         r.name,
		status:       r.status,
		headers:      r.headers,
		guards:       r.guards,
		interceptors: r.interceptors,
		pipes:        r.pipes,
		handler:      handler,
		params:       params,
	})

	return s
}

// RouteSpec declares one route's method, path template and per-route
// metadata. Build one with [Get], [Post] and friends.
type RouteSpec struct {
	method       string
	path         string
	name         string
	status       int
	headers      map[string]string
	guards       []GuardRef
	interceptors []InterceptorRef
	pipes        []PipeRef
}

// Method inits a route declaration for an arbitrary http method.
func Method(method, path string) *RouteSpec {
	return &RouteSpec{method: method, path: path}
}

func Get(path string) *RouteSpec     { return Method(http.MethodGet, path) }
func Post(path string) *RouteSpec    { return Method(http.MethodPost, path) }
func Put(path string) *RouteSpec     { return Method(http.MethodPut, path) }
func Patch(path string) *RouteSpec   { return Method(http.MethodPatch, path) }
func Delete(path string) *RouteSpec  { return Method(http.MethodDelete, path) }
func Head(path string) *RouteSpec    { return Method(http.MethodHead, path) }
func Options(path string) *RouteSpec { return Method(http.MethodOptions, path) }

// All inits a route that matches any http method not claimed by a more
// specific registration on the same path.
func All(path string) *RouteSpec { return Method(router.MethodAll, path) }

// Name gives the route a unique name for reversing and introspection.
func (r *RouteSpec) Name(name string) *RouteSpec {
	r.name = name
	return r
}

// Status sets the default response status used when the handler does not set
// one itself.
func (r *RouteSpec) Status(code int) *RouteSpec {
	r.status = code
	return r
}

// Header adds a static response header set on every materialized response of
// this route.
func (r *RouteSpec) Header(key, value string) *RouteSpec {
	if r.headers == nil {
		r.headers = map[string]string{}
	}

	r.headers[key] = value

	return r
}

// Guard adds guards that run for this route only.
func (r *RouteSpec) Guard(refs ...GuardRef) *RouteSpec {
	r.guards = append(r.guards, refs...)
	return r
}

// Intercept adds interceptors that wrap this route only.
func (r *RouteSpec) Intercept(refs ...InterceptorRef) *RouteSpec {
	r.interceptors = append(r.interceptors, refs...)
	return r
}

// Pipe adds pipes applied to every bound argument of this route.
func (r *RouteSpec) Pipe(refs ...PipeRef) *RouteSpec {
	r.pipes = append(r.pipes, refs...)
	return r
}

// ParamSource identifies where a handler argument comes from.
type ParamSource string

const (
	SourcePath     ParamSource = "param"
	SourceQuery    ParamSource = "query"
	SourceBody     ParamSource = "body"
	SourceHeader   ParamSource = "headers"
	SourceRequest  ParamSource = "request"
	SourceResponse ParamSource = "response"
	SourceContext  ParamSource = "context"
	SourceEnv      ParamSource = "env"
	SourceCustom   ParamSource = "custom"
)

// ParamSpec describes how one handler argument is extracted from the request
// and which pipes transform it before the handler runs.
type ParamSpec struct {
	Source ParamSource
	Name   string
	Data   any
	Pipes  []PipeRef
	Custom func(ctx context.Context, ec *Ctx) (any, error)
}

// ArgumentMeta describes the argument a pipe is transforming.
type ArgumentMeta struct {
	Index  int
	Source ParamSource
	Name   string
	Data   any
}

// Param binds a path parameter by name.
func Param(name string, pipes ...PipeRef) ParamSpec {
	return ParamSpec{Source: SourcePath, Name: name, Pipes: pipes}
}

// Query binds the first value of a query parameter. An empty name binds the
// full url.Values map.
func Query(name string, pipes ...PipeRef) ParamSpec {
	return ParamSpec{Source: SourceQuery, Name: name, Pipes: pipes}
}

// Body binds the request body. A nil prototype binds the raw bytes; a pointer
// prototype binds a freshly decoded JSON value of the same type.
func Body(prototype any, pipes ...PipeRef) ParamSpec {
	return ParamSpec{Source: SourceBody, Data: prototype, Pipes: pipes}
}

// Header binds a request header by name.
func Header(name string, pipes ...PipeRef) ParamSpec {
	return ParamSpec{Source: SourceHeader, Name: name, Pipes: pipes}
}

// Request binds the raw *http.Request.
func Request() ParamSpec {
	return ParamSpec{Source: SourceRequest}
}

// Res binds the response builder so the handler can set headers and the
// status code imperatively.
func Res() ParamSpec {
	return ParamSpec{Source: SourceResponse}
}

// Context binds the execution context itself.
func Context() ParamSpec {
	return ParamSpec{Source: SourceContext}
}

// Env binds an application-level binding by name, an empty string when the
// binding does not exist.
func Env(name string, pipes ...PipeRef) ParamSpec {
	return ParamSpec{Source: SourceEnv, Name: name, Pipes: pipes}
}

// Custom binds the result of the given extractor function.
func Custom(fn func(ctx context.Context, ec *Ctx) (any, error), pipes ...PipeRef) ParamSpec {
	return ParamSpec{Source: SourceCustom, Custom: fn, Pipes: pipes}
}

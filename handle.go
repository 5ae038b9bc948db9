package whttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/advdv/whttp/router"
	"github.com/cockroachdb/errors"
)

type outKind int

const (
	outNone outKind = iota
	outErrOnly
	outValue
	outValueErr
)

// boundParam is the compiled binding plan for one handler argument.
type boundParam struct {
	spec  ParamSpec
	pipes []Pipe
	typ   reflect.Type
}

// routeHandler is the compiled form of one route: the reflected handler with
// its binding plan and the enhancers merged in execution order.
type routeHandler struct {
	info    *RouteInfo
	status  int
	headers map[string]string

	guards       []Guard
	interceptors []Interceptor
	argPipes     []Pipe

	fn      reflect.Value
	params  []boundParam
	outKind outKind
}

// ServeHTTP implements http.Handler, initializing the application on the
// first request if [App.Init] was never called.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := a.Init(context.Background()); err != nil {
		a.logs.LogUnhandledPipelineError(err)

		// if bootstrap fails we don't want the client to end up with a white
		// screen so we render a 500 error with the standard text.
		http.Error(w,
			http.StatusText(http.StatusInternalServerError),
			http.StatusInternalServerError)

		return
	}

	if err := a.handle(r).writeTo(w); err != nil {
		a.logs.LogResponseWriteError(err)
	}
}

// handle runs one request through the pipeline and always produces a
// response: pipeline errors funnel through the exception filters into the
// error envelope.
func (a *App) handle(r *http.Request) *Response {
	if a.cors != nil && isPreflight(r) {
		resp := &Response{StatusCode: http.StatusNoContent, Header: http.Header{}}
		a.cors.apply(resp, r, true)

		return resp
	}

	path := r.URL.Path
	if a.prefix != "" {
		path = stripSegmentPrefix(path, a.prefix)
	}

	var resp *Response

	route, params, ok := a.router.Match(r.Method, path)
	if ok {
		rh := route.Handler.(*routeHandler) //nolint:forcetypeassert
		ec := a.newCtx(r, rh, params)

		result, err := a.execute(r.Context(), rh, ec)
		if err == nil {
			resp, err = materialize(result, ec.response, rh.status, rh.headers)
		}

		if err != nil {
			resp = a.funnel(r.Context(), err, ec)
		}
	} else {
		resp = a.funnel(r.Context(),
			NewErrorf(CodeNotFound, "no handler for %s %s", r.Method, r.URL.Path),
			a.newCtx(r, nil, nil))
	}

	if a.cors != nil {
		a.cors.apply(resp, r, false)
	}

	return resp
}

func (a *App) newCtx(r *http.Request, rh *routeHandler, params router.Params) *Ctx {
	ec := &Ctx{
		req:      r,
		params:   params,
		bindings: a.bindings,
		platform: a.platform,
		scope:    a.cont.CreateRequestScope(),
		response: NewResponse(),
	}

	if rh != nil {
		ec.route = rh.info
	}

	return ec
}

// execute runs the guard stage and then the interceptor chain around the
// handler, returning the raw handler result.
func (a *App) execute(ctx context.Context, rh *routeHandler, ec *Ctx) (any, error) {
	for _, g := range rh.guards {
		ok, err := g.CanActivate(ctx, ec)
		if err != nil {
			return nil, err
		}

		if !ok {
			return nil, NewErrorf(CodeForbidden, "forbidden resource")
		}
	}

	inner := func(ctx context.Context) (any, error) {
		return a.invoke(ctx, rh, ec)
	}

	return wrapInterceptors(inner, ec, rh.interceptors...)(ctx)
}

// invoke binds and transforms every argument, calls the handler and unpacks
// its results.
func (a *App) invoke(ctx context.Context, rh *routeHandler, ec *Ctx) (any, error) {
	args := make([]reflect.Value, len(rh.params))
	for i := range rh.params {
		val, err := a.bindArg(ctx, rh, i, ec)
		if err != nil {
			return nil, err
		}

		argV, err := conformArg(val, rh.params[i].typ, i, rh.info)
		if err != nil {
			return nil, err
		}

		args[i] = argV
	}

	out := rh.fn.Call(args)
	switch rh.outKind {
	case outNone:
		return nil, nil
	case outErrOnly:
		return nil, errValue(out[0])
	case outValue:
		return resultValue(out[0]), nil
	default: // outValueErr
		if err := errValue(out[1]); err != nil {
			return nil, err
		}

		return resultValue(out[0]), nil
	}
}

// bindArg extracts one argument from its source and runs it through the
// param's own pipes followed by the route's merged pipes.
func (a *App) bindArg(ctx context.Context, rh *routeHandler, idx int, ec *Ctx) (any, error) {
	par := rh.params[idx]
	meta := ArgumentMeta{Index: idx, Source: par.spec.Source, Name: par.spec.Name, Data: par.spec.Data}

	val, err := extractArg(ctx, par.spec, ec)
	if err != nil {
		return nil, err
	}

	for _, pipe := range par.pipes {
		if val, err = pipe.Transform(ctx, val, meta); err != nil {
			return nil, err
		}
	}

	for _, pipe := range rh.argPipes {
		if val, err = pipe.Transform(ctx, val, meta); err != nil {
			return nil, err
		}
	}

	return val, nil
}

func extractArg(ctx context.Context, spec ParamSpec, ec *Ctx) (any, error) {
	switch spec.Source {
	case SourcePath:
		return ec.Param(spec.Name), nil
	case SourceQuery:
		if spec.Name == "" {
			return ec.Queries(), nil
		}

		return ec.Query(spec.Name), nil
	case SourceBody:
		return decodeBody(spec, ec)
	case SourceHeader:
		return ec.Header(spec.Name), nil
	case SourceRequest:
		req := ec.Request()
		if ctx != req.Context() {
			// the bound request carries the pipeline context, which guards
			// and interceptors may have derived from the one it arrived with.
			req = req.WithContext(ctx)
		}

		return req, nil
	case SourceResponse:
		return ec.Response(), nil
	case SourceContext:
		return ec, nil
	case SourceEnv:
		val, _ := ec.Binding(spec.Name)
		return val, nil
	case SourceCustom:
		if spec.Custom == nil {
			return nil, errors.New("whttp: custom binding without an extractor")
		}

		return spec.Custom(ctx, ec)
	default:
		return nil, errors.Newf("whttp: unknown param source %q", spec.Source)
	}
}

// decodeBody reads the cached request body and decodes it into a fresh value
// of the prototype's type, or returns the raw bytes when there is none.
func decodeBody(spec ParamSpec, ec *Ctx) (any, error) {
	raw, err := ec.Body()
	if err != nil {
		return nil, NewError(CodeBadRequest, err)
	}

	if spec.Data == nil {
		return raw, nil
	}

	protoT := reflect.TypeOf(spec.Data)
	targetT := protoT
	if targetT.Kind() == reflect.Pointer {
		targetT = targetT.Elem()
	}

	target := reflect.New(targetT)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, target.Interface()); err != nil {
			return nil, NewError(CodeBadRequest, errors.Wrap(err, "decode request body"))
		}
	}

	if protoT.Kind() == reflect.Pointer {
		return target.Interface(), nil
	}

	return target.Elem().Interface(), nil
}

func conformArg(val any, typ reflect.Type, idx int, info *RouteInfo) (reflect.Value, error) {
	if val == nil {
		return reflect.Zero(typ), nil
	}

	valV := reflect.ValueOf(val)
	if !valV.Type().AssignableTo(typ) {
		return reflect.Value{}, errors.Newf("whttp: argument %d of %s %s: have %T, want %s",
			idx, info.Method, info.Path, val, typ)
	}

	return valV, nil
}

func errValue(rv reflect.Value) error {
	if rv.IsNil() {
		return nil
	}

	return rv.Interface().(error) //nolint:forcetypeassert
}

// resultValue normalizes typed nils so they materialize as empty responses.
func resultValue(rv reflect.Value) any {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return nil
		}
	}

	return rv.Interface()
}

// funnel gives each exception filter a chance to produce the response and
// falls back to the error envelope. Filter failures are logged and skipped.
func (a *App) funnel(ctx context.Context, err error, ec *Ctx) *Response {
	for _, f := range a.filters {
		resp, ferr := f.Catch(ctx, err, ec)
		if ferr != nil {
			a.logs.LogSwallowedFilterError(ferr)
			continue
		}

		if resp != nil {
			if resp.Header == nil {
				resp.Header = http.Header{}
			}

			return resp
		}
	}

	return a.errorResponse(err)
}

// errorResponse renders the error envelope: the status code, a message and,
// in dev mode, the error's stack. Unrecognized errors become opaque internal
// server errors so nothing accidental leaks to the client.
func (a *App) errorResponse(err error) *Response {
	code := CodeInternalServerError
	envelope := map[string]any{"message": http.StatusText(http.StatusInternalServerError)}

	var extra http.Header

	httpErr, ok := asError(err)
	switch {
	case ok && httpErr.Body() != nil:
		if body, isMap := httpErr.Body().(map[string]any); isMap {
			envelope = map[string]any{}
			for key, val := range body {
				envelope[key] = val
			}
		} else {
			envelope = map[string]any{"message": httpErr.Body()}
		}
	case ok:
		envelope = map[string]any{"message": httpErr.Unwrap().Error()}
	default:
		a.logs.LogUnhandledPipelineError(err)
	}

	if ok {
		if httpErr.Code() != CodeUnknown {
			code = httpErr.Code()
		}

		extra = httpErr.Header()
	}

	envelope["statusCode"] = int(code)
	if a.dev {
		envelope["stack"] = fmt.Sprintf("%+v", err)
	}

	raw, jerr := json.Marshal(envelope)
	if jerr != nil {
		raw = []byte(`{"statusCode":500,"message":"Internal Server Error"}`)
	}

	resp := &Response{StatusCode: int(code), Header: http.Header{}, Body: raw}
	resp.Header.Set("Content-Type", "application/json")

	for key, vals := range extra {
		for _, val := range vals {
			resp.Header.Add(key, val)
		}
	}

	return resp
}

// stripSegmentPrefix removes the global prefix for route lookup while the
// request itself keeps its full path. Paths outside the prefix pass through
// unchanged.
func stripSegmentPrefix(path, prefix string) string {
	trimmed := strings.TrimPrefix(path, "/"+prefix)
	if trimmed == path || (trimmed != "" && trimmed[0] != '/') {
		return path
	}

	if trimmed == "" {
		return "/"
	}

	return trimmed
}

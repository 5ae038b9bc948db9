package whttp

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"reflect"
	"runtime"
	"strings"
	"sync"

	"github.com/advdv/whttp/di"
	"github.com/advdv/whttp/router"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

// Option configures the application.
type Option func(a *App)

// WithLogger sets the logger informed about the application's notable
// events. It is also handed to the container and the router.
func WithLogger(logs Logger) Option { return func(a *App) { a.logs = logs } }

// WithContainer supplies a pre-built container instead of a fresh one, so
// providers can be registered before the application exists.
func WithContainer(cont *di.Container) Option { return func(a *App) { a.cont = cont } }

// WithGlobalPrefix mounts every route below the given path prefix. The
// prefix is stripped for route lookup; handlers see the original request.
func WithGlobalPrefix(prefix string) Option {
	return func(a *App) { a.prefix = strings.Trim(prefix, "/") }
}

// WithVersion prepends a version segment, e.g. "v1", to every route path.
func WithVersion(version string) Option {
	return func(a *App) { a.version = strings.Trim(version, "/") }
}

// WithCORS enables cross-origin resource sharing, including the preflight
// short-circuit.
func WithCORS(cors CORS) Option { return func(a *App) { a.cors = &cors } }

// WithDevMode includes a stack field in error envelopes. Never enable it in
// production.
func WithDevMode() Option { return func(a *App) { a.dev = true } }

// WithBindings supplies the application-level bindings exposed through
// [Ctx.Binding] and the [Env] param source.
func WithBindings(bindings map[string]string) Option {
	return func(a *App) { a.bindings = bindings }
}

// WithPlatform sets the deployment platform handed to handlers. The default
// runs detached work on plain goroutines.
func WithPlatform(platform Platform) Option { return func(a *App) { a.platform = platform } }

// WithGuards adds guards that run first on every route.
func WithGuards(refs ...GuardRef) Option {
	return func(a *App) { a.guardRefs = append(a.guardRefs, refs...) }
}

// WithInterceptors adds interceptors wrapping every route, outside any
// controller or route-level ones.
func WithInterceptors(refs ...InterceptorRef) Option {
	return func(a *App) { a.interceptorRefs = append(a.interceptorRefs, refs...) }
}

// WithPipes adds pipes applied to every bound argument of every route.
func WithPipes(refs ...PipeRef) Option {
	return func(a *App) { a.pipeRefs = append(a.pipeRefs, refs...) }
}

// WithFilters adds the application's exception filters, tried in order.
func WithFilters(refs ...FilterRef) Option {
	return func(a *App) { a.filterRefs = append(a.filterRefs, refs...) }
}

// App hosts a module graph behind an http.Handler: it walks the modules to
// fill the container, instantiates their controllers, mounts the declared
// routes and runs each request through the guard, interceptor, pipe and
// exception filter stages.
type App struct {
	logs     Logger
	cont     *di.Container
	router   *router.Router
	root     Module
	prefix   string
	version  string
	cors     *CORS
	dev      bool
	bindings map[string]string
	platform Platform

	guardRefs       []GuardRef
	interceptorRefs []InterceptorRef
	pipeRefs        []PipeRef
	filterRefs      []FilterRef
	filters         []ExceptionFilter

	mu          sync.Mutex
	initialized bool
	initErr     error
	seen        map[Module]struct{}
	controllers []di.Class
	instances   []any
	handlers    []*routeHandler
}

// New inits an application serving the given root module. Initialization is
// deferred to [App.Init] or the first request.
func New(root Module, opts ...Option) *App {
	app := &App{
		root: root,
		logs: NewStdLogger(log.Default()),
		seen: map[Module]struct{}{},
	}

	for _, opt := range opts {
		opt(app)
	}

	if app.cont == nil {
		app.cont = di.NewWith(app.logs)
	}

	if app.platform == nil {
		app.platform = goPlatform{logs: app.logs}
	}

	app.router = router.NewWith(app.logs)

	return app
}

// Container returns the application's root container.
func (a *App) Container() *di.Container { return a.cont }

// Init walks the module graph, registers providers and routes and runs the
// init and bootstrap lifecycle hooks. It runs at most once; later calls and
// requests observe the first outcome.
func (a *App) Init(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.initialized {
		return a.initErr
	}

	a.initialized = true
	a.initErr = a.init(ctx)

	return a.initErr
}

func (a *App) init(ctx context.Context) error {
	if err := a.walkModule(ctx, a.root); err != nil {
		return err
	}

	guards, err := resolveEnhancers[Guard](ctx, a.cont, a.guardRefs)
	if err != nil {
		return err
	}

	ics, err := resolveEnhancers[Interceptor](ctx, a.cont, a.interceptorRefs)
	if err != nil {
		return err
	}

	pipes, err := resolveEnhancers[Pipe](ctx, a.cont, a.pipeRefs)
	if err != nil {
		return err
	}

	a.filters, err = resolveEnhancers[ExceptionFilter](ctx, a.cont, a.filterRefs)
	if err != nil {
		return err
	}

	for _, class := range a.controllers {
		if err := a.cont.Register(class); err != nil {
			return err
		}

		tok := class.Token()

		inst, err := a.cont.ResolveCtx(ctx, tok)
		if err != nil {
			return errors.Wrapf(err, "whttp: instantiate controller %s", di.TokenName(tok))
		}

		ctrl, ok := inst.(Controller)
		if !ok {
			return errors.Newf("whttp: %s does not implement Controller", di.TokenName(tok))
		}

		if err := a.mountController(ctx, ctrl, guards, ics, pipes); err != nil {
			return err
		}

		a.instances = append(a.instances, inst)
	}

	for _, inst := range a.instances {
		if hook, ok := inst.(OnModuleInit); ok {
			if err := hook.OnModuleInit(ctx); err != nil {
				return errors.Wrapf(err, "whttp: init %T", inst)
			}
		}
	}

	for _, inst := range a.instances {
		if hook, ok := inst.(OnApplicationBootstrap); ok {
			if err := hook.OnApplicationBootstrap(ctx); err != nil {
				return errors.Wrapf(err, "whttp: bootstrap %T", inst)
			}
		}
	}

	return nil
}

// walkModule registers a module's graph depth-first: imported modules
// contribute their providers before the importing module's own, so
// controller dependencies are available by the time controllers build.
func (a *App) walkModule(ctx context.Context, mod Module) error {
	if mod == nil {
		return errors.New("whttp: nil module")
	}

	if !reflect.TypeOf(mod).Comparable() {
		return errors.Newf("whttp: module %T is not comparable, implement Module on a pointer type", mod)
	}

	if _, ok := a.seen[mod]; ok {
		return nil
	}

	a.seen[mod] = struct{}{}

	spec := mod.Module()
	for _, imp := range spec.Imports {
		if err := a.walkModule(ctx, imp); err != nil {
			return err
		}
	}

	for _, dyn := range spec.DynamicImports {
		sub, err := dyn(ctx)
		if err != nil {
			return errors.Wrapf(err, "whttp: dynamic import of %T", mod)
		}

		if err := a.walkModule(ctx, sub); err != nil {
			return err
		}
	}

	for _, prov := range spec.Providers {
		if err := a.cont.Register(prov); err != nil {
			return err
		}
	}

	a.instances = append(a.instances, mod)
	a.controllers = append(a.controllers, spec.Controllers...)

	return nil
}

func (a *App) mountController(
	ctx context.Context, ctrl Controller, guards []Guard, ics []Interceptor, pipes []Pipe,
) error {
	spec := ctrl.Controller()
	if spec == nil {
		return errors.Newf("whttp: %T returned a nil controller spec", ctrl)
	}

	ctrlGuards, err := resolveEnhancers[Guard](ctx, a.cont, spec.guards)
	if err != nil {
		return err
	}

	ctrlIcs, err := resolveEnhancers[Interceptor](ctx, a.cont, spec.interceptors)
	if err != nil {
		return err
	}

	ctrlPipes, err := resolveEnhancers[Pipe](ctx, a.cont, spec.pipes)
	if err != nil {
		return err
	}

	for _, decl := range spec.routes {
		rh, err := a.compileRoute(ctx, ctrl, spec, decl)
		if err != nil {
			return err
		}

		rh.guards = lo.Flatten([][]Guard{guards, ctrlGuards, rh.guards})
		rh.interceptors = lo.Flatten([][]Interceptor{ics, ctrlIcs, rh.interceptors})
		rh.argPipes = lo.Flatten([][]Pipe{pipes, ctrlPipes, rh.argPipes})

		mount := joinPath(a.version, spec.basePath, decl.path)
		if decl.name == "" {
			a.router.Register(decl.method, mount, rh)
		} else {
			a.router.Register(decl.method, mount, rh, decl.name)
		}

		a.handlers = append(a.handlers, rh)
	}

	return nil
}

// compileRoute validates the handler's shape against the declared param
// bindings and resolves the route's own enhancers.
func (a *App) compileRoute(
	ctx context.Context, ctrl Controller, spec *ControllerSpec, decl routeDecl,
) (*routeHandler, error) {
	if decl.handler == nil {
		return nil, errors.Newf("whttp: route %s %s has no handler", decl.method, decl.path)
	}

	fnV := reflect.ValueOf(decl.handler)
	fnT := fnV.Type()
	if fnT.Kind() != reflect.Func || fnT.IsVariadic() {
		return nil, errors.Newf("whttp: handler for %s %s must be a non-variadic function, got %T",
			decl.method, decl.path, decl.handler)
	}

	if fnT.NumIn() != len(decl.params) {
		return nil, errors.Newf("whttp: handler for %s %s takes %d arguments but %d bindings are declared",
			decl.method, decl.path, fnT.NumIn(), len(decl.params))
	}

	var kind outKind
	switch {
	case fnT.NumOut() == 0:
		kind = outNone
	case fnT.NumOut() == 1 && fnT.Out(0) == errType:
		kind = outErrOnly
	case fnT.NumOut() == 1:
		kind = outValue
	case fnT.NumOut() == 2 && fnT.Out(1) == errType:
		kind = outValueErr
	default:
		return nil, errors.Newf("whttp: handler for %s %s must return nothing, error, T or (T, error)",
			decl.method, decl.path)
	}

	params := make([]boundParam, len(decl.params))
	for i, ps := range decl.params {
		if err := checkParamType(ps, fnT.In(i)); err != nil {
			return nil, errors.Wrapf(err, "whttp: argument %d of handler for %s %s", i, decl.method, decl.path)
		}

		paramPipes, err := resolveEnhancers[Pipe](ctx, a.cont, ps.Pipes)
		if err != nil {
			return nil, err
		}

		params[i] = boundParam{spec: ps, pipes: paramPipes, typ: fnT.In(i)}
	}

	guards, err := resolveEnhancers[Guard](ctx, a.cont, decl.guards)
	if err != nil {
		return nil, err
	}

	ics, err := resolveEnhancers[Interceptor](ctx, a.cont, decl.interceptors)
	if err != nil {
		return nil, err
	}

	pipes, err := resolveEnhancers[Pipe](ctx, a.cont, decl.pipes)
	if err != nil {
		return nil, err
	}

	return &routeHandler{
		info: &RouteInfo{
			Method:     decl.method,
			Path:       joinPath(a.prefix, a.version, spec.basePath, decl.path),
			Name:       decl.name,
			Controller: fmt.Sprintf("%T", ctrl),
			Handler:    handlerName(fnV),
		},
		status:       decl.status,
		headers:      decl.headers,
		guards:       guards,
		interceptors: ics,
		argPipes:     pipes,
		fn:           fnV,
		params:       params,
		outKind:      kind,
	}, nil
}

// checkParamType rejects bindings whose fixed source can never produce the
// handler's argument type, so the mismatch surfaces at bootstrap.
func checkParamType(ps ParamSpec, typ reflect.Type) error {
	switch ps.Source {
	case SourceRequest:
		if typ != reflect.TypeOf((*http.Request)(nil)) {
			return errors.Newf("request binds *http.Request, handler wants %s", typ)
		}
	case SourceResponse:
		if typ != reflect.TypeOf((*Response)(nil)) {
			return errors.Newf("response binds *whttp.Response, handler wants %s", typ)
		}
	case SourceContext:
		if typ != reflect.TypeOf((*Ctx)(nil)) {
			return errors.Newf("context binds *whttp.Ctx, handler wants %s", typ)
		}
	}

	return nil
}

// Routes returns information about every mounted route, in registration
// order. It is empty until the application initialized.
func (a *App) Routes() []RouteInfo {
	a.mu.Lock()
	defer a.mu.Unlock()

	infos := make([]RouteInfo, 0, len(a.handlers))
	for _, rh := range a.handlers {
		infos = append(infos, *rh.info)
	}

	return infos
}

// Reverse generates the external path for a named route, including the
// global prefix, from the given parameter values.
func (a *App) Reverse(name string, vals ...string) (string, error) {
	path, err := a.router.Reverse(name, vals...)
	if err != nil {
		return "", err
	}

	if a.prefix != "" {
		path = joinPath(a.prefix, path)
	}

	return path, nil
}

// Shutdown runs the destroy lifecycle hooks in reverse registration order
// and clears the container. Registrations and provided values survive, so a
// later request re-initializes nothing but re-resolves everything else.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.initialized {
		return nil
	}

	var result error
	for i := len(a.instances) - 1; i >= 0; i-- {
		if hook, ok := a.instances[i].(OnModuleDestroy); ok {
			if err := hook.OnModuleDestroy(ctx); err != nil {
				result = errors.CombineErrors(result, err)
			}
		}
	}

	a.cont.Clear()

	return result
}

var errType = reflect.TypeOf((*error)(nil)).Elem()

func handlerName(fnV reflect.Value) string {
	fn := runtime.FuncForPC(fnV.Pointer())
	if fn == nil {
		return "func"
	}

	name := fn.Name()
	if idx := strings.LastIndexByte(name, '/'); idx >= 0 {
		name = name[idx+1:]
	}

	return name
}

// joinPath joins path parts into a normalized absolute path, dropping empty
// segments.
func joinPath(parts ...string) string {
	var segs []string
	for _, part := range parts {
		for _, seg := range strings.Split(part, "/") {
			if seg != "" {
				segs = append(segs, seg)
			}
		}
	}

	return "/" + strings.Join(segs, "/")
}

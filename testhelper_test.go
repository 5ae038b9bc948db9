package whttp_test

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/advdv/whttp"
	"github.com/advdv/whttp/di"
)

// GreetService is the innermost dependency of the test application.
type GreetService struct{ prefix string }

func NewGreetService() *GreetService { return &GreetService{prefix: "Hello"} }

func (s *GreetService) Greet(name string) string {
	return fmt.Sprintf("%s, %s", s.prefix, name)
}

// GreetController mounts a plain text route with a single path parameter.
type GreetController struct{ svc *GreetService }

func NewGreetController(svc *GreetService) *GreetController {
	return &GreetController{svc: svc}
}

func (c *GreetController) Controller() *whttp.ControllerSpec {
	return whttp.NewController("greet").
		Route(whttp.Get("/:name").Name("greet"), c.Greet, whttp.Param("name"))
}

func (c *GreetController) Greet(name string) string { return c.svc.Greet(name) }

type greetModule struct{}

func (greetModule) Module() whttp.ModuleSpec {
	return whttp.ModuleSpec{
		Providers:   []di.Provider{di.Provide(NewGreetService)},
		Controllers: []di.Class{{New: NewGreetController}},
	}
}

// controllerModule mounts a single controller class, for tests that bring
// their own routes. It is always used through a pointer so the identity
// based module dedupe can hash it.
type controllerModule struct{ class di.Class }

func (m *controllerModule) Module() whttp.ModuleSpec {
	return whttp.ModuleSpec{Controllers: []di.Class{m.class}}
}

// recordingInterceptor appends its name around the downstream call so tests
// can assert wrapping order.
type recordingInterceptor struct {
	name string
	log  *[]string
}

func (i recordingInterceptor) Intercept(ctx context.Context, _ *whttp.Ctx, next whttp.CallHandler) (any, error) {
	*i.log = append(*i.log, i.name+"-before")
	result, err := next(ctx)
	*i.log = append(*i.log, i.name+"-after")

	return result, err
}

// shortCircuitInterceptor replaces the handler result without calling next.
type shortCircuitInterceptor struct{ result any }

func (i shortCircuitInterceptor) Intercept(context.Context, *whttp.Ctx, whttp.CallHandler) (any, error) {
	return i.result, nil
}

// headerGuard activates only when the request carries the given header.
type headerGuard struct{ header string }

func (g headerGuard) CanActivate(_ context.Context, ec *whttp.Ctx) (bool, error) {
	return ec.Header(g.header) != "", nil
}

// errorGuard fails activation with a fixed error.
type errorGuard struct{ err error }

func (g errorGuard) CanActivate(context.Context, *whttp.Ctx) (bool, error) {
	return false, g.err
}

// recordingGuard always activates and appends its name to the log.
type recordingGuard struct {
	name string
	log  *[]string
}

func (g recordingGuard) CanActivate(context.Context, *whttp.Ctx) (bool, error) {
	*g.log = append(*g.log, g.name)
	return true, nil
}

// AuthGuard is a container-constructed guard counting its activations.
type AuthGuard struct {
	svc         *GreetService
	Activations int64
}

func NewAuthGuard(svc *GreetService) *AuthGuard { return &AuthGuard{svc: svc} }

func (g *AuthGuard) CanActivate(context.Context, *whttp.Ctx) (bool, error) {
	atomic.AddInt64(&g.Activations, 1)
	return g.svc != nil, nil
}

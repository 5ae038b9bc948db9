// Package whttp hosts a modular HTTP application behind a plain http.Handler:
// modules declare providers and controllers, controllers declare routes, and
// every request runs through a guard, interceptor, pipe and exception filter
// pipeline before and after the handler.
//
// # Overview
//
// An application is composed from modules. A module contributes providers to
// the dependency injection container (see the di sub-package) and mounts
// controllers, whose routes are matched by a radix-tree router (see the
// router sub-package):
//
//	type GreetController struct{ svc *GreetService }
//
//	func NewGreetController(svc *GreetService) *GreetController {
//	    return &GreetController{svc: svc}
//	}
//
//	func (c *GreetController) Controller() *whttp.ControllerSpec {
//	    return whttp.NewController("greet").
//	        Route(whttp.Get("/:name").Name("greet"), c.Greet, whttp.Param("name"))
//	}
//
//	func (c *GreetController) Greet(name string) string {
//	    return c.svc.Greet(name)
//	}
//
//	type AppModule struct{}
//
//	func (AppModule) Module() whttp.ModuleSpec {
//	    return whttp.ModuleSpec{
//	        Providers:   []di.Provider{di.Provide(NewGreetService)},
//	        Controllers: []di.Class{{New: NewGreetController}},
//	    }
//	}
//
//	app := whttp.New(&AppModule{})
//	http.ListenAndServe(":8080", app)
//
// # Handlers
//
// Handlers are plain functions. Each argument is described by a [ParamSpec]
// naming its source: a path parameter, a query parameter, the decoded JSON
// body, a header, the raw request, the response builder, the execution
// context, an application binding or a custom extractor. Results follow the
// usual Go shapes: nothing, error, T, or (T, error).
//
// A string result becomes a text/plain response, any other value is JSON
// encoded, a nil result without a declared status becomes 204 No Content and
// a returned [*Response] is used as-is.
//
// # Pipeline
//
// Around every handler run the enhancers, in this order:
//
//   - Guards decide whether the request may proceed. Global guards run first,
//     then controller-level, then route-level ones. A false verdict yields a
//     generic forbidden response; a returned error is used as-is.
//   - Interceptors wrap the handler call like middleware: the first
//     registered one is the outermost. They can short-circuit, retry or
//     transform the raw result before it materializes.
//   - Pipes transform each bound argument: the param's own pipes run first,
//     then the global and route-level ones.
//   - Exception filters turn pipeline errors into responses; the first filter
//     to return a response wins.
//
// # Error Handling
//
// Handlers and enhancers signal failures with [*Error] values carrying one of
// the [Code] constants:
//
//	return whttp.NewError(whttp.CodeNotFound, errors.New("no such user"))
//
// Any error that no exception filter claims is rendered as a JSON envelope
// with statusCode and message fields, plus the error's stack when the
// application runs with [WithDevMode]. Errors that are not [*Error] render
// as opaque internal server errors so internals never leak.
//
// # Lifecycle
//
// [App.Init] walks the module graph once: imported modules register their
// providers before the importing module's own controllers instantiate, so
// dependencies are always available. After all routes are mounted the
// OnModuleInit and OnApplicationBootstrap hooks run. [App.Shutdown] runs the
// OnModuleDestroy hooks in reverse order and clears the container. An
// application that never initialized explicitly does so on its first request.
package whttp

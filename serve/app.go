package serve

import (
	"context"
	"net/http"

	"github.com/advdv/whttp"
	"github.com/advdv/whttp/di"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// App wraps an fx.App for lifecycle management.
type App struct {
	app *fx.App
}

// AppConfig holds configuration for the app.
type AppConfig struct {
	ServerConfig
	WebOptions []whttp.Option
	FxOptions  []fx.Option
}

// Option configures the App.
type Option func(*AppConfig)

// WithWeb adds whttp options to the application assembly, e.g. CORS, a
// global prefix or global enhancers.
func WithWeb(opts ...whttp.Option) Option {
	return func(c *AppConfig) {
		c.WebOptions = append(c.WebOptions, opts...)
	}
}

// WithFx adds fx options for dependency injection.
func WithFx(fxOpts ...fx.Option) Option {
	return func(c *AppConfig) {
		c.FxOptions = append(c.FxOptions, fxOpts...)
	}
}

// WithHealthHandler sets a custom health check handler.
// If not set, a default handler returning 200 OK is used.
func WithHealthHandler(h func(http.ResponseWriter, *http.Request)) Option {
	return func(c *AppConfig) {
		c.HealthHandler = h
	}
}

// runtimeProviderParams holds dependencies for Runtime.
type runtimeProviderParams[E Environment] struct {
	fx.In

	Env       E
	App       *whttp.App
	Transport http.RoundTripper
	Secrets   SecretReader `optional:"true"`
}

// appHookParams holds dependencies for the module graph lifecycle.
type appHookParams[E Environment] struct {
	fx.In

	App        *whttp.App
	Env        E
	Logger     *zap.Logger
	Client     *http.Client
	Runtime    *Runtime[E]
	Platform   *Platform
	TracerProv trace.TracerProvider
	Propagator propagation.TextMapPropagator
}

// FxOptions returns the fx options that assemble the harness around the root
// module. [NewApp] builds on it; the servetest package runs the same graph
// under fxtest.
func FxOptions[E Environment](root whttp.Module, opts ...Option) []fx.Option {
	var cfg AppConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	baseOpts := make([]fx.Option, 0, 15+len(cfg.FxOptions))
	baseOpts = append(baseOpts, []fx.Option{
		fx.NopLogger,
		fx.Provide(ParseEnv[E]()),
		fx.Provide(func(e E) Environment { return e }),
		fx.Provide(func(e E) (*zap.Logger, error) { return NewLogger(e) }),
		fx.Provide(NewTracerProvider),
		fx.Provide(NewPropagator),
		fx.Provide(NewPlatform),
		fx.Provide(NewHTTPTransport),
		fx.Provide(NewHTTPClient),
		fx.Provide(newWebApp(root, cfg.WebOptions)),
		fx.Provide(func(p runtimeProviderParams[E]) *Runtime[E] {
			return NewRuntime(p.Env, p.App, RuntimeParams{Transport: p.Transport, Secrets: p.Secrets})
		}),
		fx.Supply(cfg.ServerConfig),
		fx.Provide(NewServer),
		fx.Invoke(startAppHook[E]),
		fx.Invoke(startServerHook),
	}...)

	baseOpts = append(baseOpts, cfg.FxOptions...)
	return baseOpts
}

// newWebApp builds the whttp application around the root module with the
// harness defaults: zap-backed event logging, the tracked platform, and a
// deadline interceptor that reserves time for rendering timeout responses.
func newWebApp(root whttp.Module, extra []whttp.Option) func(logs *zap.Logger, platform *Platform) *whttp.App {
	return func(logs *zap.Logger, platform *Platform) *whttp.App {
		wopts := []whttp.Option{
			whttp.WithLogger(newZapWHTTPLogger(logs)),
			whttp.WithPlatform(platform),
			whttp.WithInterceptors(whttp.NewDeadlineInterceptor(whttp.DefaultDeadlineBuffer)),
		}
		wopts = append(wopts, extra...)

		return whttp.New(root, wopts...)
	}
}

// startAppHook initializes the module graph on start and shuts it down on
// stop. Harness dependencies register in the container first, so controllers
// can declare them as constructor dependencies.
func startAppHook[E Environment](lc fx.Lifecycle, p appHookParams[E]) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := p.App.Container().Register(
				di.Value{Provide: di.Type[E](), Value: p.Env},
				di.Value{Provide: di.Type[*zap.Logger](), Value: p.Logger},
				di.Value{Provide: di.Type[*http.Client](), Value: p.Client},
				di.Value{Provide: di.Type[*Runtime[E]](), Value: p.Runtime},
				di.Value{Provide: di.Type[trace.TracerProvider](), Value: p.TracerProv},
				di.Value{Provide: di.Type[propagation.TextMapPropagator](), Value: p.Propagator},
			); err != nil {
				return err
			}

			return p.App.Init(ctx)
		},
		OnStop: func(ctx context.Context) error {
			if err := p.App.Shutdown(ctx); err != nil {
				return err
			}

			return p.Platform.Drain(ctx)
		},
	})
}

// NewApp creates a batteries-included application around the root module.
//
// The root module declares controllers and providers the whttp way; the
// harness adds environment parsing, logging, tracing, the HTTP server and
// lifecycle management around it. Application-level constructors join via
// [WithFx] and can depend on anything the harness provides.
//
// Example:
//
//	func main() {
//	    serve.NewApp[Env](app.New(),
//	        serve.WithWeb(whttp.WithGlobalPrefix("api")),
//	    ).Run()
//	}
func NewApp[E Environment](root whttp.Module, opts ...Option) *App {
	return &App{
		app: fx.New(FxOptions[E](root, opts...)...),
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() {
	a.app.Run()
}

// Start starts the application with the given context.
func (a *App) Start(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), a.app.StopTimeout())
	defer cancel()

	return a.app.Stop(stopCtx)
}

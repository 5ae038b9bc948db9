package serve

import (
	"context"
	"fmt"
	"net/http"

	"github.com/advdv/whttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// ServerConfig holds optional configuration for the HTTP server.
type ServerConfig struct {
	HealthHandler func(http.ResponseWriter, *http.Request)
}

// ServerParams holds the dependencies for creating an HTTP server.
type ServerParams struct {
	fx.In

	Env        Environment
	App        *whttp.App
	Logger     *zap.Logger
	TracerProv trace.TracerProvider
	Propagator propagation.TextMapPropagator
}

// NewServer creates an HTTP server with all middleware and routing
// configured.
func NewServer(params ServerParams, cfg ServerConfig) (*http.Server, error) {
	errorCodes, err := ParseErrorStatusCodes(params.Env.errorStatusCodes())
	if err != nil {
		return nil, err
	}

	// The health check endpoint lives at the path given by
	// WHTTP_READINESS_CHECK_PATH, outside of the whttp routing tree, so
	// probes stay cheap and cannot collide with application routes. The
	// handler can be customized via ServerConfig.HealthHandler; defaults to
	// 200 OK. Tracing and access logging are disabled for this path to avoid
	// noise from probes.
	healthPath := params.Env.readinessCheckPath()
	healthHandler := cfg.HealthHandler
	if healthHandler == nil {
		healthHandler = defaultHealthHandler
	}

	mux := http.NewServeMux()
	mux.HandleFunc(healthPath, healthHandler)
	mux.Handle("/", params.App)

	d := &requestDep{
		logger: params.Logger,
	}

	var handler http.Handler = mux
	handler = WithRequestDeadline(params.Env.requestTimeout())(handler)
	handler = withAccessLog(params.Logger, errorCodes, healthPath)(handler)
	handler = withRequestDep(d)(handler)
	handler = withLambdaContext()(handler)
	handler = withRequestID()(handler)

	// Tracing wraps the rest so the span covers the full request and inner
	// middleware can correlate with it. Provider and propagator are
	// explicitly injected (no globals).
	handler = withTracing(params.TracerProv, params.Propagator, params.Env.serviceName(), healthPath)(handler)

	// Fronting proxies such as the Lambda Web Adapter multiplex requests
	// over a single upstream connection using cleartext HTTP/2.
	handler = h2c.NewHandler(handler, &http2.Server{})

	// Server timeouts act as outer bounds; the per-request deadline set
	// above takes precedence.
	tc := TimeoutConfig{RequestTimeout: params.Env.requestTimeout()}
	readHeaderTimeout, readTimeout, writeTimeout, idleTimeout := tc.ServerTimeouts()

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", params.Env.port()),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}, nil
}

// startServerHook registers lifecycle hooks for the HTTP server.
func startServerHook(lc fx.Lifecycle, server *http.Server, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting server", zap.String("addr", server.Addr))
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping server")
			return server.Shutdown(ctx)
		},
	})
}

func defaultHealthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Package serve hosts a whttp application as a production HTTP service. It
// assembles environment parsing, structured logging, distributed tracing, an
// instrumented HTTP client and server lifecycle management into an fx
// dependency graph so that an application only declares its root module and
// its own providers.
//
// # Environment
//
// All configuration is read from environment variables. Applications embed
// [BaseEnvironment] in their own struct and add whatever variables they need:
//
//	type Env struct {
//		serve.BaseEnvironment
//		MainTableName string `env:"MAIN_TABLE_NAME,required"`
//	}
//
// BaseEnvironment covers the variables the harness itself needs:
//
//	WHTTP_PORT                 (required) port the server listens on
//	WHTTP_SERVICE_NAME         (required) service name for logs and traces
//	WHTTP_READINESS_CHECK_PATH readiness probe path, default "/healthz"
//	WHTTP_LOG_LEVEL            zap level: debug, info, warn, error; default "info"
//	WHTTP_OTEL_EXPORTER        trace exporter: "stdout" or "xrayudp"
//	WHTTP_REQUEST_TIMEOUT      upper bound for handling one request, default "30s"
//	WHTTP_ERROR_STATUS_CODES   statuses logged as failures, default "500-599"
//	WHTTP_ACCESS_LOG_GROUP     extra log group announced to the trace backend
//
// WHTTP_ERROR_STATUS_CODES is an interval expression such as "500,504" or
// "500-599". It decides which response statuses the access log reports at
// error level and it must cover the codes the harness itself produces, see
// [DefaultRequiredErrorStatusCodes]. Parsing the environment fails when the
// expression does not.
//
// # Applications
//
// [NewApp] builds the fx graph around a root [whttp.Module]. The whttp
// application is initialized on start and shut down on stop, together with
// the HTTP server, the tracer provider and the task platform:
//
//	func main() {
//		serve.NewApp[Env](app.New()).Run()
//	}
//
// Application providers join the graph through [WithFx] and receive the
// [Runtime], the *zap.Logger, the traced *http.Client and anything else the
// harness provides. Providers registered in the whttp module graph resolve
// through the container as usual; the two graphs meet in the controller
// constructors.
//
// # Requests
//
// Every request carries a request id (reused from the X-Request-Id header or
// generated) and an OpenTelemetry span. [Log] returns a logger annotated with
// both so application logs correlate with traces. The access log writes one
// line per request; statuses matched by WHTTP_ERROR_STATUS_CODES log at error
// level, everything else at info.
//
// Request deadlines derive from WHTTP_REQUEST_TIMEOUT: the server timeouts
// leave a small buffer for the pipeline to render a timeout response, see
// [TimeoutConfig].
//
// # Testing
//
// The servetest subpackage starts the full harness under fxtest with the
// base environment prepared, so integration tests exercise the real server
// over localhost.
package serve

package serve

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ctxKey is the key type for context values.
type ctxKey int

const (
	ctxKeyRequestDep ctxKey = iota
	ctxKeyRequestID
	ctxKeyLambdaContext
)

// RequestIDHeader carries the request id on requests and responses.
const RequestIDHeader = "X-Request-Id"

// requestDep holds request-scoped dependencies available via context.
// App-scoped dependencies are accessed via Runtime instead.
type requestDep struct {
	logger *zap.Logger
}

// LambdaContext contains the invocation context the Lambda Web Adapter
// forwards in the x-amzn-lambda-context header when the service runs on AWS
// Lambda.
type LambdaContext struct {
	RequestID          string          `json:"request_id"`
	Deadline           int64           `json:"deadline"`
	InvokedFunctionARN string          `json:"invoked_function_arn"`
	XRayTraceID        string          `json:"xray_trace_id"`
	EnvConfig          LambdaEnvConfig `json:"env_config"`
}

// LambdaEnvConfig contains Lambda function environment configuration.
type LambdaEnvConfig struct {
	FunctionName string `json:"function_name"`
	Memory       int    `json:"memory"`
	Version      string `json:"version"`
	LogGroup     string `json:"log_group"`
	LogStream    string `json:"log_stream"`
}

// DeadlineTime returns the invocation deadline as a time.Time.
func (lc *LambdaContext) DeadlineTime() time.Time {
	if lc.Deadline == 0 {
		return time.Time{}
	}
	return time.UnixMilli(lc.Deadline)
}

// RemainingTime returns the duration until the invocation deadline.
func (lc *LambdaContext) RemainingTime() time.Duration {
	if lc.Deadline == 0 {
		return 0
	}
	remaining := time.Until(lc.DeadlineTime())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// withRequestID reuses the inbound request id or generates a fresh one, and
// reflects it on the response.
func withRequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			ctx := context.WithValue(r.Context(), ctxKeyRequestID, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// withRequestDep injects dependencies into the request context.
func withRequestDep(d *requestDep) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), ctxKeyRequestDep, d)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// withLambdaContext parses the x-amzn-lambda-context header from the AWS
// Lambda Web Adapter.
func withLambdaContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if header := r.Header.Get("x-amzn-lambda-context"); header != "" {
				var lc LambdaContext
				if err := json.Unmarshal([]byte(header), &lc); err == nil {
					ctx = context.WithValue(ctx, ctxKeyLambdaContext, &lc)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requestDepFromContext(ctx context.Context) *requestDep {
	d, ok := ctx.Value(ctxKeyRequestDep).(*requestDep)
	if !ok {
		panic("serve: requestDep not found in context; is the middleware configured?")
	}
	return d
}

// RequestID returns the id of the current request, or the empty string when
// called outside a request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

// Lambda retrieves the LambdaContext from the request context.
// Returns nil if not running behind the Lambda Web Adapter.
func Lambda(ctx context.Context) *LambdaContext {
	lc, _ := ctx.Value(ctxKeyLambdaContext).(*LambdaContext)
	return lc
}

// Log returns a correlated zap logger from the context. The logger carries
// the request id and, when a span is recording, the trace and span ids.
func Log(ctx context.Context) *zap.Logger {
	d := requestDepFromContext(ctx)
	return d.logger.With(requestFields(ctx)...)
}

// Span returns the current trace span from the context.
func Span(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// requestFields extracts the request id, trace_id and span_id from the
// context for log correlation.
func requestFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if id := RequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}

	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()))
	}

	return fields
}

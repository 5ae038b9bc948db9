// Package example implements example request enhancers in an outside package.
package example

import (
	"context"
	"log/slog"

	"github.com/advdv/whttp"
)

// bag keys scope the values this package stores in the request bag.
const (
	bagKey    = "example.logger"
	tenantKey = "example.tenant"
)

// LogInterceptor provides an example for an interceptor that stores a
// request-scoped logger in the request bag.
type LogInterceptor struct {
	logs *slog.Logger
}

// NewLogInterceptor inits the interceptor around the given logger.
func NewLogInterceptor(logs *slog.Logger) *LogInterceptor {
	return &LogInterceptor{logs: logs}
}

// Intercept derives the logger and continues the chain.
func (i *LogInterceptor) Intercept(ctx context.Context, ec *whttp.Ctx, next whttp.CallHandler) (any, error) {
	r := ec.Request()
	ec.Set(bagKey, i.logs.With(
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	))

	return next(ctx)
}

// Log returns the request-scoped logger, or nil when [LogInterceptor] did
// not run for this request.
func Log(ec *whttp.Ctx) *slog.Logger {
	v, _ := ec.Get(bagKey)
	logs, _ := v.(*slog.Logger)

	return logs
}

// TenantGuard provides an example for a guard that admits requests carrying
// a tenant header and shares the tenant with later stages through the bag.
type TenantGuard struct {
	header string
}

// NewTenantGuard inits the guard reading the given header.
func NewTenantGuard(header string) *TenantGuard {
	return &TenantGuard{header: header}
}

// CanActivate admits the request when the header is present.
func (g *TenantGuard) CanActivate(_ context.Context, ec *whttp.Ctx) (bool, error) {
	tenant := ec.Header(g.header)
	if tenant == "" {
		return false, nil
	}

	ec.Set(tenantKey, tenant)

	return true, nil
}

// Tenant returns the tenant a [TenantGuard] admitted, or the empty string.
func Tenant(ec *whttp.Ctx) string {
	v, _ := ec.Get(tenantKey)
	tenant, _ := v.(string)

	return tenant
}

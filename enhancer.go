package whttp

import (
	"context"
	"reflect"

	"github.com/advdv/whttp/di"
	"github.com/cockroachdb/errors"
)

// Guard decides whether a request may proceed into the handler. Returning
// false without an error yields a generic forbidden response; a returned
// error is used as-is.
type Guard interface {
	CanActivate(ctx context.Context, ec *Ctx) (bool, error)
}

// CallHandler continues the interceptor chain towards the handler and
// returns its raw, not yet materialized result.
type CallHandler func(ctx context.Context) (any, error)

// Interceptor wraps handler execution. It observes or replaces the handler's
// result by deciding if, when and with what context next is called.
type Interceptor interface {
	Intercept(ctx context.Context, ec *Ctx, next CallHandler) (any, error)
}

// Pipe transforms one bound handler argument before the handler runs.
// Returning an error aborts the request, typically with a bad-request code.
type Pipe interface {
	Transform(ctx context.Context, value any, meta ArgumentMeta) (any, error)
}

// ExceptionFilter turns a pipeline error into a response. Filters run in
// registration order; the first one to return a response wins. A filter
// returning a nil response without an error passes the error on.
type ExceptionFilter interface {
	Catch(ctx context.Context, err error, ec *Ctx) (*Response, error)
}

// GuardRef references a guard as either a ready instance or a constructor
// for one. Constructor references are resolved through the container by
// their result type so the instance gets its dependencies injected. An
// unregistered zero-argument constructor is called directly instead.
type GuardRef any

// InterceptorRef references an interceptor, see [GuardRef].
type InterceptorRef any

// PipeRef references a pipe, see [GuardRef].
type PipeRef any

// FilterRef references an exception filter, see [GuardRef].
type FilterRef any

// resolveEnhancer turns a reference into a usable enhancer instance. Bad
// references surface at bootstrap, never per request.
func resolveEnhancer[T any](ctx context.Context, cont *di.Container, ref any) (T, error) {
	var zero T

	if ref == nil {
		return zero, errors.New("whttp: enhancer reference is nil")
	}

	if inst, ok := ref.(T); ok {
		return inst, nil
	}

	fnV := reflect.ValueOf(ref)
	if fnV.Kind() != reflect.Func || fnV.Type().IsVariadic() || fnV.Type().NumOut() != 1 {
		return zero, errors.Newf("whttp: enhancer reference must be an instance or a constructor, got %T", ref)
	}

	if inst, err := cont.ResolveCtx(ctx, fnV.Type().Out(0)); err == nil {
		if typed, ok := inst.(T); ok {
			return typed, nil
		}
	}

	if fnV.Type().NumIn() != 0 {
		return zero, errors.Newf("whttp: enhancer constructor %T takes arguments but no %s is registered",
			ref, fnV.Type().Out(0))
	}

	typed, ok := fnV.Call(nil)[0].Interface().(T)
	if !ok {
		return zero, errors.Newf("whttp: constructed enhancer %s does not implement %s",
			fnV.Type().Out(0), reflect.TypeOf(&zero).Elem())
	}

	return typed, nil
}

func resolveEnhancers[T, R any](ctx context.Context, cont *di.Container, refs []R) ([]T, error) {
	out := make([]T, 0, len(refs))
	for _, ref := range refs {
		inst, err := resolveEnhancer[T](ctx, cont, ref)
		if err != nil {
			return nil, err
		}

		out = append(out, inst)
	}

	return out, nil
}

// wrapInterceptors composes interceptors around the innermost handler call.
// The order is that of the Gorilla and Chi router. That is: the interceptor
// provided first is called first and is the "outer" most wrapping, the
// interceptor provided last will be the "inner most" wrapping (closest to
// the handler).
func wrapInterceptors(inner CallHandler, ec *Ctx, ics ...Interceptor) CallHandler {
	if len(ics) < 1 {
		return inner
	}

	wrapped := inner
	for i := len(ics) - 1; i >= 0; i-- {
		ic, next := ics[i], wrapped
		wrapped = func(ctx context.Context) (any, error) {
			return ic.Intercept(ctx, ec, next)
		}
	}

	return wrapped
}

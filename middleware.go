package whttp

import (
	"context"
	"time"
)

// DefaultDeadlineBuffer is the default time reserved before a deadline for
// materializing a graceful timeout response.
const DefaultDeadlineBuffer = 500 * time.Millisecond

type timeoutInterceptor struct {
	timeout time.Duration
}

// NewTimeoutInterceptor inits an interceptor that fails the request with a
// request-timeout error when the downstream chain takes longer than the
// given duration. The deadline also propagates through the context so
// handler I/O can stop early.
func NewTimeoutInterceptor(timeout time.Duration) Interceptor {
	return timeoutInterceptor{timeout: timeout}
}

func (i timeoutInterceptor) Intercept(ctx context.Context, _ *Ctx, next CallHandler) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	type outcome struct {
		result any
		err    error
	}

	outcomes := make(chan outcome, 1)
	go func() {
		result, err := next(ctx)
		outcomes <- outcome{result: result, err: err}
	}()

	select {
	case out := <-outcomes:
		return out.result, out.err
	case <-ctx.Done():
		return nil, NewError(CodeRequestTimeout, ctx.Err())
	}
}

type deadlineInterceptor struct {
	buffer time.Duration
}

// NewDeadlineInterceptor inits an interceptor that tightens the context
// deadline by the given buffer, reserving time to materialize an error
// response before an outer deadline, e.g. a serverless platform's hard
// kill, expires. Contexts without a deadline pass through unchanged.
func NewDeadlineInterceptor(buffer time.Duration) Interceptor {
	if buffer <= 0 {
		buffer = DefaultDeadlineBuffer
	}

	return deadlineInterceptor{buffer: buffer}
}

func (i deadlineInterceptor) Intercept(ctx context.Context, _ *Ctx, next CallHandler) (any, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return next(ctx)
	}

	adjusted := deadline.Add(-i.buffer)
	if time.Until(adjusted) <= 0 {
		return next(ctx)
	}

	ctx, cancel := context.WithDeadline(ctx, adjusted)
	defer cancel()

	return next(ctx)
}

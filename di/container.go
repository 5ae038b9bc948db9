package di

import (
	"context"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
)

// Resolver resolves tokens to instances. [*Container] implements it, and so
// do the per-resolution views handed to constructor parameters of this
// type: resolving through such a view extends the active resolution stack,
// keeping cycles detectable across constructor-time lookups.
type Resolver interface {
	Resolve(tok Token, opts ...ResolveOption) (any, error)
	ResolveCtx(ctx context.Context, tok Token, opts ...ResolveOption) (any, error)
}

// ResolveOption adjusts a single resolution.
type ResolveOption func(*resolveOptions)

type resolveOptions struct{ optional bool }

// Optional makes the resolution yield a nil instance instead of a
// [*TokenNotFoundError] when the token has no provider.
func Optional() ResolveOption {
	return func(o *resolveOptions) { o.optional = true }
}

// Container is a hierarchical registry of providers. The zero value is not
// usable; create containers with [New], [NewWith], [Container.CreateChild]
// or [Container.CreateRequestScope]. Every container registers itself under
// the Type[*Container] token and a stack-preserving view of itself under
// the Type[Resolver] token.
type Container struct {
	logs   Logger
	parent *Container

	mu      sync.RWMutex
	records map[Token]*record

	scopedMu sync.Mutex
	scoped   map[Token]any
}

// New inits an empty root container logging through the standard library.
func New() *Container {
	return NewWith(NewStdLogger(log.Default()))
}

// NewWith inits an empty root container with a custom logger.
func NewWith(logs Logger) *Container {
	c := &Container{logs: logs, records: map[Token]*record{}, scoped: map[Token]any{}}
	c.selfRegister()

	return c
}

func (c *Container) selfRegister() {
	c.records[Type[*Container]()] = &record{
		token:     Type[*Container](),
		scope:     Singleton,
		resolved:  true,
		permanent: true,
		instance:  c,
	}
	c.records[Type[Resolver]()] = &record{
		token: Type[Resolver](),
		scope: Transient,
		construct: func(res *resolution) (any, error) {
			return res.view(), nil
		},
	}
}

// Register stores the given providers. Registering a token that already has
// a provider silently replaces it: last write wins.
func (c *Container) Register(providers ...Provider) error {
	for _, p := range providers {
		tok, rec, err := p.buildRecord(c)
		if err != nil {
			return err
		}

		c.mu.Lock()
		c.records[tok] = rec
		c.mu.Unlock()
	}

	return nil
}

// MustRegister is like [Container.Register] but panics on invalid provider
// shapes. Registration failures are programmer errors, so this is the
// common form during wiring.
func (c *Container) MustRegister(providers ...Provider) {
	if err := c.Register(providers...); err != nil {
		panic(err.Error())
	}
}

// Resolve resolves the token synchronously. It fails with a
// [*ContainerError] when any provider on the resolution path is
// context-aware; use [Container.ResolveCtx] for those graphs.
func (c *Container) Resolve(tok Token, opts ...ResolveOption) (any, error) {
	res := &resolution{origin: c}
	return res.resolveOpts(tok, opts)
}

// ResolveCtx resolves the token with the same algorithm as
// [Container.Resolve] but allows context-aware providers at any depth.
func (c *Container) ResolveCtx(ctx context.Context, tok Token, opts ...ResolveOption) (any, error) {
	res := &resolution{ctx: ctx, origin: c}
	return res.resolveOpts(tok, opts)
}

// CreateChild creates a container whose lookups fall back to c for tokens
// it does not hold itself. Registrations on the child never touch c.
func (c *Container) CreateChild() *Container {
	child := &Container{logs: c.logs, parent: c, records: map[Token]*record{}, scoped: map[Token]any{}}
	child.selfRegister()

	return child
}

// CreateRequestScope creates a child container with a fresh request-scope
// cache. Request-scoped providers resolve to one instance per such
// container; discarding the container discards the instances.
func (c *Container) CreateRequestScope() *Container {
	return c.CreateChild()
}

// Clear empties the singleton and request-scope caches while keeping all
// registrations ([Value] instances included). Safe to call repeatedly.
func (c *Container) Clear() {
	c.mu.RLock()
	records := make([]*record, 0, len(c.records))
	for _, rec := range c.records {
		records = append(records, rec)
	}
	c.mu.RUnlock()

	for _, rec := range records {
		rec.mu.Lock()
		if !rec.permanent {
			rec.resolved = false
			rec.instance = nil
		}
		rec.mu.Unlock()
	}

	c.scopedMu.Lock()
	c.scoped = map[Token]any{}
	c.scopedMu.Unlock()
}

func (c *Container) lookup(tok Token) *record {
	for cur := c; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		rec := cur.records[tok]
		cur.mu.RUnlock()

		if rec != nil {
			return rec
		}
	}

	return nil
}

var _ Resolver = &Container{}

// ResolveAs resolves the token through r and type-asserts the instance.
func ResolveAs[T any](r Resolver, tok Token, opts ...ResolveOption) (T, error) {
	inst, err := r.Resolve(tok, opts...)
	if err != nil {
		var zero T
		return zero, err
	}

	return assertInstance[T](tok, inst)
}

// ResolveCtxAs resolves the token through r with a context and
// type-asserts the instance.
func ResolveCtxAs[T any](ctx context.Context, r Resolver, tok Token, opts ...ResolveOption) (T, error) {
	inst, err := r.ResolveCtx(ctx, tok, opts...)
	if err != nil {
		var zero T
		return zero, err
	}

	return assertInstance[T](tok, inst)
}

func assertInstance[T any](tok Token, inst any) (T, error) {
	if inst == nil {
		var zero T
		return zero, nil
	}

	typed, ok := inst.(T)
	if !ok {
		var zero T
		return zero, newContainerErrorf("token %s resolved to %T, want %T", TokenName(tok), inst, zero)
	}

	return typed, nil
}

// resolution is one resolve call: the optional context, the container the
// call originated on, and the stack of tokens currently being constructed.
type resolution struct {
	ctx    context.Context
	origin *Container
	stack  []Token
}

func (r *resolution) resolveOpts(tok Token, opts []ResolveOption) (any, error) {
	var o resolveOptions
	for _, opt := range opts {
		opt(&o)
	}

	return r.resolve(tok, o.optional)
}

func (r *resolution) resolve(tok Token, optional bool) (any, error) {
	for _, active := range r.stack {
		if active == tok {
			path := make([]Token, 0, len(r.stack)+1)
			path = append(path, r.stack...)
			path = append(path, tok)

			return nil, errors.WithStack(&CircularDependencyError{Path: path})
		}
	}

	rec := r.origin.lookup(tok)
	if rec == nil {
		if optional {
			return nil, nil
		}

		return nil, errors.WithStack(&TokenNotFoundError{Token: tok})
	}

	if rec.async && r.ctx == nil {
		return nil, newContainerErrorf("token %s has a context-aware provider, resolve it with ResolveCtx",
			TokenName(tok))
	}

	switch rec.scope {
	case Request:
		return r.requestScoped(tok, rec)
	case Transient:
		return rec.construct(r.push(tok))
	default:
		return r.singleton(tok, rec)
	}
}

// push extends the stack by copy, so the caller's stack is untouched no
// matter how construction unwinds.
func (r *resolution) push(tok Token) *resolution {
	stack := make([]Token, 0, len(r.stack)+1)
	stack = append(stack, r.stack...)
	stack = append(stack, tok)

	return &resolution{ctx: r.ctx, origin: r.origin, stack: stack}
}

func (r *resolution) view() Resolver { return &resolverView{res: r} }

func (r *resolution) singleton(tok Token, rec *record) (any, error) {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.resolved {
		return rec.instance, nil
	}

	inst, err := rec.construct(r.push(tok))
	if err != nil {
		return nil, err
	}

	rec.instance, rec.resolved = inst, true

	return inst, nil
}

func (r *resolution) requestScoped(tok Token, rec *record) (any, error) {
	origin := r.origin

	origin.scopedMu.Lock()
	if inst, ok := origin.scoped[tok]; ok {
		origin.scopedMu.Unlock()
		return inst, nil
	}
	origin.scopedMu.Unlock()

	inst, err := rec.construct(r.push(tok))
	if err != nil {
		return nil, err
	}

	origin.scopedMu.Lock()
	defer origin.scopedMu.Unlock()

	// another goroutine may have won the construction race
	if prior, ok := origin.scoped[tok]; ok {
		return prior, nil
	}
	origin.scoped[tok] = inst

	return inst, nil
}

// resolverView implements [Resolver] on top of an active resolution.
type resolverView struct{ res *resolution }

func (v *resolverView) Resolve(tok Token, opts ...ResolveOption) (any, error) {
	res := &resolution{origin: v.res.origin, stack: v.res.stack}
	return res.resolveOpts(tok, opts)
}

func (v *resolverView) ResolveCtx(ctx context.Context, tok Token, opts ...ResolveOption) (any, error) {
	res := &resolution{ctx: ctx, origin: v.res.origin, stack: v.res.stack}
	return res.resolveOpts(tok, opts)
}

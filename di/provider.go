package di

import (
	"context"
	"reflect"
	"sync"

	"github.com/cockroachdb/errors"
)

// Scope determines how long a resolved instance is shared.
type Scope int

const (
	// Singleton resolves once per container and caches the instance on the
	// provider record.
	Singleton Scope = iota
	// Request resolves once per request-scope container.
	Request
	// Transient constructs a fresh instance on every resolution.
	Transient
)

func (s Scope) String() string {
	switch s {
	case Singleton:
		return "singleton"
	case Request:
		return "request"
	case Transient:
		return "transient"
	default:
		return "unknown"
	}
}

// Dep declares one constructor or factory dependency.
type Dep struct {
	Token    Token
	Optional bool
}

// On declares a required dependency on a token.
func On(tok Token) Dep { return Dep{Token: tok} }

// Opt declares an optional dependency: when the token has no provider the
// argument becomes the zero value instead of failing the resolution.
func Opt(tok Token) Dep { return Dep{Token: tok, Optional: true} }

// Deps builds a dependency list from plain tokens.
func Deps(toks ...Token) []Dep {
	deps := make([]Dep, 0, len(toks))
	for _, tok := range toks {
		deps = append(deps, On(tok))
	}

	return deps
}

// Provider is implemented by the registration shapes accepted by
// [Container.Register]: [Class], [Value], [Factory] and [Existing].
type Provider interface {
	buildRecord(c *Container) (Token, *record, error)
}

// Class constructs the provided token by calling New with recursively
// resolved dependencies. New must be a function returning (T) or (T, error)
// and may take a context.Context as its first parameter, which makes the
// provider context-aware. A nil Deps derives every dependency from the
// parameter types; an explicit Deps is index-aligned with the parameters
// and may be shorter than the arity, in which case the trailing arguments
// are zero values (reported through the container's [Logger]).
type Class struct {
	Provide Token // defaults to New's first result type
	New     any
	Deps    []Dep
	Scope   Scope
}

func (p Class) buildRecord(c *Container) (Token, *record, error) {
	return newFuncRecord(c, p.Provide, p.New, p.Deps, p.Scope)
}

// Token returns the token the class provides: the explicit Provide value or
// New's first result type.
func (p Class) Token() Token {
	if p.Provide != nil {
		return p.Provide
	}

	fnT := reflect.TypeOf(p.New)
	if fnT == nil || fnT.Kind() != reflect.Func || fnT.NumOut() < 1 {
		return nil
	}

	return typeToken(fnT.Out(0))
}

// Provide is the bare-class shorthand: a singleton [Class] provided under
// its constructor's first result type.
func Provide(ctor any, deps ...Dep) Class {
	return Class{New: ctor, Deps: deps}
}

// Value provides a precomputed value. It is always resolved and behaves as
// a singleton regardless of how it is consumed; [Container.Clear] keeps it.
type Value struct {
	Provide Token
	Value   any
}

func (p Value) buildRecord(*Container) (Token, *record, error) {
	if p.Provide == nil {
		return nil, nil, newContainerErrorf("value provider requires an explicit token")
	}

	return p.Provide, &record{
		token:     p.Provide,
		scope:     Singleton,
		resolved:  true,
		permanent: true,
		instance:  p.Value,
	}, nil
}

// Factory invokes New with arguments resolved from Inject. It is the same
// mechanism as [Class] except the token never defaults and must be set.
type Factory struct {
	Provide Token
	New     any
	Inject  []Dep
	Scope   Scope
}

func (p Factory) buildRecord(c *Container) (Token, *record, error) {
	if p.Provide == nil {
		return nil, nil, newContainerErrorf("factory provider requires an explicit token")
	}

	return newFuncRecord(c, p.Provide, p.New, p.Inject, p.Scope)
}

// Existing aliases the provided token to another registered token. The
// alias itself never caches; the target's scope decides sharing.
type Existing struct {
	Provide     Token
	UseExisting Token
}

func (p Existing) buildRecord(*Container) (Token, *record, error) {
	if p.Provide == nil || p.UseExisting == nil {
		return nil, nil, newContainerErrorf("existing provider requires both a token and a target token")
	}

	target := p.UseExisting

	return p.Provide, &record{
		token: p.Provide,
		scope: Transient,
		construct: func(res *resolution) (any, error) {
			return res.resolve(target, false)
		},
	}, nil
}

// record is the internal registration entry for one token.
type record struct {
	token     Token
	scope     Scope
	async     bool
	construct func(res *resolution) (any, error)

	mu        sync.Mutex
	resolved  bool
	permanent bool
	instance  any
}

var (
	errType      = reflect.TypeOf((*error)(nil)).Elem()
	ctxType      = reflect.TypeOf((*context.Context)(nil)).Elem()
	resolverType = reflect.TypeOf((*Resolver)(nil)).Elem()
)

type argKind int

const (
	argDep argKind = iota
	argResolver
	argZero
)

type argPlan struct {
	kind argKind
	typ  reflect.Type
	dep  Dep
}

// newFuncRecord validates a constructor function and precomputes how each
// of its parameters will be satisfied at resolution time.
func newFuncRecord(c *Container, tok Token, fn any, deps []Dep, scope Scope) (Token, *record, error) {
	fnV := reflect.ValueOf(fn)
	if !fnV.IsValid() || fnV.Kind() != reflect.Func {
		return nil, nil, newContainerErrorf("provider for %s: constructor must be a function, got %T",
			TokenName(tok), fn)
	}

	fnT := fnV.Type()
	switch {
	case fnT.IsVariadic():
		return nil, nil, newContainerErrorf("provider for %s: variadic constructors are not supported", TokenName(tok))
	case fnT.NumOut() < 1 || fnT.NumOut() > 2:
		return nil, nil, newContainerErrorf("provider for %s: constructor must return (T) or (T, error)", TokenName(tok))
	case fnT.NumOut() == 2 && !fnT.Out(1).Implements(errType):
		return nil, nil, newContainerErrorf("provider for %s: second return value must be an error", TokenName(tok))
	}

	if tok == nil {
		tok = typeToken(fnT.Out(0))
	}

	async := fnT.NumIn() > 0 && fnT.In(0) == ctxType
	start := 0
	if async {
		start = 1
	}

	arity := fnT.NumIn() - start
	explicit := deps != nil

	plans := make([]argPlan, 0, arity)
	for i := range arity {
		paramT := fnT.In(start + i)
		switch {
		case paramT == resolverType:
			plans = append(plans, argPlan{kind: argResolver, typ: paramT})
		case explicit && i >= len(deps):
			plans = append(plans, argPlan{kind: argZero, typ: paramT})
		case explicit:
			plans = append(plans, argPlan{kind: argDep, typ: paramT, dep: deps[i]})
		default:
			plans = append(plans, argPlan{kind: argDep, typ: paramT, dep: Dep{Token: typeToken(paramT)}})
		}
	}

	logs := c.logs
	construct := func(res *resolution) (any, error) {
		args := make([]reflect.Value, 0, fnT.NumIn())
		if async {
			args = append(args, reflect.ValueOf(res.ctx))
		}

		zeroed := 0
		for _, plan := range plans {
			switch plan.kind {
			case argResolver:
				args = append(args, reflect.ValueOf(res.view()))
			case argZero:
				zeroed++
				args = append(args, reflect.Zero(plan.typ))
			default:
				inst, err := res.resolve(plan.dep.Token, plan.dep.Optional)
				if err != nil {
					return nil, err
				}
				if inst == nil {
					args = append(args, reflect.Zero(plan.typ))
					continue
				}

				instV := reflect.ValueOf(inst)
				if !instV.Type().AssignableTo(plan.typ) {
					return nil, newContainerErrorf("constructing %s: token %s resolved to %T, want %s",
						TokenName(tok), TokenName(plan.dep.Token), inst, plan.typ)
				}
				args = append(args, instV)
			}
		}

		if zeroed > 0 {
			logs.LogPartialConstruction(tok, arity-zeroed, arity)
		}

		out := fnV.Call(args)
		if len(out) == 2 && !out[1].IsNil() {
			return nil, errors.Wrapf(out[1].Interface().(error), "di: constructing %s", TokenName(tok))
		}

		return out[0].Interface(), nil
	}

	return tok, &record{token: tok, scope: scope, async: async, construct: construct}, nil
}

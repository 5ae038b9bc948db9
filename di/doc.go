// Package di implements a hierarchical dependency-injection container.
//
// Providers are registered under comparable tokens and resolved on demand.
// A token is usually a type, created with [Type], but symbols created with
// [Symbol] and plain strings work as well. Four provider shapes exist:
// [Class] constructs a value by calling a constructor with recursively
// resolved dependencies, [Value] stores a precomputed value, [Factory] is a
// class provider whose token never defaults, and [Existing] aliases one
// token to another. [Provide] is the bare-class shorthand for a singleton
// [Class].
//
// Instances are shared according to the provider's [Scope]: singletons are
// cached once per container, request-scoped instances once per container
// created with [Container.CreateRequestScope], and transient providers
// construct a fresh instance on every resolution.
//
// Resolution walks the container hierarchy upward, so children created with
// [Container.CreateChild] see everything their ancestors registered while
// their own registrations stay invisible to the parent. Cycles in the
// dependency graph fail with a [*CircularDependencyError] carrying the full
// path; constructors that need to resolve further tokens while running
// should accept a [Resolver] parameter, which keeps the active resolution
// stack intact so those cycles remain detectable.
//
// Constructors may take a context.Context as their first parameter, which
// marks the provider as context-aware: such providers (and everything that
// depends on them) resolve only through [Container.ResolveCtx]. The
// synchronous [Container.Resolve] fails with a [*ContainerError] when it
// reaches a context-aware provider.
package di

package di

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

// ContainerError is a generic container failure: an invalid provider shape,
// or misuse such as resolving a context-aware provider synchronously.
type ContainerError struct{ msg string }

func (e *ContainerError) Error() string { return "di: " + e.msg }

func newContainerErrorf(format string, args ...any) error {
	return errors.WithStack(&ContainerError{msg: fmt.Sprintf(format, args...)})
}

// TokenNotFoundError reports resolution of a token without a provider in
// the container or any of its ancestors.
type TokenNotFoundError struct{ Token Token }

func (e *TokenNotFoundError) Error() string {
	return fmt.Sprintf("di: no provider registered for token %s", TokenName(e.Token))
}

// CircularDependencyError reports a cycle in the dependency graph. Path
// holds every token on the active resolution stack in traversal order,
// ending with the token that closed the cycle.
type CircularDependencyError struct{ Path []Token }

func (e *CircularDependencyError) Error() string {
	names := lo.Map(e.Path, func(tok Token, _ int) string { return TokenName(tok) })
	return "di: circular dependency: " + strings.Join(names, " -> ")
}

package di

import (
	"fmt"
	"reflect"
	"strconv"
)

// Token identifies a registered provider. Tokens must be comparable:
// types and symbols compare by identity, strings by value.
type Token any

// Type returns the token identifying providers by the type T. It is the
// analog of registering a provider under a class reference; interface
// types work the same way as concrete ones.
func Type[T any]() Token {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// SymbolToken is a token with pointer identity: two symbols created from
// the same description are still distinct tokens.
type SymbolToken struct{ desc string }

// Symbol creates a new unique token described by desc.
func Symbol(desc string) *SymbolToken { return &SymbolToken{desc: desc} }

func (s *SymbolToken) String() string { return "Symbol(" + s.desc + ")" }

// TokenName renders a human-readable name for a token, for use in error
// messages and logs.
func TokenName(tok Token) string {
	switch t := tok.(type) {
	case nil:
		return "<nil>"
	case reflect.Type:
		return t.String()
	case string:
		return strconv.Quote(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", tok)
	}
}

func typeToken(t reflect.Type) Token { return t }

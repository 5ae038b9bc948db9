package router

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Reverse builds a URL for the named route by substituting vals into the
// route's path template in order. A wildcard consumes all remaining
// values, joined by slashes.
func (r *Router) Reverse(name string, vals ...string) (string, error) {
	route, ok := r.names[name]
	if !ok {
		return "", fmt.Errorf("no route named: %q, got: %v", name, lo.Keys(r.names)) //nolint:goerr113
	}

	segs := splitPath(route.Path)
	out := make([]string, 0, len(segs))
	next := 0

	for _, seg := range segs {
		cl := classifySegment(seg)
		switch cl.kind {
		case kindParam, kindRegex:
			if next >= len(vals) {
				return "", fmt.Errorf("route %q: missing value for parameter %q", name, cl.name) //nolint:goerr113
			}

			out = append(out, vals[next])
			next++
		case kindWildcard:
			if next >= len(vals) {
				return "", fmt.Errorf("route %q: missing value for wildcard %q", name, cl.name) //nolint:goerr113
			}

			out = append(out, strings.Join(vals[next:], "/"))
			next = len(vals)
		default:
			out = append(out, seg)
		}
	}

	if next != len(vals) {
		return "", fmt.Errorf("route %q: expected %d parameter values, got %d", name, next, len(vals)) //nolint:goerr113
	}

	return canonicalPath(out), nil
}

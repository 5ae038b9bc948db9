package router

import (
	"fmt"
	"log"
	"regexp"
	"strings"
)

// MethodAll registers a fallback handler consulted when no concrete
// method entry exists on a matched path.
const MethodAll = "ALL"

// Params holds the parameter bindings of one match.
type Params map[string]string

// Route is one registered entry. Handler is an opaque payload owned by
// the caller; the router only stores and returns it.
type Route struct {
	Method  string
	Path    string
	Name    string
	Handler any
}

// Router maps (method, path) pairs to handlers through a radix tree.
type Router struct {
	logs   Logger
	root   *node
	routes []*Route
	names  map[string]*Route
}

// New creates a route table logging through the standard library.
func New() *Router {
	return NewWith(NewStdLogger(log.Default()))
}

// NewWith creates a route table with a custom logger.
func NewWith(logs Logger) *Router {
	return &Router{
		logs:  logs,
		root:  &node{kind: kindStatic, end: true},
		names: map[string]*Route{},
	}
}

// Register adds a handler under the method and path template. The path is
// normalized: repeated slashes collapse and leading/trailing slashes are
// stripped, so "/users/:id" and "users//:id/" register the same route.
// Re-registering an existing (method, path) pair replaces the prior
// handler with a warning, except [MethodAll] entries which act as additive
// fallbacks next to concrete methods. An optional name makes the route
// available to [Router.Reverse]; invalid templates (bad regex, misplaced
// wildcard, conflicting parameter names, duplicate route names) panic.
func (r *Router) Register(method, path string, handler any, name ...string) *Route {
	segs := splitPath(path)
	route := &Route{Method: method, Path: canonicalPath(segs), Handler: handler}

	if len(name) > 0 && name[0] != "" {
		route.Name = name[0]
		if _, exists := r.names[route.Name]; exists {
			panic(fmt.Sprintf("router: route with name %q already exists", route.Name))
		}
		r.names[route.Name] = route
	}

	r.insert(segs, method, route)

	return route
}

// Match finds the handler for the method and path. The boolean reports
// whether any route matched; on a match the returned map holds one entry
// per bound parameter (empty for purely static routes).
func (r *Router) Match(method, path string) (*Route, Params, bool) {
	params := Params{}

	route := r.root.search(method, splitPath(path), 0, params)
	if route == nil {
		return nil, nil, false
	}

	return route, params, true
}

// Routes returns all registered routes in registration order.
func (r *Router) Routes() []*Route {
	routes := make([]*Route, len(r.routes))
	copy(routes, r.routes)

	return routes
}

func (r *Router) insert(segs []string, method string, route *Route) {
	cur := r.root
	for i, seg := range segs {
		cl := classifySegment(seg)
		switch cl.kind {
		case kindWildcard:
			if i != len(segs)-1 {
				panic(fmt.Sprintf("router: wildcard segment must be last in %q", route.Path))
			}

			if cur.wild == nil {
				cur.wild = &node{kind: kindWildcard, prefix: cl.name, end: true}
			} else if cur.wild.prefix != cl.name {
				panic(fmt.Sprintf("router: conflicting wildcard name %q in %q, already registered as %q",
					cl.name, route.Path, cur.wild.prefix))
			}
			cur = cur.wild

		case kindRegex:
			var found *node
			for _, rc := range cur.regexes {
				if rc.prefix == cl.name && rc.patternSrc == cl.pattern {
					found = rc
					break
				}
			}

			if found == nil {
				re, err := regexp.Compile("^(?:" + cl.pattern + ")$")
				if err != nil {
					panic("router: " + err.Error())
				}

				found = &node{kind: kindRegex, prefix: cl.name, pattern: re, patternSrc: cl.pattern, end: true}
				cur.regexes = append(cur.regexes, found)
			}
			cur = found

		case kindParam:
			if cur.param == nil {
				cur.param = &node{kind: kindParam, prefix: cl.name, end: true}
			} else if cur.param.prefix != cl.name {
				panic(fmt.Sprintf("router: conflicting parameter name %q in %q, already registered as %q",
					cl.name, route.Path, cur.param.prefix))
			}
			cur = cur.param

		default:
			cur = cur.insertStatic(seg)
		}
	}

	r.attach(cur, method, route)
}

func (r *Router) attach(n *node, method string, route *Route) {
	if n.routes == nil {
		n.routes = map[string]*Route{}
	}

	if prior := n.routes[method]; prior != nil {
		if method != MethodAll {
			r.logs.LogRouteOverwrite(method, route.Path)
		}

		for i, existing := range r.routes {
			if existing == prior {
				r.routes[i] = route
				break
			}
		}
	} else {
		r.routes = append(r.routes, route)
	}

	n.routes[method] = route
}

func splitPath(path string) []string {
	var segs []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			segs = append(segs, seg)
		}
	}

	return segs
}

func canonicalPath(segs []string) string {
	if len(segs) == 0 {
		return "/"
	}

	return "/" + strings.Join(segs, "/")
}

// Package router implements a radix-tree HTTP route table.
//
// Paths are split into segments and stored in a prefix-compressed tree:
// static segments sharing a first byte are merged up to their longest
// common prefix, so matching cost grows with the path length rather than
// with the number of registered routes. Besides static text a segment can
// be a named parameter (":id"), a regex-constrained parameter
// (`:id(\d+)`) or a trailing wildcard ("*rest") that captures everything
// left of the path.
//
// Matching is a depth-first search with a fixed precedence at every level:
// static children first, then regex parameters, then the plain parameter,
// then the wildcard. When a deeper branch fails the search backtracks and
// restores any parameter bindings it made, so bindings never leak between
// exploration branches. A terminal node first looks up the request method
// and then falls back to the [MethodAll] entry; if neither exists the
// search keeps backtracking.
//
// Registration is not synchronized with matching: register all routes
// before serving traffic.
package router

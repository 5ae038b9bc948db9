package router

import (
	"regexp"
	"strings"
)

type kind uint8

const (
	kindStatic kind = iota
	kindRegex
	kindParam
	kindWildcard
)

// node is one vertex of the tree. Static nodes hold a text fragment of a
// single path segment; cont holds same-segment continuations created by
// splits while statics holds the next segment's static children. Regex,
// param and wildcard nodes hold the parameter name in prefix.
type node struct {
	kind       kind
	prefix     string
	pattern    *regexp.Regexp
	patternSrc string

	// end marks static nodes whose accumulated text completes a segment;
	// only such nodes may carry routes or next-segment children.
	end bool

	cont    map[byte]*node
	statics map[byte]*node
	regexes []*node
	param   *node
	wild    *node

	routes map[string]*Route
}

type segClass struct {
	kind    kind
	name    string
	pattern string
}

func classifySegment(seg string) segClass {
	switch {
	case strings.HasPrefix(seg, "*"):
		name := seg[1:]
		if name == "" {
			name = "*"
		}

		return segClass{kind: kindWildcard, name: name}
	case strings.HasPrefix(seg, ":"):
		rest := seg[1:]
		if open := strings.IndexByte(rest, '('); open >= 0 && strings.HasSuffix(rest, ")") {
			return segClass{kind: kindRegex, name: rest[:open], pattern: rest[open+1 : len(rest)-1]}
		}

		return segClass{kind: kindParam, name: rest}
	default:
		return segClass{kind: kindStatic}
	}
}

// insertStatic inserts one segment's text below n, splitting existing
// static children as needed to keep first bytes unambiguous. It returns
// the node at which the full segment ends.
func (n *node) insertStatic(text string) *node {
	if n.statics == nil {
		n.statics = map[byte]*node{}
	}

	owner := n.statics
	for {
		cur := owner[text[0]]
		if cur == nil {
			child := &node{kind: kindStatic, prefix: text, end: true}
			owner[text[0]] = child

			return child
		}

		l := longestCommonPrefix(cur.prefix, text)
		switch {
		case l == len(cur.prefix) && l == len(text):
			cur.end = true
			return cur

		case l == len(text):
			// the new text is a proper prefix: it becomes the parent and
			// the existing node is shortened to its suffix
			parent := &node{kind: kindStatic, prefix: text, end: true, cont: map[byte]*node{}}
			cur.prefix = cur.prefix[l:]
			parent.cont[cur.prefix[0]] = cur
			owner[text[0]] = parent

			return parent

		case l == len(cur.prefix):
			// the existing text is a proper prefix: descend into its
			// continuations with the remaining text
			text = text[l:]
			if cur.cont == nil {
				cur.cont = map[byte]*node{}
			}
			owner = cur.cont

		default:
			// diverging texts: both become children of a synthetic
			// intermediate node holding the common prefix
			inter := &node{kind: kindStatic, prefix: text[:l], cont: map[byte]*node{}}
			cur.prefix = cur.prefix[l:]
			inter.cont[cur.prefix[0]] = cur

			child := &node{kind: kindStatic, prefix: text[l:], end: true}
			inter.cont[child.prefix[0]] = child
			owner[inter.prefix[0]] = inter

			return child
		}
	}
}

func longestCommonPrefix(a, b string) int {
	maxLen := min(len(a), len(b))

	var i int
	for i < maxLen && a[i] == b[i] {
		i++
	}

	return i
}

// search depth-first matches the remaining segments below n, which must
// sit on a segment boundary. Parameter bindings made on a failing branch
// are restored before the next branch is tried.
func (n *node) search(method string, segs []string, idx int, params Params) *Route {
	if idx == len(segs) {
		return n.route(method)
	}

	seg := segs[idx]

	if child := n.statics[seg[0]]; child != nil {
		if route := child.searchStatic(method, segs, idx, seg, params); route != nil {
			return route
		}
	}

	for _, rc := range n.regexes {
		if rc.pattern.MatchString(seg) {
			if route := rc.bindAndSearch(method, segs, idx, seg, params); route != nil {
				return route
			}
		}
	}

	if n.param != nil {
		if route := n.param.bindAndSearch(method, segs, idx, seg, params); route != nil {
			return route
		}
	}

	if n.wild != nil {
		prev, had := params[n.wild.prefix]
		params[n.wild.prefix] = strings.Join(segs[idx:], "/")

		if route := n.wild.route(method); route != nil {
			return route
		}

		restoreBinding(params, n.wild.prefix, prev, had)
	}

	return nil
}

// searchStatic consumes text of the current segment along split nodes.
func (n *node) searchStatic(method string, segs []string, idx int, text string, params Params) *Route {
	if !strings.HasPrefix(text, n.prefix) {
		return nil
	}

	rest := text[len(n.prefix):]
	if rest == "" {
		if !n.end {
			return nil
		}

		return n.search(method, segs, idx+1, params)
	}

	if child := n.cont[rest[0]]; child != nil {
		return child.searchStatic(method, segs, idx, rest, params)
	}

	return nil
}

func (n *node) bindAndSearch(method string, segs []string, idx int, seg string, params Params) *Route {
	prev, had := params[n.prefix]
	params[n.prefix] = seg

	if route := n.search(method, segs, idx+1, params); route != nil {
		return route
	}

	restoreBinding(params, n.prefix, prev, had)

	return nil
}

func (n *node) route(method string) *Route {
	if n.routes == nil {
		return nil
	}

	if route := n.routes[method]; route != nil {
		return route
	}

	return n.routes[MethodAll]
}

func restoreBinding(params Params, name, prev string, had bool) {
	if had {
		params[name] = prev
	} else {
		delete(params, name)
	}
}

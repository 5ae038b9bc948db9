package router_test

import (
	"net/http"
	"testing"

	"github.com/advdv/whttp/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureLogs struct{ overwrites []string }

func (l *captureLogs) LogRouteOverwrite(method, path string) {
	l.overwrites = append(l.overwrites, method+" "+path)
}

func TestStaticRoundTrip(t *testing.T) {
	r := router.New()
	r.Register(http.MethodGet, "/", "root")
	r.Register(http.MethodGet, "/users", "users")
	r.Register(http.MethodGet, "/users/active", "active")

	for path, handler := range map[string]string{
		"/":             "root",
		"/users":        "users",
		"/users/active": "active",
	} {
		route, params, ok := r.Match(http.MethodGet, path)
		require.True(t, ok, path)
		assert.Equal(t, handler, route.Handler)
		assert.Empty(t, params)
	}

	_, _, ok := r.Match(http.MethodGet, "/users/inactive")
	require.False(t, ok)
}

func TestParamBinding(t *testing.T) {
	r := router.New()
	r.Register(http.MethodGet, "/users/:id/books/:book", "book")

	route, params, ok := r.Match(http.MethodGet, "/users/42/books/dune")
	require.True(t, ok)
	assert.Equal(t, "book", route.Handler)
	assert.Equal(t, router.Params{"id": "42", "book": "dune"}, params)
}

func TestStaticBeatsParam(t *testing.T) {
	r := router.New()
	r.Register(http.MethodGet, "/users/:id", "by-id")
	r.Register(http.MethodGet, "/users/active", "active")

	route, params, ok := r.Match(http.MethodGet, "/users/active")
	require.True(t, ok)
	assert.Equal(t, "active", route.Handler)
	assert.Empty(t, params)

	route, params, ok = r.Match(http.MethodGet, "/users/17")
	require.True(t, ok)
	assert.Equal(t, "by-id", route.Handler)
	assert.Equal(t, "17", params["id"])
}

func TestRegexBeatsPlainParam(t *testing.T) {
	r := router.New()
	r.Register(http.MethodGet, `/items/:id(\d+)`, "numeric")
	r.Register(http.MethodGet, "/items/:slug", "slug")

	route, params, ok := r.Match(http.MethodGet, "/items/42")
	require.True(t, ok)
	assert.Equal(t, "numeric", route.Handler)
	assert.Equal(t, "42", params["id"])

	route, params, ok = r.Match(http.MethodGet, "/items/abc")
	require.True(t, ok)
	assert.Equal(t, "slug", route.Handler)
	assert.Equal(t, "abc", params["slug"])
	_, bound := params["id"]
	assert.False(t, bound, "failed regex branch must not leak its binding")
}

func TestRegexOnlyFallsThroughToNoMatch(t *testing.T) {
	r := router.New()
	r.Register(http.MethodGet, `/items/:id(\d+)`, "numeric")

	_, _, ok := r.Match(http.MethodGet, "/items/abc")
	require.False(t, ok)
}

func TestWildcardCapture(t *testing.T) {
	r := router.New()
	r.Register(http.MethodGet, "/files/*path", "files")

	route, params, ok := r.Match(http.MethodGet, "/files/a/b/c")
	require.True(t, ok)
	assert.Equal(t, "files", route.Handler)
	assert.Equal(t, "a/b/c", params["path"])

	_, _, ok = r.Match(http.MethodGet, "/files")
	assert.False(t, ok, "wildcard needs at least one remaining segment")
}

func TestWildcardDefaultName(t *testing.T) {
	r := router.New()
	r.Register(http.MethodGet, "/static/*", "assets")

	_, params, ok := r.Match(http.MethodGet, "/static/css/site.css")
	require.True(t, ok)
	assert.Equal(t, "css/site.css", params["*"])
}

func TestWildcardLowestPrecedence(t *testing.T) {
	r := router.New()
	r.Register(http.MethodGet, "/files/*path", "wild")
	r.Register(http.MethodGet, "/files/readme", "readme")
	r.Register(http.MethodGet, "/files/:name", "named")

	route, _, ok := r.Match(http.MethodGet, "/files/readme")
	require.True(t, ok)
	assert.Equal(t, "readme", route.Handler)

	route, params, ok := r.Match(http.MethodGet, "/files/other")
	require.True(t, ok)
	assert.Equal(t, "named", route.Handler)
	assert.Equal(t, "other", params["name"])

	route, params, ok = r.Match(http.MethodGet, "/files/a/b")
	require.True(t, ok)
	assert.Equal(t, "wild", route.Handler)
	assert.Equal(t, "a/b", params["path"])
}

func TestNodeSplitting(t *testing.T) {
	r := router.New()

	// splits "team" and "tech" below a synthetic "te" node, then marks
	// "te" as a real segment and hangs a next-segment child off it
	r.Register(http.MethodGet, "/team", "team")
	r.Register(http.MethodGet, "/tech", "tech")
	r.Register(http.MethodGet, "/te", "te")
	r.Register(http.MethodGet, "/te/ant", "ant")
	r.Register(http.MethodGet, "/tea", "tea")

	for path, handler := range map[string]string{
		"/team":   "team",
		"/tech":   "tech",
		"/te":     "te",
		"/te/ant": "ant",
		"/tea":    "tea",
	} {
		route, _, ok := r.Match(http.MethodGet, path)
		require.True(t, ok, path)
		assert.Equal(t, handler, route.Handler, path)
	}

	for _, path := range []string{"/t", "/teams", "/tex", "/te/an"} {
		_, _, ok := r.Match(http.MethodGet, path)
		assert.False(t, ok, path)
	}
}

func TestMethodMissBacktracksToParam(t *testing.T) {
	r := router.New()
	r.Register(http.MethodGet, "/users/active", "active")
	r.Register(http.MethodPost, "/users/:id", "post-by-id")

	// the static terminal has no POST entry, so the search backtracks
	// into the parameter branch instead of failing outright
	route, params, ok := r.Match(http.MethodPost, "/users/active")
	require.True(t, ok)
	assert.Equal(t, "post-by-id", route.Handler)
	assert.Equal(t, "active", params["id"])
}

func TestAllMethodFallback(t *testing.T) {
	r := router.New()
	r.Register(router.MethodAll, "/health", "any")
	r.Register(http.MethodGet, "/health", "get")

	route, _, ok := r.Match(http.MethodGet, "/health")
	require.True(t, ok)
	assert.Equal(t, "get", route.Handler)

	route, _, ok = r.Match(http.MethodDelete, "/health")
	require.True(t, ok)
	assert.Equal(t, "any", route.Handler)
}

func TestBacktrackingRestoresBindings(t *testing.T) {
	r := router.New()
	r.Register(http.MethodGet, "/a/:x/c", "xc")
	r.Register(http.MethodGet, "/a/*rest", "rest")

	// ":x" binds "1" first but its subtree has no "d", so the search
	// backtracks into the wildcard; the abandoned binding must be gone
	route, params, ok := r.Match(http.MethodGet, "/a/1/d")
	require.True(t, ok)
	assert.Equal(t, "rest", route.Handler)
	assert.Equal(t, router.Params{"rest": "1/d"}, params)
}

func TestPathNormalization(t *testing.T) {
	r := router.New()
	r.Register(http.MethodGet, "users//:id/", "user")

	route, params, ok := r.Match(http.MethodGet, "///users/7///")
	require.True(t, ok)
	assert.Equal(t, "user", route.Handler)
	assert.Equal(t, "7", params["id"])
	assert.Equal(t, "/users/:id", route.Path)
}

func TestOverwriteWarnsAndReplaces(t *testing.T) {
	logs := &captureLogs{}
	r := router.NewWith(logs)
	r.Register(http.MethodGet, "/users", "one")
	r.Register(http.MethodGet, "/users", "two")

	route, _, ok := r.Match(http.MethodGet, "/users")
	require.True(t, ok)
	assert.Equal(t, "two", route.Handler)
	assert.Equal(t, []string{"GET /users"}, logs.overwrites)

	routes := r.Routes()
	require.Len(t, routes, 1)
	assert.Equal(t, "two", routes[0].Handler)
}

func TestAllRegistrationIsAdditive(t *testing.T) {
	logs := &captureLogs{}
	r := router.NewWith(logs)
	r.Register(http.MethodGet, "/health", "get")
	r.Register(router.MethodAll, "/health", "any")

	assert.Empty(t, logs.overwrites)
	assert.Len(t, r.Routes(), 2)
}

func TestRoutesIntrospection(t *testing.T) {
	r := router.New()
	r.Register(http.MethodGet, "/users", "list", "users-list")
	r.Register(http.MethodPost, "/users", "create")

	routes := r.Routes()
	require.Len(t, routes, 2)
	assert.Equal(t, "/users", routes[0].Path)
	assert.Equal(t, http.MethodGet, routes[0].Method)
	assert.Equal(t, "users-list", routes[0].Name)
	assert.Equal(t, http.MethodPost, routes[1].Method)
}

func TestRegistrationPanics(t *testing.T) {
	t.Run("should panic on invalid regex", func(t *testing.T) {
		r := router.New()
		assert.Panics(t, func() { r.Register(http.MethodGet, "/items/:id([)", "x") })
	})

	t.Run("should panic on non-trailing wildcard", func(t *testing.T) {
		r := router.New()
		assert.Panics(t, func() { r.Register(http.MethodGet, "/files/*rest/meta", "x") })
	})

	t.Run("should panic on conflicting parameter names", func(t *testing.T) {
		r := router.New()
		r.Register(http.MethodGet, "/users/:id", "x")
		assert.Panics(t, func() { r.Register(http.MethodGet, "/users/:uid/books", "y") })
	})

	t.Run("should panic on duplicate route name", func(t *testing.T) {
		r := router.New()
		r.Register(http.MethodGet, "/a", "x", "dup")
		assert.Panics(t, func() { r.Register(http.MethodGet, "/b", "y", "dup") })
	})
}

package whttp

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

var defaultCORSMethods = []string{
	http.MethodGet, http.MethodHead, http.MethodPut,
	http.MethodPatch, http.MethodPost, http.MethodDelete,
}

// CORS configures cross-origin resource sharing. Exactly one of the origin
// policies applies, checked in order: OriginFunc, Origins, Origin, AllowAll.
type CORS struct {
	AllowAll   bool
	Origin     string
	Origins    []string
	OriginFunc func(origin string) bool

	Methods        []string
	AllowedHeaders []string
	ExposedHeaders []string
	Credentials    bool
	MaxAge         int
}

// allowOrigin returns the Access-Control-Allow-Origin value for the given
// request origin, false when the origin is not allowed.
func (c CORS) allowOrigin(origin string) (string, bool) {
	switch {
	case c.OriginFunc != nil:
		if origin != "" && c.OriginFunc(origin) {
			return origin, true
		}
	case len(c.Origins) > 0:
		if lo.Contains(c.Origins, origin) {
			return origin, true
		}
	case c.Origin != "":
		return c.Origin, true
	case c.AllowAll:
		// the wildcard origin is invalid when credentials are allowed, so
		// reflect the caller's origin instead.
		if c.Credentials && origin != "" {
			return origin, true
		}

		return "*", true
	}

	return "", false
}

// apply decorates the response with the cross-origin headers the given
// request asks for. Preflight responses additionally answer the
// Access-Control-Request-* negotiation.
func (c CORS) apply(resp *Response, req *http.Request, preflight bool) {
	origin := req.Header.Get("Origin")

	allowed, ok := c.allowOrigin(origin)
	if !ok {
		return
	}

	hdr := resp.Header
	hdr.Set("Access-Control-Allow-Origin", allowed)

	if allowed != "*" {
		hdr.Add("Vary", "Origin")
	}

	if c.Credentials {
		hdr.Set("Access-Control-Allow-Credentials", "true")
	}

	if !preflight {
		if len(c.ExposedHeaders) > 0 {
			hdr.Set("Access-Control-Expose-Headers", strings.Join(c.ExposedHeaders, ","))
		}

		return
	}

	methods := c.Methods
	if len(methods) < 1 {
		methods = defaultCORSMethods
	}

	hdr.Set("Access-Control-Allow-Methods", strings.Join(methods, ","))

	switch {
	case len(c.AllowedHeaders) > 0:
		hdr.Set("Access-Control-Allow-Headers", strings.Join(c.AllowedHeaders, ","))
	case req.Header.Get("Access-Control-Request-Headers") != "":
		hdr.Set("Access-Control-Allow-Headers", req.Header.Get("Access-Control-Request-Headers"))
		hdr.Add("Vary", "Access-Control-Request-Headers")
	}

	if c.MaxAge > 0 {
		hdr.Set("Access-Control-Max-Age", strconv.Itoa(c.MaxAge))
	}
}

// isPreflight reports whether the request is a CORS preflight: an OPTIONS
// request that carries an origin and a requested method.
func isPreflight(req *http.Request) bool {
	return req.Method == http.MethodOptions &&
		req.Header.Get("Origin") != "" &&
		req.Header.Get("Access-Control-Request-Method") != ""
}

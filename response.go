package whttp

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Response is the materialized result of one request: a status code, headers
// and the final body bytes. Handlers can receive one as a builder through
// [Res] to set headers or the status up front, or return one directly to
// bypass result encoding altogether.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// NewResponse inits an empty response builder.
func NewResponse() *Response {
	return &Response{Header: http.Header{}}
}

// Status sets the status code, overriding the route's declared status.
func (r *Response) Status(code int) *Response {
	r.StatusCode = code
	return r
}

// SetHeader sets a response header, replacing any existing value.
func (r *Response) SetHeader(key, value string) *Response {
	r.Header.Set(key, value)
	return r
}

// Write appends to the response body, making the response usable as an
// io.Writer for encoders and fmt.Fprintf.
func (r *Response) Write(p []byte) (int, error) {
	r.Body = append(r.Body, p...)
	return len(p), nil
}

// writeTo flushes the response to the underlying writer.
func (r *Response) writeTo(w http.ResponseWriter) error {
	for key, vals := range r.Header {
		for _, val := range vals {
			w.Header().Add(key, val)
		}
	}

	status := r.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	w.WriteHeader(status)

	if len(r.Body) < 1 {
		return nil
	}

	if _, err := w.Write(r.Body); err != nil {
		return errors.Wrap(err, "write response body")
	}

	return nil
}

// materialize turns a handler result into the final response, merging in
// whatever the handler already put on the response builder. A *Response
// result is passed through untouched.
func materialize(result any, built *Response, defaultStatus int, extra map[string]string) (*Response, error) {
	if resp, ok := result.(*Response); ok && resp != nil {
		if resp.Header == nil {
			resp.Header = http.Header{}
		}

		return resp, nil
	}

	resp := built
	if resp == nil {
		resp = NewResponse()
	}

	for key, val := range extra {
		if resp.Header.Get(key) == "" {
			resp.Header.Set(key, val)
		}
	}

	status := resp.StatusCode
	if status == 0 {
		status = defaultStatus
	}

	switch v := result.(type) {
	case nil:
		if status == 0 && len(resp.Body) < 1 {
			status = http.StatusNoContent
		}
	case string:
		resp.Body = append(resp.Body, v...)
		if resp.Header.Get("Content-Type") == "" {
			resp.Header.Set("Content-Type", "text/plain; charset=utf-8")
		}
	case []byte:
		resp.Body = append(resp.Body, v...)
		if resp.Header.Get("Content-Type") == "" {
			resp.Header.Set("Content-Type", "application/octet-stream")
		}
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, errors.Wrap(err, "encode response body")
		}

		resp.Body = append(resp.Body, raw...)
		if resp.Header.Get("Content-Type") == "" {
			resp.Header.Set("Content-Type", "application/json")
		}
	}

	if status == 0 {
		status = http.StatusOK
	}

	resp.StatusCode = status

	return resp, nil
}

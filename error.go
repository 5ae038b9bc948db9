package whttp

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// Code is an error code that mirrors the http status codes. It can be used to create errors to pass around across
// pipeline layers to handle errors structurally.
type Code int

const (
	CodeUnknown                      Code = 0
	CodeBadRequest                   Code = http.StatusBadRequest                   // RFC 9110, 15.5.1
	CodeUnauthorized                 Code = http.StatusUnauthorized                 // RFC 9110, 15.5.2
	CodePaymentRequired              Code = http.StatusPaymentRequired              // RFC 9110, 15.5.3
	CodeForbidden                    Code = http.StatusForbidden                    // RFC 9110, 15.5.4
	CodeNotFound                     Code = http.StatusNotFound                     // RFC 9110, 15.5.5
	CodeMethodNotAllowed             Code = http.StatusMethodNotAllowed             // RFC 9110, 15.5.6
	CodeNotAcceptable                Code = http.StatusNotAcceptable                // RFC 9110, 15.5.7
	CodeProxyAuthRequired            Code = http.StatusProxyAuthRequired            // RFC 9110, 15.5.8
	CodeRequestTimeout               Code = http.StatusRequestTimeout               // RFC 9110, 15.5.9
	CodeConflict                     Code = http.StatusConflict                     // RFC 9110, 15.5.10
	CodeGone                         Code = http.StatusGone                         // RFC 9110, 15.5.11
	CodeLengthRequired               Code = http.StatusLengthRequired               // RFC 9110, 15.5.12
	CodePreconditionFailed           Code = http.StatusPreconditionFailed           // RFC 9110, 15.5.13
	CodeRequestEntityTooLarge        Code = http.StatusRequestEntityTooLarge        // RFC 9110, 15.5.14
	CodeRequestURITooLong            Code = http.StatusRequestURITooLong            // RFC 9110, 15.5.15
	CodeUnsupportedMediaType         Code = http.StatusUnsupportedMediaType         // RFC 9110, 15.5.16
	CodeRequestedRangeNotSatisfiable Code = http.StatusRequestedRangeNotSatisfiable // RFC 9110, 15.5.17
	CodeExpectationFailed            Code = http.StatusExpectationFailed            // RFC 9110, 15.5.18
	CodeTeapot                       Code = http.StatusTeapot                       // RFC 9110, 15.5.19 (Unused)
	CodeMisdirectedRequest           Code = http.StatusMisdirectedRequest           // RFC 9110, 15.5.20
	CodeUnprocessableEntity          Code = http.StatusUnprocessableEntity          // RFC 9110, 15.5.21
	CodeLocked                       Code = http.StatusLocked                       // RFC 4918, 11.3
	CodeFailedDependency             Code = http.StatusFailedDependency             // RFC 4918, 11.4
	CodeTooEarly                     Code = http.StatusTooEarly                     // RFC 8470, 5.2.
	CodeUpgradeRequired              Code = http.StatusUpgradeRequired              // RFC 9110, 15.5.22
	CodePreconditionRequired         Code = http.StatusPreconditionRequired         // RFC 6585, 3
	CodeTooManyRequests              Code = http.StatusTooManyRequests              // RFC 6585, 4
	CodeRequestHeaderFieldsTooLarge  Code = http.StatusRequestHeaderFieldsTooLarge  // RFC 6585, 5
	CodeUnavailableForLegalReasons   Code = http.StatusUnavailableForLegalReasons   // RFC 7725, 3

	CodeInternalServerError           Code = http.StatusInternalServerError           // RFC 9110, 15.6.1
	CodeNotImplemented                Code = http.StatusNotImplemented                // RFC 9110, 15.6.2
	CodeBadGateway                    Code = http.StatusBadGateway                    // RFC 9110, 15.6.3
	CodeServiceUnavailable            Code = http.StatusServiceUnavailable            // RFC 9110, 15.6.4
	CodeGatewayTimeout                Code = http.StatusGatewayTimeout                // RFC 9110, 15.6.5
	CodeHTTPVersionNotSupported       Code = http.StatusHTTPVersionNotSupported       // RFC 9110, 15.6.6
	CodeVariantAlsoNegotiates         Code = http.StatusVariantAlsoNegotiates         // RFC 2295, 8.1
	CodeInsufficientStorage           Code = http.StatusInsufficientStorage           // RFC 4918, 11.5
	CodeLoopDetected                  Code = http.StatusLoopDetected                  // RFC 5842, 7.2
	CodeNotExtended                   Code = http.StatusNotExtended                   // RFC 2774, 7
	CodeNetworkAuthenticationRequired Code = http.StatusNetworkAuthenticationRequired // RFC 6585, 6
)

// Error describes an http error. Besides the status code it can carry a public
// body rendered into the error envelope and extra response headers.
type Error struct {
	code   Code
	err    error
	body   any
	header http.Header
}

// NewError inits a new error given the error code.
func NewError(c Code, underlying error) *Error {
	return &Error{code: c, err: underlying}
}

// NewErrorf inits a new error from a format string.
func NewErrorf(c Code, format string, args ...any) *Error {
	return &Error{code: c, err: fmt.Errorf(format, args...)} //nolint:goerr113
}

// NewPublicError inits an error whose body is rendered to the client verbatim
// as the envelope's message field. Use it when the message is meant for the
// caller, not just for the logs.
func NewPublicError(c Code, body any) *Error {
	msg, ok := body.(string)
	if !ok {
		msg = fmt.Sprintf("%v", body)
	}

	return &Error{code: c, err: errors.New(msg), body: body} //nolint:goerr113
}

// FieldViolation describes a single failed validation rule on a request field.
type FieldViolation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// NewValidationError inits a bad-request error whose body lists the given
// field violations in a structured form.
func NewValidationError(violations ...FieldViolation) *Error {
	msgs := make([]string, 0, len(violations))
	for _, v := range violations {
		msgs = append(msgs, v.Message)
	}

	return &Error{
		code: CodeBadRequest,
		err:  errors.New("validation failed"), //nolint:goerr113
		body: map[string]any{"message": msgs, "violations": violations},
	}
}

// WithHeader returns a copy of the error that carries an extra response
// header, e.g. Retry-After on a rate-limit error.
func (e *Error) WithHeader(key, value string) *Error {
	clone := *e
	clone.header = e.header.Clone()
	if clone.header == nil {
		clone.header = http.Header{}
	}

	clone.header.Set(key, value)

	return &clone
}

// WithRetryAfter returns a copy of the error with a Retry-After header of the
// given number of seconds.
func (e *Error) WithRetryAfter(seconds int) *Error {
	return e.WithHeader("Retry-After", strconv.Itoa(seconds))
}

func (e *Error) Code() Code          { return e.code }
func (e *Error) Body() any           { return e.body }
func (e *Error) Header() http.Header { return e.header }
func (e *Error) Unwrap() error       { return e.err }

func (e *Error) Error() string {
	status := http.StatusText(int(e.Code()))
	if status == "" {
		status = "Unknown"
	}

	return fmt.Sprintf("%s: %s", status, e.err.Error())
}

// CodeOf returns the error's status code if it is or wraps an [*Error] and
// [CodeUnknown] otherwise.
func CodeOf(err error) Code {
	if httpErr, ok := asError(err); ok {
		return httpErr.Code()
	}
	return CodeUnknown
}

// asError uses errors.As to unwrap any error and look for a whttp *Error.
func asError(err error) (*Error, bool) {
	var httpErr *Error
	ok := errors.As(err, &httpErr)
	return httpErr, ok
}

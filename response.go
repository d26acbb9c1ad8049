package stratus

import "net/http"

// Response is the structured result of handling a request. Body may be
// nil, raw []byte/string, or any value the engine's codec can
// serialize. The zero ContentType is only applied when a body is
// actually written.
type Response struct {
	Status      int
	Body        any
	ContentType string
	Header      http.Header
}

// NewResponse builds a response with the default application/json
// content type.
func NewResponse(status int, body any) *Response {
	return &Response{
		Status:      status,
		Body:        body,
		ContentType: "application/json",
		Header:      make(http.Header),
	}
}

// OK returns a 200 response.
func OK(body any) *Response {
	return NewResponse(http.StatusOK, body)
}

// Created returns a 201 response.
func Created(body any) *Response {
	return NewResponse(http.StatusCreated, body)
}

// NoContent returns an empty 204 response.
func NoContent() *Response {
	return NewResponse(http.StatusNoContent, nil)
}

// NotFound returns a 404 response.
func NotFound(body any) *Response {
	return NewResponse(http.StatusNotFound, body)
}

// BadRequest returns a 400 response.
func BadRequest(body any) *Response {
	return NewResponse(http.StatusBadRequest, body)
}

// Unauthorized returns a 401 response.
func Unauthorized(body any) *Response {
	return NewResponse(http.StatusUnauthorized, body)
}

// TooManyRequests returns a 429 response.
func TooManyRequests(body any) *Response {
	return NewResponse(http.StatusTooManyRequests, body)
}

// Text returns a plain-text response.
func Text(status int, body string) *Response {
	r := NewResponse(status, body)
	r.ContentType = "text/plain; charset=utf-8"
	return r
}

// WithHeader sets a header and returns the response for chaining.
func (r *Response) WithHeader(key, value string) *Response {
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	r.Header.Set(key, value)
	return r
}

// WithContentType overrides the content type and returns the response.
func (r *Response) WithContentType(contentType string) *Response {
	r.ContentType = contentType
	return r
}

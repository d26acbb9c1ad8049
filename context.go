package stratus

import (
	"io"
	"net/http"
	"net/url"
)

// Attribute bag keys set by the dispatcher when a route matches.
const (
	// AttrPathParams holds the map[string]string of captured path values.
	AttrPathParams = "pathParams"
	// AttrRoute holds the matched *Route.
	AttrRoute = "route"
)

// Context carries everything about one request through middleware,
// binding and the handler. One Context is created per request and is
// not safe for concurrent use.
type Context struct {
	method string
	path   string
	header http.Header
	query  url.Values
	remote string

	req      *http.Request
	body     []byte
	bodyErr  error
	bodyRead bool

	attrs map[string]any
}

// NewContext builds a bare context, mainly useful for tests and for
// dispatching outside an HTTP server.
func NewContext(method, path string) *Context {
	return &Context{
		method: method,
		path:   path,
		header: make(http.Header),
		query:  make(url.Values),
		attrs:  make(map[string]any),
	}
}

// NewContextFromRequest builds a context backed by an incoming HTTP
// request. The body is read lazily on first access.
func NewContextFromRequest(r *http.Request) *Context {
	return &Context{
		method: r.Method,
		path:   r.URL.Path,
		header: r.Header,
		query:  r.URL.Query(),
		remote: r.RemoteAddr,
		req:    r,
		attrs:  make(map[string]any),
	}
}

func (c *Context) Method() string { return c.method }

// Path returns the request path as received. When a sub-engine handles
// a mounted request this is still the original full path.
func (c *Context) Path() string { return c.path }

// Header returns the request headers. The map is shared, not copied.
func (c *Context) Header() http.Header { return c.header }

// Query returns the parsed query parameters.
func (c *Context) Query() url.Values { return c.query }

// RemoteAddr returns the peer address, empty outside an HTTP server.
func (c *Context) RemoteAddr() string { return c.remote }

// Request returns the underlying *http.Request, or nil when the
// context was built directly.
func (c *Context) Request() *http.Request { return c.req }

// Body returns the full request body. The first call buffers it, so
// repeated calls and multiple body bindings see the same bytes.
func (c *Context) Body() ([]byte, error) {
	if c.bodyRead {
		return c.body, c.bodyErr
	}
	c.bodyRead = true

	if c.req == nil || c.req.Body == nil {
		return nil, nil
	}

	c.body, c.bodyErr = io.ReadAll(c.req.Body)
	c.req.Body.Close()
	return c.body, c.bodyErr
}

// SetBody replaces the buffered body, mainly useful for tests.
func (c *Context) SetBody(b []byte) {
	c.body = b
	c.bodyErr = nil
	c.bodyRead = true
}

// Set stores a value in the request-scoped attribute bag.
func (c *Context) Set(key string, value any) {
	c.attrs[key] = value
}

// Get reads a value from the attribute bag.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.attrs[key]
	return v, ok
}

// PathParams returns the captured path values for the matched route,
// or nil before matching.
func (c *Context) PathParams() map[string]string {
	params, _ := c.attrs[AttrPathParams].(map[string]string)
	return params
}

// PathParam returns one captured path value, or "" when absent.
func (c *Context) PathParam(name string) string {
	return c.PathParams()[name]
}

// Route returns the matched route, or nil before matching.
func (c *Context) Route() *Route {
	route, _ := c.attrs[AttrRoute].(*Route)
	return route
}

// setMatch records the matched route and its captured values in the
// attribute bag. Values arrive in the pattern's declaration order.
func (c *Context) setMatch(route *Route, values []string) {
	params := make(map[string]string, len(values))
	for i, name := range route.Pattern.Names() {
		if i < len(values) {
			params[name] = values[i]
		}
	}
	c.attrs[AttrPathParams] = params
	c.attrs[AttrRoute] = route
}

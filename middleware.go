package stratus

// Middleware wraps request handling with a pair of hooks. Before runs
// ahead of binding and the handler; After runs once a response exists.
// Both tiers run in declaration order: engine middleware first, then
// controller middleware, then route middleware. After hooks run in the
// same forward order as Before hooks, not reversed, and are skipped
// entirely when any Before hook short-circuits.
//
// A Middleware instance is shared across requests and must be safe for
// concurrent use; per-request state belongs in the Context.
type Middleware interface {
	// Before may veto the request by short-circuiting with a response.
	Before(ctx *Context) Result

	// After receives the current response and returns the response to
	// continue with. Returning nil keeps the current response.
	After(resp *Response, ctx *Context) *Response
}

// Result is the outcome of a Before hook: either proceed with the
// chain or short-circuit with a response that is returned to the
// client as-is.
type Result struct {
	proceed  bool
	response *Response
}

// Proceed lets the chain continue.
func Proceed() Result {
	return Result{proceed: true}
}

// ShortCircuit stops the chain. The remaining Before hooks, binding,
// the handler and every After hook are skipped and resp is returned
// unchanged.
func ShortCircuit(resp *Response) Result {
	return Result{response: resp}
}

// ShortCircuited reports whether the result stops the chain.
func (r Result) ShortCircuited() bool {
	return !r.proceed
}

// Response returns the short-circuit response, nil when proceeding.
func (r Result) Response() *Response {
	return r.response
}

// BeforeFunc adapts a function into a Middleware with a no-op After.
type BeforeFunc func(ctx *Context) Result

func (f BeforeFunc) Before(ctx *Context) Result { return f(ctx) }

func (f BeforeFunc) After(resp *Response, _ *Context) *Response { return resp }

// AfterFunc adapts a function into a Middleware with a no-op Before.
type AfterFunc func(resp *Response, ctx *Context) *Response

func (f AfterFunc) Before(_ *Context) Result { return Proceed() }

func (f AfterFunc) After(resp *Response, ctx *Context) *Response { return f(resp, ctx) }

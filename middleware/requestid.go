package middleware

import (
	"github.com/google/uuid"

	"github.com/stratushq/stratus"
)

const requestIDAttr = "middleware.requestID"

type requestIDConfig struct {
	headerName  string
	generator   func() string
	useExisting bool
}

// RequestIDOption configures the RequestID middleware.
type RequestIDOption func(*requestIDConfig)

// WithRequestIDHeader changes the header carrying the ID, X-Request-ID
// by default.
func WithRequestIDHeader(name string) RequestIDOption {
	return func(c *requestIDConfig) {
		if name != "" {
			c.headerName = name
		}
	}
}

// WithRequestIDGenerator replaces the UUID generator.
func WithRequestIDGenerator(generator func() string) RequestIDOption {
	return func(c *requestIDConfig) {
		if generator != nil {
			c.generator = generator
		}
	}
}

// WithoutClientRequestID always generates a fresh ID instead of
// trusting one sent by the client.
func WithoutClientRequestID() RequestIDOption {
	return func(c *requestIDConfig) {
		c.useExisting = false
	}
}

// RequestID returns middleware that assigns each request an ID in the
// Before hook and reflects it on the response header in the After
// hook. Client-supplied IDs are reused unless disabled.
func RequestID(opts ...RequestIDOption) stratus.Middleware {
	cfg := requestIDConfig{
		headerName:  "X-Request-ID",
		generator:   uuid.NewString,
		useExisting: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return requestIDMiddleware{cfg: cfg}
}

type requestIDMiddleware struct {
	cfg requestIDConfig
}

func (m requestIDMiddleware) Before(ctx *stratus.Context) stratus.Result {
	id := ""
	if m.cfg.useExisting {
		id = ctx.Header().Get(m.cfg.headerName)
	}
	if id == "" {
		id = m.cfg.generator()
	}
	ctx.Set(requestIDAttr, id)
	return stratus.Proceed()
}

func (m requestIDMiddleware) After(resp *stratus.Response, ctx *stratus.Context) *stratus.Response {
	if id := RequestIDFrom(ctx); id != "" {
		resp.WithHeader(m.cfg.headerName, id)
	}
	return resp
}

// RequestIDFrom returns the ID assigned to this request, or "" when
// the RequestID middleware did not run.
func RequestIDFrom(ctx *stratus.Context) string {
	id, _ := ctx.Get(requestIDAttr)
	s, _ := id.(string)
	return s
}

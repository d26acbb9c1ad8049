package middleware

import (
	"net/http"
	"strings"

	"github.com/stratushq/stratus"
)

// CORSConfig lists what cross-origin requests are allowed. An empty
// or "*" origins list allows every origin.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// CORS returns middleware that answers preflight OPTIONS requests in
// its Before hook and decorates every other response with the
// Access-Control headers in its After hook.
func CORS(cfg CORSConfig) stratus.Middleware {
	if len(cfg.AllowedMethods) == 0 {
		cfg.AllowedMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	}
	if len(cfg.AllowedHeaders) == 0 {
		cfg.AllowedHeaders = []string{"Content-Type", "Authorization", "X-API-Key"}
	}

	return corsMiddleware{
		cfg:      cfg,
		allowAll: len(cfg.AllowedOrigins) == 0 || contains(cfg.AllowedOrigins, "*"),
		methods:  strings.Join(cfg.AllowedMethods, ", "),
		headers:  strings.Join(cfg.AllowedHeaders, ", "),
	}
}

type corsMiddleware struct {
	cfg      CORSConfig
	allowAll bool
	methods  string
	headers  string
}

func (m corsMiddleware) Before(ctx *stratus.Context) stratus.Result {
	if ctx.Method() != http.MethodOptions {
		return stratus.Proceed()
	}

	origin := ctx.Header().Get("Origin")
	if origin == "" {
		return stratus.Proceed()
	}

	resp := stratus.NoContent()
	m.apply(resp, origin)
	return stratus.ShortCircuit(resp)
}

func (m corsMiddleware) After(resp *stratus.Response, ctx *stratus.Context) *stratus.Response {
	if origin := ctx.Header().Get("Origin"); origin != "" {
		m.apply(resp, origin)
	}
	return resp
}

func (m corsMiddleware) apply(resp *stratus.Response, origin string) {
	switch {
	case m.allowAll:
		resp.WithHeader("Access-Control-Allow-Origin", "*")
	case contains(m.cfg.AllowedOrigins, origin):
		resp.WithHeader("Access-Control-Allow-Origin", origin)
		resp.WithHeader("Vary", "Origin")
	default:
		return
	}

	resp.WithHeader("Access-Control-Allow-Methods", m.methods)
	resp.WithHeader("Access-Control-Allow-Headers", m.headers)
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

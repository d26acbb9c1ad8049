package middleware

import (
	"strings"

	"github.com/stratushq/stratus"
)

// APIKeyAuth returns middleware that rejects requests lacking one of
// the configured keys. The key is taken from the Authorization header
// (Bearer or ApiKey scheme), the X-API-Key header, or the api_key
// query parameter, in that order.
func APIKeyAuth(keys ...string) stratus.Middleware {
	allowed := make(map[string]bool, len(keys))
	for _, key := range keys {
		if key != "" {
			allowed[key] = true
		}
	}

	return stratus.BeforeFunc(func(ctx *stratus.Context) stratus.Result {
		if allowed[ExtractAPIKey(ctx)] {
			return stratus.Proceed()
		}
		return stratus.ShortCircuit(stratus.Unauthorized("unauthorized: invalid or missing API key"))
	})
}

// ExtractAPIKey pulls the client's API key from the request, or ""
// when none is present.
func ExtractAPIKey(ctx *stratus.Context) string {
	auth := ctx.Header().Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if strings.HasPrefix(auth, "ApiKey ") {
		return strings.TrimPrefix(auth, "ApiKey ")
	}

	if key := ctx.Header().Get("X-API-Key"); key != "" {
		return key
	}

	return ctx.Query().Get("api_key")
}

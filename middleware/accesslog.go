package middleware

import (
	"log/slog"
	"time"

	"github.com/stratushq/stratus"
)

const accessLogStartAttr = "middleware.accessLogStart"

// AccessLog returns middleware that logs every request that reaches
// its After hook with method, path, status and duration. Requests
// short-circuited further down the chain are not logged here; the
// short-circuiting middleware owns that decision.
func AccessLog(logger *slog.Logger) stratus.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return accessLogMiddleware{logger: logger}
}

type accessLogMiddleware struct {
	logger *slog.Logger
}

func (m accessLogMiddleware) Before(ctx *stratus.Context) stratus.Result {
	ctx.Set(accessLogStartAttr, time.Now())
	return stratus.Proceed()
}

func (m accessLogMiddleware) After(resp *stratus.Response, ctx *stratus.Context) *stratus.Response {
	attrs := []any{
		"method", ctx.Method(),
		"path", ctx.Path(),
		"status", resp.Status,
	}

	if start, ok := ctx.Get(accessLogStartAttr); ok {
		if t, ok := start.(time.Time); ok {
			attrs = append(attrs, "duration", time.Since(t))
		}
	}
	if id := RequestIDFrom(ctx); id != "" {
		attrs = append(attrs, "request_id", id)
	}

	m.logger.Info("request completed", attrs...)
	return resp
}

package stratus

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// MetricsRecorder receives dispatch observations. The metrics package
// provides a Prometheus-backed implementation; a nil recorder disables
// recording entirely.
type MetricsRecorder interface {
	RecordRequest(route, method string, status int, duration time.Duration)
	InFlightRequests(route string) func()
	RecordShortCircuit(route string)
	RecordError(route, kind string)
}

// NotFoundHandler synthesizes the response for an unmatched request.
type NotFoundHandler func(method, path string, ctx *Context) *Response

// DefaultNotFound produces the stock plain-text 404.
func DefaultNotFound(method, path string, ctx *Context) *Response {
	return Text(http.StatusNotFound, "404 - route not found: "+path)
}

// Dispatcher turns (method, path, context) into a response. It owns
// the full request lifecycle after transport: route lookup, the
// middleware chain, argument binding, handler invocation, result
// mapping and after hooks. No failure escapes Handle; anything that
// goes wrong past matching is reported as a 500 with a diagnostic
// body. Malformed client input that breaks binding takes the same 500
// path rather than a 400, matching the behavior callers of this
// framework already depend on.
type Dispatcher struct {
	router   *Router
	binder   *Binder
	global   []Middleware
	notFound NotFoundHandler
	metrics  MetricsRecorder
	logger   *slog.Logger
}

func NewDispatcher(router *Router, binder *Binder, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		router:   router,
		binder:   binder,
		notFound: DefaultNotFound,
		logger:   logger,
	}
}

// Use appends engine-level middleware that runs ahead of controller
// and route middleware on every matched request.
func (d *Dispatcher) Use(mw ...Middleware) {
	d.global = append(d.global, mw...)
}

// SetNotFoundHandler replaces the 404 synthesizer.
func (d *Dispatcher) SetNotFoundHandler(h NotFoundHandler) {
	if h != nil {
		d.notFound = h
	}
}

// SetMetrics wires a recorder. Call before serving.
func (d *Dispatcher) SetMetrics(m MetricsRecorder) {
	d.metrics = m
}

// Handle dispatches one request and always returns a non-nil response.
func (d *Dispatcher) Handle(method, path string, ctx *Context) (resp *Response) {
	route, values, ok := d.router.Match(method, path)
	if !ok {
		if d.metrics != nil {
			d.metrics.RecordError("unknown", "not_found")
		}
		return d.notFound(method, path, ctx)
	}

	routeName := route.displayName()
	if d.metrics != nil {
		done := d.metrics.InFlightRequests(routeName)
		defer done()
	}

	ctx.setMatch(route, values)
	chain := d.chain(route)

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("request handling panicked", "route", routeName, "panic", r)
			if d.metrics != nil {
				d.metrics.RecordError(routeName, "panic")
			}
			resp = Text(http.StatusInternalServerError, fmt.Sprintf("server error: %v", r))
		}
	}()

	// Before hooks run strictly in order; the first short-circuit wins
	// and its response bypasses binding, the handler and all after hooks.
	for _, mw := range chain {
		result := mw.Before(ctx)
		if result.ShortCircuited() {
			if d.metrics != nil {
				d.metrics.RecordShortCircuit(routeName)
			}
			if result.response == nil {
				return NoContent()
			}
			return result.response
		}
	}

	args, err := d.binder.Bind(route, ctx)
	if err != nil {
		d.logger.Error("argument binding failed", "route", routeName, "error", err)
		if d.metrics != nil {
			d.metrics.RecordError(routeName, "binding")
		}
		return Text(http.StatusInternalServerError, "server error: "+err.Error())
	}

	out, err := route.Handler(args)
	if err != nil {
		d.logger.Error("handler failed", "route", routeName, "error", err)
		if d.metrics != nil {
			d.metrics.RecordError(routeName, "handler")
		}
		return Text(http.StatusInternalServerError, "server error: "+err.Error())
	}

	resp = toResponse(out)

	// After hooks run in the same forward order as Before hooks, each
	// one able to replace the response.
	for _, mw := range chain {
		if next := mw.After(resp, ctx); next != nil {
			resp = next
		}
	}

	return resp
}

// chain combines the middleware tiers for one route.
func (d *Dispatcher) chain(route *Route) []Middleware {
	if len(d.global) == 0 {
		return route.Middlewares
	}
	chain := make([]Middleware, 0, len(d.global)+len(route.Middlewares))
	chain = append(chain, d.global...)
	return append(chain, route.Middlewares...)
}

// toResponse maps a handler result onto the wire contract: a *Response
// passes through untouched, nil becomes an empty 204, anything else is
// a 200 whose body is serialized at write time.
func toResponse(out any) *Response {
	switch v := out.(type) {
	case *Response:
		if v == nil {
			return NoContent()
		}
		return v
	case nil:
		return NoContent()
	default:
		return OK(out)
	}
}

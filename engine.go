// Package stratus is a small HTTP microframework built around explicit
// registration: routes are declared as static specs, handler arguments
// are resolved through per-route binding descriptors, and middleware
// runs as ordered before/after hook pairs with short-circuiting. Route
// lookup is a linear first-match scan in registration order.
package stratus

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/stratushq/stratus/codec"
)

// Engine owns a router, binder and dispatcher. There is no package
// level instance; construct one with New and register everything
// before serving.
type Engine struct {
	router     *Router
	binder     *Binder
	dispatcher *Dispatcher
	codec      codec.Codec
	logger     *slog.Logger
	metrics    MetricsRecorder

	pendingNotFound NotFoundHandler
	pendingMW       []Middleware
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithCodec selects the serialization collaborator, JSON by default.
func WithCodec(c codec.Codec) Option {
	return func(e *Engine) { e.codec = c }
}

// WithLogger sets the structured logger, slog.Default() by default.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithNotFoundHandler replaces the stock 404 response.
func WithNotFoundHandler(h NotFoundHandler) Option {
	return func(e *Engine) { e.pendingNotFound = h }
}

// WithMiddleware adds engine-level middleware that runs ahead of
// controller and route middleware on every matched request.
func WithMiddleware(mw ...Middleware) Option {
	return func(e *Engine) { e.pendingMW = append(e.pendingMW, mw...) }
}

// WithMetrics wires a metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(e *Engine) { e.metrics = m }
}

func New(opts ...Option) *Engine {
	e := &Engine{
		codec:  codec.JSON{},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.router = NewRouter()
	e.binder = NewBinder(e.codec)
	e.dispatcher = NewDispatcher(e.router, e.binder, e.logger)

	if e.pendingNotFound != nil {
		e.dispatcher.SetNotFoundHandler(e.pendingNotFound)
	}
	if len(e.pendingMW) > 0 {
		e.dispatcher.Use(e.pendingMW...)
	}
	if e.metrics != nil {
		e.dispatcher.SetMetrics(e.metrics)
	}

	e.pendingNotFound = nil
	e.pendingMW = nil

	return e
}

// RouteOption tweaks a route at registration time.
type RouteOption func(*Route)

// WithBindings declares how the handler's arguments are resolved.
func WithBindings(b ...Binding) RouteOption {
	return func(r *Route) { r.Bindings = append(r.Bindings, b...) }
}

// WithRouteMiddleware attaches middleware to this route only.
func WithRouteMiddleware(mw ...Middleware) RouteOption {
	return func(r *Route) { r.Middlewares = append(r.Middlewares, mw...) }
}

// WithRouteName names the route for logs, metrics and listings.
func WithRouteName(name string) RouteOption {
	return func(r *Route) { r.Name = name }
}

// Register adds a bare route. Registration must finish before the
// engine starts serving; the routing table is read-only afterwards.
func (e *Engine) Register(method, path string, handler HandlerFunc, opts ...RouteOption) error {
	if handler == nil {
		return fmt.Errorf("route %s %s: %w", method, path, ErrNilHandler)
	}

	pattern, err := CompilePattern(path)
	if err != nil {
		return fmt.Errorf("route %s %s: %w", method, path, err)
	}

	route := &Route{
		Method:  strings.ToUpper(method),
		Pattern: pattern,
		Handler: handler,
	}
	for _, opt := range opts {
		opt(route)
	}

	if prev := e.router.shadow(route); prev != nil {
		e.logger.Debug("route is shadowed by an earlier registration",
			"method", route.Method, "path", path, "shadowed_by", prev.displayName())
	}

	e.router.Add(route)
	return nil
}

// RegisterController registers every route a controller declares,
// joining paths onto its base path and layering controller middleware
// ahead of route middleware.
func (e *Engine) RegisterController(c Controller) error {
	var ctrlMW []Middleware
	if provider, ok := c.(MiddlewareProvider); ok {
		ctrlMW = provider.Middlewares()
	}

	for _, spec := range c.Routes() {
		if spec.Handler == nil {
			return fmt.Errorf("route %s %s: %w", spec.Method, spec.Path, ErrNilHandler)
		}

		mw := make([]Middleware, 0, len(ctrlMW)+len(spec.Middlewares))
		mw = append(mw, ctrlMW...)
		mw = append(mw, spec.Middlewares...)

		err := e.Register(spec.Method, joinPath(c.BasePath(), spec.Path), spec.Handler,
			WithBindings(spec.Bindings...),
			WithRouteMiddleware(mw...),
			WithRouteName(spec.Name))
		if err != nil {
			return err
		}
	}

	return nil
}

// Use appends engine-level middleware. Call before serving.
func (e *Engine) Use(mw ...Middleware) {
	e.dispatcher.Use(mw...)
}

// SetMetrics wires a metrics recorder. Call before serving.
func (e *Engine) SetMetrics(m MetricsRecorder) {
	e.metrics = m
	e.dispatcher.SetMetrics(m)
}

// SetNotFoundHandler replaces the stock 404 response. Call before serving.
func (e *Engine) SetNotFoundHandler(h NotFoundHandler) {
	e.dispatcher.SetNotFoundHandler(h)
}

// Routes lists registered routes in registration order.
func (e *Engine) Routes() []RouteInfo {
	return e.router.Routes()
}

// Handle dispatches a request without going through HTTP, which is how
// mounted sub-engines and tests drive the engine.
func (e *Engine) Handle(method, path string, ctx *Context) *Response {
	return e.dispatcher.Handle(method, path, ctx)
}

var mountMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodHead,
	http.MethodOptions,
}

// Mount forwards everything under prefix to a sub-engine. The wildcard
// remainder of the path, with its leading slash restored, is what the
// sub-engine matches against; Context.Path still reports the original
// full path.
func (e *Engine) Mount(prefix string, sub *Engine) error {
	pattern := strings.TrimSuffix(prefix, "/") + "/{*}"

	handler := func(args []any) (any, error) {
		ctx := args[0].(*Context)
		return sub.Handle(ctx.Method(), "/"+ctx.PathParam("*"), ctx), nil
	}

	for _, method := range mountMethods {
		err := e.Register(method, pattern, handler,
			WithBindings(FromContext()),
			WithRouteName("mount "+prefix))
		if err != nil {
			return err
		}
	}

	return nil
}

// ServeHTTP adapts the dispatcher to net/http. The response body is
// encoded here: []byte bodies pass through raw, string bodies pass
// through raw unless the response carries the codec's content type,
// and everything else goes through the engine's codec. Encoding
// failures degrade to a plain-text 500.
func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	ctx := NewContextFromRequest(r)
	resp := e.dispatcher.Handle(r.Method, r.URL.Path, ctx)
	e.write(w, resp)

	if e.metrics != nil {
		name := "unknown"
		if route := ctx.Route(); route != nil {
			name = route.displayName()
		}
		e.metrics.RecordRequest(name, r.Method, resp.Status, time.Since(start))
	}
}

func (e *Engine) write(w http.ResponseWriter, resp *Response) {
	var body []byte
	if resp.Status != http.StatusNoContent && resp.Status != http.StatusNotModified {
		var err error
		body, err = encodeBody(e.codec, resp)
		if err != nil {
			e.logger.Error("response encoding failed", "status", resp.Status, "error", err)
			http.Error(w, "server error: response encoding failed", http.StatusInternalServerError)
			return
		}
	}

	header := w.Header()
	for key, values := range resp.Header {
		for _, value := range values {
			header.Add(key, value)
		}
	}
	if len(body) > 0 && resp.ContentType != "" && header.Get("Content-Type") == "" {
		header.Set("Content-Type", resp.ContentType)
	}

	w.WriteHeader(resp.Status)
	if len(body) > 0 {
		_, _ = w.Write(body)
	}
}

func encodeBody(c codec.Codec, resp *Response) ([]byte, error) {
	switch b := resp.Body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case string:
		// A response declared as the codec's own content type promises
		// a serialized body, so string values are encoded like any
		// other value there; under any other content type they are the
		// body already.
		if resp.ContentType == c.ContentType() {
			return c.Marshal(resp.Body)
		}
		return []byte(b), nil
	default:
		return c.Marshal(resp.Body)
	}
}

// joinPath joins a controller base path and a route path without
// normalizing anything beyond the seam between them.
func joinPath(base, path string) string {
	if base == "" {
		return path
	}
	if path == "" {
		return base
	}

	aslash := strings.HasSuffix(base, "/")
	bslash := strings.HasPrefix(path, "/")
	switch {
	case aslash && bslash:
		return base + path[1:]
	case !aslash && !bslash:
		return base + "/" + path
	}
	return base + path
}

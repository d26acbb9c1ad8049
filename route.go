package stratus

import "strings"

// HandlerFunc receives the arguments produced by the route's bindings,
// in declaration order, and returns the handler result. A *Response
// result is used as-is, any other non-nil result is serialized with
// status 200, a nil result becomes an empty 204, and a non-nil error
// becomes a 500.
type HandlerFunc func(args []any) (any, error)

// Route is one registered entry in the routing table.
type Route struct {
	Method      string
	Pattern     *Pattern
	Name        string
	Handler     HandlerFunc
	Bindings    []Binding
	Middlewares []Middleware
}

func (r *Route) displayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Method + " " + r.Pattern.String()
}

// RouteInfo describes a registered route for listing and logging.
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Router holds routes in registration order. Lookup is a linear scan
// and the first route whose method and pattern both match wins, so
// earlier registrations shadow later ones. The table is append-only:
// registration happens during startup and the router is read-only
// while serving.
type Router struct {
	routes []*Route
}

func NewRouter() *Router {
	return &Router{}
}

// Add appends a route. The method is normalized to upper case.
func (r *Router) Add(route *Route) {
	route.Method = strings.ToUpper(route.Method)
	r.routes = append(r.routes, route)
}

// Match scans for the first route matching method and path and returns
// it along with the captured path values in declaration order.
func (r *Router) Match(method, path string) (*Route, []string, bool) {
	method = strings.ToUpper(method)

	for _, route := range r.routes {
		if route.Method != method {
			continue
		}
		values, ok := route.Pattern.match(path)
		if !ok {
			continue
		}
		return route, values, true
	}

	return nil, nil, false
}

// shadow returns the earliest route with the same method and template,
// if any. Duplicate registrations are kept, but only the first one is
// ever reachable.
func (r *Router) shadow(route *Route) *Route {
	for _, prev := range r.routes {
		if prev.Method == route.Method && prev.Pattern.String() == route.Pattern.String() {
			return prev
		}
	}
	return nil
}

// Routes lists the registered routes in registration order.
func (r *Router) Routes() []RouteInfo {
	infos := make([]RouteInfo, len(r.routes))
	for i, route := range r.routes {
		infos[i] = RouteInfo{
			Method: route.Method,
			Path:   route.Pattern.String(),
			Name:   route.Name,
		}
	}
	return infos
}

// Len returns the number of registered routes.
func (r *Router) Len() int {
	return len(r.routes)
}

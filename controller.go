package stratus

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Controller groups routes under a shared base path. Implementations
// declare their routes statically; nothing is discovered by reflection.
type Controller interface {
	BasePath() string
	Routes() []RouteSpec
}

// MiddlewareProvider is an optional Controller extension. The returned
// middleware runs ahead of each route's own middleware, in declaration
// order.
type MiddlewareProvider interface {
	Middlewares() []Middleware
}

// RouteSpec declares one route of a controller. Path is joined onto
// the controller's base path.
type RouteSpec struct {
	Method      string
	Path        string
	Name        string
	Handler     HandlerFunc
	Bindings    []Binding
	Middlewares []Middleware
}

// ControllerFactory pairs a registered factory with its name.
type ControllerFactory struct {
	Name string
	New  func() Controller
}

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]func() Controller)
)

// RegisterControllerFactory makes a controller constructor available
// for configuration-driven registration, typically from an init
// function. It panics if the factory is nil or the name is taken.
func RegisterControllerFactory(name string, factory func() Controller) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()

	if factory == nil {
		panic("stratus: RegisterControllerFactory with nil factory")
	}
	if _, dup := factories[name]; dup {
		panic(fmt.Sprintf("stratus: RegisterControllerFactory called twice for %q", name))
	}
	factories[name] = factory
}

// ControllerFactories returns the registered factories whose name
// starts with prefix, sorted by name so that registration order, and
// with it route precedence, is deterministic.
func ControllerFactories(prefix string) []ControllerFactory {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	var out []ControllerFactory
	for name, factory := range factories {
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}
		out = append(out, ControllerFactory{Name: name, New: factory})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

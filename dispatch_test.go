package stratus

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratushq/stratus/codec"
)

// traceMW records hook invocations so chain order and short-circuit
// behavior can be asserted.
type traceMW struct {
	name string
	log  *[]string
	stop *Response
}

func (m *traceMW) Before(ctx *Context) Result {
	*m.log = append(*m.log, m.name+".before")
	if m.stop != nil {
		return ShortCircuit(m.stop)
	}
	return Proceed()
}

func (m *traceMW) After(resp *Response, ctx *Context) *Response {
	*m.log = append(*m.log, m.name+".after")
	return nil
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *Router) {
	t.Helper()

	router := NewRouter()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDispatcher(router, NewBinder(codec.JSON{}), logger), router
}

func TestDispatcher_NotFound(t *testing.T) {
	t.Parallel()

	d, router := newTestDispatcher(t)

	handlerRan := false
	route := newTestRoute("GET", "/known")
	route.Handler = func(args []any) (any, error) {
		handlerRan = true
		return nil, nil
	}
	router.Add(route)

	resp := d.Handle("GET", "/unknown", NewContext("GET", "/unknown"))
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "404 - route not found: /unknown", resp.Body)
	assert.Equal(t, "text/plain; charset=utf-8", resp.ContentType)
	assert.False(t, handlerRan, "no handler may run for an unmatched path")
}

func TestDispatcher_CustomNotFound(t *testing.T) {
	t.Parallel()

	d, _ := newTestDispatcher(t)
	d.SetNotFoundHandler(func(method, path string, ctx *Context) *Response {
		return NewResponse(http.StatusNotFound, map[string]string{"missing": path})
	})

	resp := d.Handle("GET", "/gone", NewContext("GET", "/gone"))
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, map[string]string{"missing": "/gone"}, resp.Body)
}

func TestDispatcher_ResultMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		handler    HandlerFunc
		wantStatus int
		wantBody   any
	}{
		{
			name:       "plain value becomes 200",
			handler:    func(args []any) (any, error) { return map[string]string{"k": "v"}, nil },
			wantStatus: http.StatusOK,
			wantBody:   map[string]string{"k": "v"},
		},
		{
			name:       "nil becomes empty 204",
			handler:    func(args []any) (any, error) { return nil, nil },
			wantStatus: http.StatusNoContent,
			wantBody:   nil,
		},
		{
			name:       "typed nil response becomes empty 204",
			handler:    func(args []any) (any, error) { var r *Response; return r, nil },
			wantStatus: http.StatusNoContent,
			wantBody:   nil,
		},
		{
			name:       "response wrapper passes through",
			handler:    func(args []any) (any, error) { return Created("made"), nil },
			wantStatus: http.StatusCreated,
			wantBody:   "made",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			d, router := newTestDispatcher(t)
			route := newTestRoute("GET", "/r")
			route.Handler = tc.handler
			router.Add(route)

			resp := d.Handle("GET", "/r", NewContext("GET", "/r"))
			require.NotNil(t, resp)
			assert.Equal(t, tc.wantStatus, resp.Status)
			assert.Equal(t, tc.wantBody, resp.Body)
		})
	}
}

func TestDispatcher_HandlerError(t *testing.T) {
	t.Parallel()

	d, router := newTestDispatcher(t)
	route := newTestRoute("GET", "/boom")
	route.Handler = func(args []any) (any, error) {
		return nil, errors.New("database offline")
	}
	router.Add(route)

	resp := d.Handle("GET", "/boom", NewContext("GET", "/boom"))
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, "server error: database offline", resp.Body)
}

func TestDispatcher_HandlerPanic(t *testing.T) {
	t.Parallel()

	d, router := newTestDispatcher(t)
	route := newTestRoute("GET", "/panic")
	route.Handler = func(args []any) (any, error) {
		panic("unreachable state")
	}
	router.Add(route)

	resp := d.Handle("GET", "/panic", NewContext("GET", "/panic"))
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, "server error: unreachable state", resp.Body)
}

func TestDispatcher_BindingFailureIs500(t *testing.T) {
	t.Parallel()

	// A non-numeric value for an int parameter surfaces as a server
	// error, not a client error.
	d, router := newTestDispatcher(t)
	route := newTestRoute("GET", "/users/{id}")
	route.Bindings = []Binding{FromPath("id", KindInt)}
	route.Handler = func(args []any) (any, error) {
		t.Fatal("handler must not run when binding fails")
		return nil, nil
	}
	router.Add(route)

	resp := d.Handle("GET", "/users/abc", NewContext("GET", "/users/abc"))
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	body, ok := resp.Body.(string)
	require.True(t, ok)
	assert.Contains(t, body, "server error: ")
	assert.Contains(t, body, `"abc" is not an int`)
}

func TestDispatcher_ChainOrder(t *testing.T) {
	t.Parallel()

	var log []string
	d, router := newTestDispatcher(t)
	d.Use(&traceMW{name: "g1", log: &log}, &traceMW{name: "g2", log: &log})

	route := newTestRoute("GET", "/chained")
	route.Middlewares = []Middleware{&traceMW{name: "r1", log: &log}}
	route.Handler = func(args []any) (any, error) {
		log = append(log, "handler")
		return "done", nil
	}
	router.Add(route)

	resp := d.Handle("GET", "/chained", NewContext("GET", "/chained"))
	require.Equal(t, http.StatusOK, resp.Status)

	// After hooks run in the same forward order as Before hooks.
	want := []string{
		"g1.before", "g2.before", "r1.before",
		"handler",
		"g1.after", "g2.after", "r1.after",
	}
	assert.Equal(t, want, log)
}

func TestDispatcher_ShortCircuitSkipsEverything(t *testing.T) {
	t.Parallel()

	stop := Unauthorized("denied")

	var log []string
	d, router := newTestDispatcher(t)
	d.Use(
		&traceMW{name: "m1", log: &log},
		&traceMW{name: "m2", log: &log, stop: stop},
		&traceMW{name: "m3", log: &log},
	)

	route := newTestRoute("GET", "/guarded")
	route.Handler = func(args []any) (any, error) {
		log = append(log, "handler")
		return "ok", nil
	}
	router.Add(route)

	resp := d.Handle("GET", "/guarded", NewContext("GET", "/guarded"))
	assert.Same(t, stop, resp, "the short-circuit response is returned as-is")

	// m3's Before, the handler and every After hook are all skipped,
	// including m1's even though its Before already ran.
	assert.Equal(t, []string{"m1.before", "m2.before"}, log)
}

func TestDispatcher_ShortCircuitNilResponse(t *testing.T) {
	t.Parallel()

	d, router := newTestDispatcher(t)
	d.Use(BeforeFunc(func(ctx *Context) Result {
		return ShortCircuit(nil)
	}))
	router.Add(newTestRoute("GET", "/s"))

	resp := d.Handle("GET", "/s", NewContext("GET", "/s"))
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNoContent, resp.Status)
}

func TestDispatcher_AfterHookReplacesResponse(t *testing.T) {
	t.Parallel()

	d, router := newTestDispatcher(t)
	d.Use(
		AfterFunc(func(resp *Response, ctx *Context) *Response {
			return resp.WithHeader("X-First", "1")
		}),
		AfterFunc(func(resp *Response, ctx *Context) *Response {
			return NewResponse(resp.Status, fmt.Sprintf("wrapped:%v", resp.Body))
		}),
		AfterFunc(func(resp *Response, ctx *Context) *Response {
			return nil // keeps the response from the previous hook
		}),
	)

	route := newTestRoute("GET", "/after")
	route.Handler = func(args []any) (any, error) { return "inner", nil }
	router.Add(route)

	resp := d.Handle("GET", "/after", NewContext("GET", "/after"))
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "wrapped:inner", resp.Body)
}

func BenchmarkDispatcher_Handle(b *testing.B) {
	router := NewRouter()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := NewDispatcher(router, NewBinder(codec.JSON{}), logger)

	route := newTestRoute("GET", "/api/users/{id}")
	route.Bindings = []Binding{FromPath("id", KindString)}
	route.Handler = func(args []any) (any, error) {
		return map[string]string{"id": args[0].(string)}, nil
	}
	router.Add(route)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.Handle("GET", "/api/users/42", NewContext("GET", "/api/users/42"))
	}
}

func TestDispatcher_PathParamsReachContext(t *testing.T) {
	t.Parallel()

	d, router := newTestDispatcher(t)
	route := newTestRoute("GET", "/teams/{team}/members/{member}")
	route.Bindings = []Binding{FromContext()}
	route.Handler = func(args []any) (any, error) {
		ctx := args[0].(*Context)
		return ctx.PathParam("team") + "/" + ctx.PathParam("member"), nil
	}
	router.Add(route)

	ctx := NewContext("GET", "/teams/core/members/ada")
	resp := d.Handle("GET", "/teams/core/members/ada", ctx)
	assert.Equal(t, "core/ada", resp.Body)
	assert.Same(t, route, ctx.Route())
}

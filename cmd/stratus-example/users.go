package main

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/stratushq/stratus"
	"github.com/stratushq/stratus/middleware"
)

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name" validate:"required"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

// UserController serves an in-memory users API. Deleting requires the
// admin API key; everything else is open.
type UserController struct {
	mu       sync.RWMutex
	users    map[string]User
	adminKey string
}

func NewUserController(adminKey string) *UserController {
	return &UserController{
		users:    make(map[string]User),
		adminKey: adminKey,
	}
}

func (c *UserController) BasePath() string {
	return "/api/users"
}

func (c *UserController) Middlewares() []stratus.Middleware {
	return []stratus.Middleware{
		middleware.CORS(middleware.CORSConfig{}),
	}
}

func (c *UserController) Routes() []stratus.RouteSpec {
	return []stratus.RouteSpec{
		// Registered ahead of /{id} so the literal wins the scan.
		{
			Method:  "GET",
			Path:    "/me",
			Name:    "users.me",
			Handler: c.me,
		},
		{
			Method:   "GET",
			Path:     "/{id}",
			Name:     "users.get",
			Handler:  c.get,
			Bindings: []stratus.Binding{stratus.FromPath("id", stratus.KindString)},
		},
		{
			Method:  "GET",
			Path:    "",
			Name:    "users.list",
			Handler: c.list,
		},
		{
			Method:   "POST",
			Path:     "",
			Name:     "users.create",
			Handler:  c.create,
			Bindings: []stratus.Binding{stratus.FromBody(func() any { return new(User) })},
		},
		{
			Method:  "PUT",
			Path:    "/{id}",
			Name:    "users.update",
			Handler: c.update,
			Bindings: []stratus.Binding{
				stratus.FromPath("id", stratus.KindString),
				stratus.FromBody(func() any { return new(User) }),
			},
		},
		{
			Method:      "DELETE",
			Path:        "/{id}",
			Name:        "users.delete",
			Handler:     c.delete,
			Bindings:    []stratus.Binding{stratus.FromPath("id", stratus.KindString)},
			Middlewares: []stratus.Middleware{middleware.APIKeyAuth(c.adminKey)},
		},
		// Middleware only runs on matched routes, so CORS preflights
		// need OPTIONS routes to land on. The CORS hook answers them
		// before these handlers run.
		{
			Method:  "OPTIONS",
			Path:    "",
			Name:    "users.preflight",
			Handler: c.preflight,
		},
		{
			Method:  "OPTIONS",
			Path:    "/{path}",
			Name:    "users.preflight.item",
			Handler: c.preflight,
		},
	}
}

func (c *UserController) preflight(args []any) (any, error) {
	return nil, nil
}

func (c *UserController) me(args []any) (any, error) {
	return User{ID: "me", Name: "Current User"}, nil
}

func (c *UserController) get(args []any) (any, error) {
	id, _ := args[0].(string)

	c.mu.RLock()
	user, ok := c.users[id]
	c.mu.RUnlock()

	if ok {
		return user, nil
	}
	// Unknown IDs get a deterministic placeholder.
	return User{ID: id, Name: "User " + id}, nil
}

func (c *UserController) list(args []any) (any, error) {
	c.mu.RLock()
	out := make([]User, 0, len(c.users))
	for _, user := range c.users {
		out = append(out, user)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *UserController) create(args []any) (any, error) {
	user := args[0].(*User)
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	c.mu.Lock()
	c.users[user.ID] = *user
	c.mu.Unlock()

	return stratus.Created(user), nil
}

func (c *UserController) update(args []any) (any, error) {
	id, _ := args[0].(string)
	user := args[1].(*User)

	if user.ID != "" && user.ID != id {
		return stratus.BadRequest("user id mismatch: " + user.ID), nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.users[id]; !ok {
		return stratus.NotFound("user not found: " + id), nil
	}

	user.ID = id
	c.users[id] = *user
	return user, nil
}

func (c *UserController) delete(args []any) (any, error) {
	id, _ := args[0].(string)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.users[id]; !ok {
		return stratus.NotFound("user not found: " + id), nil
	}

	delete(c.users, id)
	return nil, nil
}

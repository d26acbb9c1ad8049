package stratus

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext_FromRequest(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("POST", "/things?limit=5", strings.NewReader(`{"a":1}`))
	req.Header.Set("X-Thing", "yes")

	ctx := NewContextFromRequest(req)

	assert.Equal(t, "POST", ctx.Method())
	assert.Equal(t, "/things", ctx.Path())
	assert.Equal(t, "yes", ctx.Header().Get("X-Thing"))
	assert.Equal(t, "5", ctx.Query().Get("limit"))
	assert.NotEmpty(t, ctx.RemoteAddr())
	assert.Same(t, req, ctx.Request())
}

func TestContext_BodyIsBufferedOnce(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("POST", "/things", strings.NewReader("payload"))
	ctx := NewContextFromRequest(req)

	body, err := ctx.Body()
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))

	// The underlying reader is drained, but the buffer serves repeat
	// reads, which is what lets several body bindings coexist.
	again, err := ctx.Body()
	require.NoError(t, err)
	assert.Equal(t, body, again)
}

func TestContext_BodyWithoutRequest(t *testing.T) {
	t.Parallel()

	ctx := NewContext("GET", "/bare")
	body, err := ctx.Body()
	require.NoError(t, err)
	assert.Nil(t, body)
}

func TestContext_Attributes(t *testing.T) {
	t.Parallel()

	ctx := NewContext("GET", "/x")

	_, ok := ctx.Get("missing")
	assert.False(t, ok)

	ctx.Set("key", 42)
	v, ok := ctx.Get("key")
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestContext_BeforeMatch(t *testing.T) {
	t.Parallel()

	ctx := NewContext("GET", "/x")
	assert.Nil(t, ctx.PathParams())
	assert.Empty(t, ctx.PathParam("id"))
	assert.Nil(t, ctx.Route())
}

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-cms/pkg/logger"
	"site-cms/pkg/services"
	"site-cms/pkg/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParseWhereKey(t *testing.T) {
	tests := []struct {
		key, field, op string
	}{
		{"where[slug]", "slug", ""},
		{"where[slug][equals]", "slug", "equals"},
		{"where[categories][in]", "categories", "in"},
		{"where[slug", "", ""},
		{"where[a][b][c]", "", ""},
		{"where[slug]x", "", ""},
		{"where", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			field, op := parseWhereKey(tt.key)
			assert.Equal(t, tt.field, field)
			assert.Equal(t, tt.op, op)
		})
	}
}

func TestAPIField(t *testing.T) {
	assert.Equal(t, "_id", apiField("id"))
	assert.Equal(t, "-_id", apiField("-id"))
	assert.Equal(t, "-publishedAt", apiField("-publishedAt"))
	assert.Equal(t, "", apiField(""))
}

func TestParseQuery(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/api/posts?limit=5&page=3&sort=-id&where[slug]=a&where[categories][in]=x,y", nil)

	q, err := parseQuery(c)
	require.NoError(t, err)
	assert.Equal(t, 5, q.Limit)
	assert.Equal(t, 3, q.Page)
	assert.Equal(t, "-_id", q.Sort)
	assert.Equal(t, "a", q.Where["slug"])
	assert.Equal(t, store.In{"x", "y"}, q.Where["categories"])

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	q, err = parseQuery(c)
	require.NoError(t, err)
	assert.Equal(t, defaultAPILimit, q.Limit)
	assert.Equal(t, 1, q.Page)
	assert.Nil(t, q.Where)

	for _, raw := range []string{
		"page=0",
		"limit=-1",
		"where[slug][exists]=true",
		"where[$where]=sleep(5000)||true",
		"where[meta.$ne]=x",
		"sort=-$natural",
		"page=9223372036854775807",
	} {
		c, _ = gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/api/posts?"+raw, nil)
		_, err := parseQuery(c)
		assert.ErrorIs(t, err, errInvalidBody, raw)
	}
}

func TestLocalRedirect(t *testing.T) {
	assert.Equal(t, "/posts", localRedirect("/posts"))
	assert.Equal(t, "/", localRedirect(""))
	assert.Equal(t, "/", localRedirect("https://example.com"))
	assert.Equal(t, "/", localRedirect("//example.com"))
	assert.Equal(t, "/", localRedirect(`/\example.com`))
}

func TestAPIFailure(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("pages x: %w", store.ErrNotFound), http.StatusNotFound},
		{store.ErrDuplicate, http.StatusBadRequest},
		{services.ErrUnauthorized, http.StatusForbidden},
		{services.ErrInvalidCredentials, http.StatusUnauthorized},
		{services.ErrInvalidMedia, http.StatusBadRequest},
		{fmt.Errorf("%w: bad", errInvalidBody), http.StatusBadRequest},
		{store.ErrInvalidField, http.StatusBadRequest},
		{store.ErrPageRange, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			apiFailure(c, tt.err)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), `"errors":[{"message":`)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	done := make(chan struct{})
	defer close(done)

	r := gin.New()
	r.POST("/form", RateLimiter(2, 50*time.Millisecond, done), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/form", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusNoContent, send("10.0.0.1:1000"))
	assert.Equal(t, http.StatusNoContent, send("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:1002"))
	assert.Equal(t, http.StatusNoContent, send("10.0.0.2:1000"))

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, http.StatusNoContent, send("10.0.0.1:1003"))
}

func TestRequestLogger(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(logger.NewNop()))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/fail", func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
		c.Status(http.StatusInternalServerError)
	})

	for path, status := range map[string]int{"/ok": http.StatusOK, "/fail": http.StatusInternalServerError} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, status, w.Code)
	}
}

func TestCurrentUser(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, CurrentUser(c))
	c.Set(userKey, "not a user")
	assert.Nil(t, CurrentUser(c))
}

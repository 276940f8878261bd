package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/chatrelay/internal/cache"
	"github.com/charlesng35/chatrelay/internal/database/testutil"
)

func serve(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	current := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &memoryRateStore{data: map[string]*memoryCounter{}, clock: func() time.Time { return current }}

	r := gin.New()
	r.Use(RateLimit(store, 2, time.Second))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, serve(r, "/ping").Code)
	}

	w := serve(r, "/ping")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	current = current.Add(2 * time.Second)
	require.Equal(t, http.StatusOK, serve(r, "/ping").Code)
}

func TestRateLimitWithCacheStore(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := NewCacheRateStore(cache.NewDatabaseStore(testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())))

	r := gin.New()
	r.Use(RateLimit(store, 1, time.Minute))
	r.GET("/ws", func(c *gin.Context) { c.Status(http.StatusOK) })

	require.Equal(t, http.StatusOK, serve(r, "/ws").Code)
	require.Equal(t, http.StatusTooManyRequests, serve(r, "/ws").Code)
}

type failingRateStore struct{}

func (failingRateStore) Increment(context.Context, string, time.Duration) (int, time.Duration, error) {
	return 0, 0, errors.New("store down")
}

func TestRateLimitFailsOpen(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimit(failingRateStore{}, 1, time.Minute))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	require.Equal(t, http.StatusOK, serve(r, "/ping").Code)
	require.Equal(t, http.StatusOK, serve(r, "/ping").Code)

	require.Nil(t, NewCacheRateStore(nil))
}

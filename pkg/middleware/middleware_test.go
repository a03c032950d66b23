package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcache "github.com/yeisme/drivemini/pkg/cache"
	"github.com/yeisme/drivemini/pkg/configs"
	"github.com/yeisme/drivemini/pkg/internal/storage/kv"
	"github.com/yeisme/drivemini/pkg/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func get(e *gin.Engine, target string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)

	return w
}

func TestCacheMiddleware(t *testing.T) {
	rc := appcache.NewCache(kv.NewMemoryKV(nil), appcache.WithPrefix("rc/"))
	calls := 0

	e := gin.New()
	e.GET("/files", middleware.CacheMiddleware(middleware.DefaultCacheConfig(rc)), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"dir": c.Query("dir")})
	})

	w := get(e, "/files?dir=a", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))

	var hit *httptest.ResponseRecorder

	require.Eventually(t, func() bool {
		hit = get(e, "/files?dir=a", nil)
		return hit.Header().Get("X-Cache") == "HIT"
	}, 2*time.Second, 10*time.Millisecond)

	assert.JSONEq(t, `{"dir":"a"}`, hit.Body.String())
	served := calls

	etag := hit.Header().Get("ETag")
	require.NotEmpty(t, etag)

	w = get(e, "/files?dir=a", map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, w.Code)

	w = get(e, "/files?dir=b", nil)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))

	w = get(e, "/files?dir=a", map[string]string{middleware.BypassHeader: "1"})
	assert.Empty(t, w.Header().Get("X-Cache"))
	assert.Equal(t, served+2, calls)
}

func TestCacheMiddleware_SkipsErrors(t *testing.T) {
	rc := appcache.NewCache(kv.NewMemoryKV(nil), appcache.WithPrefix("rc/"))
	calls := 0

	e := gin.New()
	e.GET("/files", middleware.CacheMiddleware(middleware.DefaultCacheConfig(rc)), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusBadGateway, gin.H{"error": "down"})
	})

	for range 3 {
		w := get(e, "/files", nil)
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	}

	assert.Equal(t, 3, calls)
}

func TestRateLimitMiddleware(t *testing.T) {
	e := gin.New()
	e.Use(middleware.RateLimitMiddleware(configs.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 2, Key: "header:X-Client"}))
	e.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	a := map[string]string{"X-Client": "a"}
	assert.Equal(t, http.StatusNoContent, get(e, "/ping", a).Code)
	assert.Equal(t, http.StatusNoContent, get(e, "/ping", a).Code)

	w := get(e, "/ping", a)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusNoContent, get(e, "/ping", map[string]string{"X-Client": "b"}).Code)
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	e := gin.New()
	e.Use(middleware.RateLimitMiddleware(configs.RateLimitConfig{Enabled: false, RPS: 0.001, Burst: 1}))
	e.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for range 5 {
		assert.Equal(t, http.StatusNoContent, get(e, "/ping", nil).Code)
	}
}

func TestCircuitBreakerMiddleware_Opens(t *testing.T) {
	e := gin.New()
	e.Use(middleware.CircuitBreakerMiddleware(configs.CircuitBreakerConfig{
		Enabled:           true,
		FailureRate:       0.5,
		MinRequests:       2,
		IntervalSeconds:   60,
		TimeoutSeconds:    60,
		MaxRequestsInHalf: 1,
	}))
	e.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	assert.Equal(t, http.StatusInternalServerError, get(e, "/boom", nil).Code)
	assert.Equal(t, http.StatusInternalServerError, get(e, "/boom", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(e, "/boom", nil).Code)
}

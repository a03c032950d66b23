package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"

	appcache "github.com/yeisme/drivemini/pkg/cache"
	"github.com/yeisme/drivemini/pkg/log"
	"github.com/yeisme/drivemini/pkg/metrics"
)

const (
	// DefaultMaxBodyBytes 超过该大小的响应不缓存.
	DefaultMaxBodyBytes = 1 << 20
	// DefaultResponseTTL 列表响应默认缓存时间.
	DefaultResponseTTL = 30 * time.Second
	// BypassHeader 请求带该头时直接访问后端.
	BypassHeader = "X-Cache-Bypass"

	headerCacheStatus = "X-Cache"
)

// cacheResults 响应缓存命中统计.
var cacheResults = metrics.NewCounter("response_cache_total", "Response cache lookups by result", []string{"result"})

// CacheConfig 响应缓存配置.
type CacheConfig struct {
	Cache        *appcache.Cache
	TTL          time.Duration
	MaxBodyBytes int
	// KeyFunc 为空时使用 方法+路由+排序后的 query 的哈希
	KeyFunc func(*gin.Context) string
}

// DefaultCacheConfig 返回默认配置.
func DefaultCacheConfig(c *appcache.Cache) CacheConfig {
	return CacheConfig{
		Cache:        c,
		TTL:          DefaultResponseTTL,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

// cachedResponse 存入 KV 的响应快照.
type cachedResponse struct {
	Status      int       `json:"status"`
	ContentType string    `json:"content_type,omitempty"`
	Body        []byte    `json:"body,omitempty"`
	ETag        string    `json:"etag"`
	StoredAt    time.Time `json:"stored_at"`
}

// CacheMiddleware 缓存 GET/HEAD 的 200 响应，用于文件列表这类读多写少的接口.
// 命中时回放响应并带上 ETag、Age 与 X-Cache，If-None-Match 匹配时返回 304.
// 写操作通过 cache.Cache.Clear 使同一前缀下的条目全部失效.
//
//	rc := cache.NewCache(kvClient, cache.WithPrefix("rc/"))
//	group.GET("/files", middleware.CacheMiddleware(middleware.DefaultCacheConfig(rc)), h.ListFiles)
func CacheMiddleware(cfg CacheConfig) gin.HandlerFunc {
	if cfg.Cache == nil {
		panic("CacheMiddleware: nil cache")
	}

	if cfg.TTL <= 0 {
		cfg.TTL = DefaultResponseTTL
	}

	if cfg.KeyFunc == nil {
		cfg.KeyFunc = responseKey
	}

	return func(c *gin.Context) {
		method := c.Request.Method
		if (method != http.MethodGet && method != http.MethodHead) || c.GetHeader(BypassHeader) != "" {
			c.Next()
			return
		}

		key := cfg.KeyFunc(c)

		if hit, err := appcache.Get[cachedResponse](c.Request.Context(), cfg.Cache, key); err == nil {
			cacheResults.WithLabelValues("hit").Inc()
			replay(c, hit)

			return
		}

		cacheResults.WithLabelValues("miss").Inc()

		rec := &recorder{ResponseWriter: c.Writer, limit: cfg.MaxBodyBytes}
		c.Writer = rec
		c.Header(headerCacheStatus, "MISS")
		c.Next()

		resp, ok := rec.snapshot()
		if !ok {
			return
		}

		// 请求结束后 ctx 会被取消
		go func(ctx context.Context) {
			if err := appcache.Set(ctx, cfg.Cache, key, resp, cfg.TTL); err != nil {
				log.Component("cache").Warn().Err(err).Str("key", key).Msg("store response failed")
			}
		}(context.WithoutCancel(c.Request.Context()))
	}
}

// replay 回放缓存的响应.
func replay(c *gin.Context, r cachedResponse) {
	h := c.Writer.Header()
	h.Set("ETag", r.ETag)
	h.Set("Age", strconv.Itoa(int(time.Since(r.StoredAt).Seconds())))
	h.Set(headerCacheStatus, "HIT")

	if match := c.GetHeader("If-None-Match"); match != "" && match == r.ETag {
		c.AbortWithStatus(http.StatusNotModified)
		return
	}

	if r.ContentType != "" {
		h.Set("Content-Type", r.ContentType)
	}

	c.Status(r.Status)

	if c.Request.Method != http.MethodHead {
		_, _ = c.Writer.Write(r.Body)
	}

	c.Abort()
}

// responseKey 对 方法、路由模板与规范化后的 query 做哈希.
func responseKey(c *gin.Context) string {
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}

	// url.Values.Encode 按键排序
	raw := c.Request.Method + " " + route + "?" + url.Values(c.Request.URL.Query()).Encode()

	return strconv.FormatUint(xxhash.Sum64String(raw), 16)
}

// recorder 在写出响应的同时保留一份副本.
type recorder struct {
	gin.ResponseWriter

	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (r *recorder) Write(b []byte) (int, error) {
	if !r.overflow {
		if r.limit > 0 && r.buf.Len()+len(b) > r.limit {
			r.overflow = true
			r.buf.Reset()
		} else {
			r.buf.Write(b)
		}
	}

	return r.ResponseWriter.Write(b)
}

// snapshot 返回可缓存的响应，不可缓存时 ok 为 false.
func (r *recorder) snapshot() (cachedResponse, bool) {
	if r.overflow || r.Status() != http.StatusOK {
		return cachedResponse{}, false
	}

	h := r.Header()
	if cc := strings.ToLower(h.Get("Cache-Control")); strings.Contains(cc, "no-store") || strings.Contains(cc, "private") {
		return cachedResponse{}, false
	}

	body := bytes.Clone(r.buf.Bytes())

	etag := h.Get("ETag")
	if etag == "" {
		etag = strconv.Quote(strconv.FormatUint(xxhash.Sum64(body), 16))
	}

	return cachedResponse{
		Status:      http.StatusOK,
		ContentType: h.Get("Content-Type"),
		Body:        body,
		ETag:        etag,
		StoredAt:    time.Now(),
	}, true
}

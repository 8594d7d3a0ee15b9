package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	responseMetaKey = "response_meta"
	cacheHitKey     = "cache_hit"
	elapsedKey      = "processing_time_ms"

	// CacheStatusHeader tells the web client whether the period list came from Redis.
	CacheStatusHeader = "X-Cache"
)

// WithResponseMeta collects envelope metadata for the request and stamps the elapsed time.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		meta := metaFor(c)
		c.Next()
		if _, ok := meta[elapsedKey]; !ok {
			meta[elapsedKey] = time.Since(start).Milliseconds()
		}
	}
}

// SetCacheHit records whether the response was served from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	metaFor(c)[cacheHitKey] = hit
	if hit {
		c.Header(CacheStatusHeader, "HIT")
	} else {
		c.Header(CacheStatusHeader, "MISS")
	}
}

// ExtractMeta returns the metadata collected so far, or nil when none was started.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	raw, ok := c.Get(responseMetaKey)
	if !ok {
		return nil
	}
	meta, _ := raw.(map[string]interface{})
	return meta
}

func metaFor(c *gin.Context) map[string]interface{} {
	if meta := ExtractMeta(c); meta != nil {
		return meta
	}
	meta := map[string]interface{}{}
	c.Set(responseMetaKey, meta)
	return meta
}

// Package idem provides a Redis-backed idempotency guard for mutating
// endpoints. Clients send an Idempotency-Key header; a duplicate request
// within the TTL window gets the stored first response back instead of
// running the handler again.
package idem

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	HeaderKey    = "Idempotency-Key"
	ReplayHeader = "X-Idempotency-Replay"
	defaultTTL   = 24 * time.Hour
	maxKeyLen    = 128
)

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// captureWriter tees the response body so a completed response can be
// stored for replay.
type captureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// keyStore is the slice of the Redis command set the guard needs.
// *redis.Client satisfies it.
type keyStore interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type Guard struct {
	rdb keyStore
	ttl time.Duration
}

// New returns a guard bound to the given Redis client. A nil client yields a
// guard whose middleware is a no-op, so callers can wire it unconditionally.
func New(rdb *redis.Client) *Guard {
	g := &Guard{ttl: defaultTTL}
	if rdb != nil {
		g.rdb = rdb
	}
	return g
}

// Middleware reserves the request's idempotency key with SET NX. The first
// request runs the handler and stores its response; a duplicate replays the
// stored response, or gets 409 while the first is still in flight. Requests
// without the header pass through untouched. If Redis is unreachable the
// request proceeds; the guard is a best-effort duplicate filter, not a
// correctness gate.
func (g *Guard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if g == nil || g.rdb == nil {
			c.Next()
			return
		}

		key := c.GetHeader(HeaderKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxKeyLen {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": gin.H{"code": "INVALID_ARGUMENT", "message": "idempotency key too long"},
			})
			return
		}

		ctx := c.Request.Context()
		redisKey := fmt.Sprintf("idem:%s:%s:%s", c.Request.Method, c.FullPath(), key)

		ok, err := g.rdb.SetNX(ctx, redisKey, "", g.ttl).Result()
		if err != nil {
			log.Printf("[WARN] idempotency check skipped: %v", err)
			c.Next()
			return
		}
		if !ok {
			val, err := g.rdb.Get(ctx, redisKey).Result()
			if err == nil && val != "" {
				var stored storedResponse
				if json.Unmarshal([]byte(val), &stored) == nil {
					c.Header(ReplayHeader, "true")
					c.Data(stored.Status, stored.ContentType, stored.Body)
					c.Abort()
					return
				}
			}
			// first request still in flight (or the stored value is gone)
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"error": gin.H{"code": "CONFLICT", "message": "duplicate request in flight"},
			})
			return
		}

		w := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()
		c.Writer = w.ResponseWriter

		status := w.Status()
		if status >= http.StatusInternalServerError {
			// release the key so the client can retry
			if err := g.rdb.Del(ctx, redisKey).Err(); err != nil {
				log.Printf("[WARN] idempotency key release failed: %v", err)
			}
			return
		}

		payload, err := json.Marshal(storedResponse{
			Status:      status,
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.buf.Bytes(),
		})
		if err == nil {
			err = g.rdb.Set(ctx, redisKey, payload, g.ttl).Err()
		}
		if err != nil {
			log.Printf("[WARN] idempotency response store failed: %v", err)
		}
	}
}

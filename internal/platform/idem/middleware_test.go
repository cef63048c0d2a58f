package idem

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeKeyStore is an in-memory keyStore backed by a plain map.
type fakeKeyStore struct {
	data map[string]string
}

func newFakeKeyStore() *fakeKeyStore {
	return &fakeKeyStore{data: map[string]string{}}
}

func asString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

func (f *fakeKeyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = asString(value)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeKeyStore) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeKeyStore) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.data[key] = asString(value)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeKeyStore) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func newGuardRouter(kv keyStore, handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	g := &Guard{rdb: kv, ttl: time.Minute}
	r := gin.New()
	r.Use(g.Middleware())
	r.POST("/x", handler)
	return r
}

func postWithKey(r *gin.Engine, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	if key != "" {
		req.Header.Set(HeaderKey, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMiddlewareDisabledWithoutRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(nil).Middleware())
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	// with and without a key, requests pass through untouched
	for _, key := range []string{"", "abc-123"} {
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		if key != "" {
			req.Header.Set(HeaderKey, key)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
	}
}

func TestMiddlewareReplaysFirstResponse(t *testing.T) {
	kv := newFakeKeyStore()
	calls := 0
	r := newGuardRouter(kv, func(c *gin.Context) {
		calls++
		c.JSON(http.StatusCreated, gin.H{"attempt": calls})
	})

	first := postWithKey(r, "key-1")
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(ReplayHeader))

	second := postWithKey(r, "key-1")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(ReplayHeader))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	// the handler ran exactly once
	assert.Equal(t, 1, calls)

	// a different key is a different request
	third := postWithKey(r, "key-2")
	assert.Equal(t, http.StatusCreated, third.Code)
	assert.Equal(t, 2, calls)
}

func TestMiddlewareConflictWhileInFlight(t *testing.T) {
	kv := newFakeKeyStore()
	// the first request reserved the key but has not finished yet
	kv.data["idem:POST:/x:key-1"] = ""

	calls := 0
	r := newGuardRouter(kv, func(c *gin.Context) {
		calls++
		c.Status(http.StatusNoContent)
	})

	w := postWithKey(r, "key-1")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 0, calls)

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "CONFLICT", body.Error.Code)
}

func TestMiddlewareReleasesKeyOnServerError(t *testing.T) {
	kv := newFakeKeyStore()
	calls := 0
	r := newGuardRouter(kv, func(c *gin.Context) {
		calls++
		if calls == 1 {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})

	w := postWithKey(r, "key-1")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	// a 5xx must not pin the key; the client retries with the same key
	assert.NotContains(t, kv.data, "idem:POST:/x:key-1")

	retry := postWithKey(r, "key-1")
	assert.Equal(t, http.StatusNoContent, retry.Code)
	assert.Equal(t, 2, calls)
}

func TestMiddlewareRejectsOversizedKey(t *testing.T) {
	kv := newFakeKeyStore()
	r := newGuardRouter(kv, func(c *gin.Context) { c.Status(http.StatusNoContent) })

	long := make([]byte, maxKeyLen+1)
	for i := range long {
		long[i] = 'a'
	}
	w := postWithKey(r, string(long))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, kv.data)
}

package middlewares

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	mu      sync.Mutex
	values  map[string]string
	failGet bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string]string{}}
}

func (m *memoryCache) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return "", errors.New("connection refused")
	}
	return m.values[key], nil
}

func (m *memoryCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = fmt.Sprintf("%s", value)
	return nil
}

func (m *memoryCache) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = fmt.Sprintf("%v", value)
	return true, nil
}

func (m *memoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *memoryCache) GenerateKey(operation, key string) string {
	return "test:" + operation + ":" + key
}

func chain(c *memoryCache, h http.HandlerFunc) http.Handler {
	var handler http.Handler = h
	handler = Idempotency(c, "create-order", time.Hour)(handler)
	handler = AttachRequestMetadata(handler)
	return middleware.RequestID(handler)
}

func post(h http.Handler, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	if key != "" {
		req.Header.Set("X-Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIdempotency_ReplaysSuccessfulResponse(t *testing.T) {
	c := newMemoryCache()
	var calls atomic.Int32
	h := chain(c, func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Location", fmt.Sprintf("/api/orders/%d", n))
		w.WriteHeader(http.StatusCreated)
		_, _ = fmt.Fprintf(w, `{"call":%d}`, n)
	})

	first := post(h, "abc")
	second := post(h, "abc")

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(HeaderIdempotentReplay))
	assert.Equal(t, "/api/orders/1", second.Header().Get("Location"))
	assert.Empty(t, first.Header().Get(HeaderIdempotentReplay))

	_, locked := c.values["test:create-order:abc:lock"]
	assert.False(t, locked, "lock is released after the first request")

	post(h, "other")
	assert.Equal(t, int32(2), calls.Load())
}

func TestIdempotency_FailuresAreNotStored(t *testing.T) {
	c := newMemoryCache()
	var calls atomic.Int32
	h := chain(c, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	post(h, "abc")
	rec := post(h, "abc")

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, c.values)
}

func TestIdempotency_InFlightRequestConflicts(t *testing.T) {
	c := newMemoryCache()
	require.NoError(t, c.Set(context.Background(), "test:create-order:abc:lock", "in-flight", time.Minute))
	h := chain(c, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run while the key is locked")
	})

	rec := post(h, "abc")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "request_in_progress")
}

func TestIdempotency_PassThrough(t *testing.T) {
	var calls atomic.Int32
	ok := func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusCreated)
	}

	c := newMemoryCache()
	h := chain(c, ok)
	post(h, "")
	post(h, "")
	assert.Equal(t, int32(2), calls.Load(), "no key, no deduplication")

	c.failGet = true
	post(h, "abc")
	assert.Equal(t, int32(3), calls.Load(), "cache outage fails open")

	nilCache := middleware.RequestID(AttachRequestMetadata(Idempotency(nil, "create-order", time.Hour)(http.HandlerFunc(ok))))
	post(nilCache, "abc")
	post(nilCache, "abc")
	assert.Equal(t, int32(5), calls.Load())
}

func TestAttachRequestMetadata(t *testing.T) {
	var requestID, idemKey string
	h := middleware.RequestID(AttachRequestMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID = middleware.GetReqID(r.Context())
		idemKey = IdempotencyKey(r.Context())
	})))

	rec := post(h, "k-1")
	assert.Equal(t, "k-1", idemKey)
	assert.NotEmpty(t, requestID)
	assert.Equal(t, requestID, rec.Header().Get("X-Request-Id"))
}

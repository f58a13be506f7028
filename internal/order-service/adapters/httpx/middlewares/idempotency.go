package middlewares

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/jcmexdev/ecommerce-orders/internal/pkg/cache"
)

const (
	HeaderIdempotentReplay = "Idempotent-Replayed"

	lockTTL = 30 * time.Second
)

type storedResponse struct {
	Status   int             `json:"status"`
	Location string          `json:"location,omitempty"`
	Body     json.RawMessage `json:"body"`
}

// Idempotency replays the stored response of an earlier request carrying the
// same idempotency key. Only 2xx responses are stored, for ttl. A second
// request arriving while the first is still running gets 409. A nil cache, or
// a request without a key, passes straight through; cache failures also pass
// through after a warning.
func Idempotency(c cache.Cache, operation string, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if c == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := IdempotencyKey(r.Context())
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			resultKey := c.GenerateKey(operation, key)
			lockKey := resultKey + ":lock"

			if raw, err := c.Get(ctx, resultKey); err != nil {
				slog.WarnContext(ctx, "idempotency lookup failed", "key", key, "error", err)
				next.ServeHTTP(w, r)
				return
			} else if raw != "" {
				replay(w, r, key, raw, next)
				return
			}

			acquired, err := c.SetNX(ctx, lockKey, "in-flight", lockTTL)
			if err != nil {
				slog.WarnContext(ctx, "idempotency lock failed", "key", key, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !acquired {
				writeConflict(w)
				return
			}
			defer func() {
				if err := c.Delete(ctx, lockKey); err != nil {
					slog.WarnContext(ctx, "idempotency unlock failed", "key", key, "error", err)
				}
			}()

			var body bytes.Buffer
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&body)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status < 200 || status >= 300 {
				return
			}
			stored, err := json.Marshal(storedResponse{
				Status:   status,
				Location: ww.Header().Get("Location"),
				Body:     bytes.TrimSpace(body.Bytes()),
			})
			if err != nil {
				return
			}
			if err := c.Set(ctx, resultKey, stored, ttl); err != nil {
				slog.WarnContext(ctx, "idempotency store failed", "key", key, "error", err)
			}
		})
	}
}

func replay(w http.ResponseWriter, r *http.Request, key, raw string, next http.Handler) {
	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		slog.WarnContext(r.Context(), "discarding unreadable idempotent response", "key", key, "error", err)
		next.ServeHTTP(w, r)
		return
	}
	slog.InfoContext(r.Context(), "replaying idempotent response", "key", key, "status", stored.Status)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(HeaderIdempotentReplay, "true")
	if stored.Location != "" {
		w.Header().Set("Location", stored.Location)
	}
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
}

func writeConflict(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusConflict)
	_, _ = w.Write([]byte(`{"error":"request_in_progress","message":"a request with this idempotency key is still being processed"}`))
}

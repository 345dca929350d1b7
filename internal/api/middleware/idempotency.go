package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	idempotencyHeader = "Idempotency-Key"
	inProgressTTL     = 10 * time.Second
	completedTTL      = 24 * time.Hour
	inProgressMarker  = "PROCESSING"
)

type storedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body,omitempty"`
}

type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *recorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// Idempotency replays the stored response for a repeated Idempotency-Key on
// state-changing requests. Keys are scoped by method and path. Server errors
// release the key so the client can retry. Redis failures fall through to
// the handler.
func Idempotency(redisClient *redis.Client, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(idempotencyHeader)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			idemKey := fmt.Sprintf("idempotency:%s:%s:%s", r.Method, r.URL.Path, key)
			ctx := r.Context()

			acquired, err := redisClient.SetNX(ctx, idemKey, inProgressMarker, inProgressTTL).Result()
			if err != nil {
				logger.Warn("idempotency_lock_failed", zap.String("key", idemKey), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			if !acquired {
				replay(w, redisClient, r, idemKey)
				return
			}

			rec := &recorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			if rec.status == 0 {
				rec.status = http.StatusOK
			}
			if rec.status >= http.StatusInternalServerError {
				redisClient.Del(ctx, idemKey)
				return
			}

			stored, err := json.Marshal(storedResponse{Status: rec.status, Body: jsonBody(rec.body.Bytes())})
			if err != nil {
				redisClient.Del(ctx, idemKey)
				return
			}

			if err := redisClient.Set(ctx, idemKey, stored, completedTTL).Err(); err != nil {
				logger.Warn("idempotency_store_failed", zap.String("key", idemKey), zap.Error(err))
			}
		})
	}
}

func replay(w http.ResponseWriter, redisClient *redis.Client, r *http.Request, idemKey string) {
	val, err := redisClient.Get(r.Context(), idemKey).Result()
	if errors.Is(err, redis.Nil) || val == inProgressMarker {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"request with this idempotency key is in progress"}`))
		return
	}
	if err != nil {
		http.Error(w, "idempotency store unavailable", http.StatusServiceUnavailable)
		return
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(val), &stored); err != nil {
		http.Error(w, "corrupt idempotency record", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Idempotency-Hit", "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
}

// jsonBody keeps only bodies that are valid JSON; the API never writes
// anything else on success.
func jsonBody(b []byte) json.RawMessage {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || !json.Valid(b) {
		return nil
	}
	return json.RawMessage(b)
}

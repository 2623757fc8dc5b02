package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	internalRedis "busticket/internal/redis"
	"busticket/pkg/logger"
)

const idempotencyHeader = "Idempotency-Key"

// cachedResponse stores the response for idempotent requests.
type cachedResponse struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body"`
	Headers    http.Header     `json:"headers"`
	// RequestHash fingerprints the request body the response belongs to.
	RequestHash string `json:"request_hash,omitempty"`
}

// responseWriter wraps gin.ResponseWriter to capture the response.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware replays the stored response of a mutating request
// that carries an Idempotency-Key already seen on the same method and path.
// Reusing a key with a different body gets 422, and a second request
// arriving while the first is still running gets 409. A nil store disables
// the middleware; store errors let the request through.
func IdempotencyMiddleware(store internalRedis.IdempotencyStoreInterface, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || !isMutating(c.Request.Method) {
			c.Next()
			return
		}

		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			c.Next()
			return
		}
		// Keys are scoped to the concrete resource, e.g. /v1/bookings/7/cancel.
		key = c.Request.Method + ":" + c.Request.URL.Path + ":" + key

		requestHash, err := hashRequestBody(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "unable to read request body",
				"code":  "validation_error",
			})
			return
		}

		ctx := c.Request.Context()
		data, err := store.Get(ctx, key)
		if err != nil {
			log.Warn("idempotency lookup failed", "key", key, "error", err)
			c.Next()
			return
		}
		if data != nil {
			var cached cachedResponse
			if err := json.Unmarshal(data, &cached); err == nil {
				if cached.RequestHash != "" && cached.RequestHash != requestHash {
					c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
						"error": "Idempotency-Key was already used with a different request body",
						"code":  "idempotency_key_reused",
					})
					return
				}
				for k, v := range cached.Headers {
					for _, val := range v {
						c.Header(k, val)
					}
				}
				c.Header("Idempotent-Replayed", "true")
				c.Data(cached.StatusCode, cached.Headers.Get("Content-Type"), cached.Body)
				c.Abort()
				return
			}
			log.Warn("discarding unreadable idempotent response", "key", key)
		}

		acquired, err := store.Begin(ctx, key)
		if err != nil {
			log.Warn("idempotency lock failed", "key", key, "error", err)
			c.Next()
			return
		}
		if !acquired {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"error": "a request with this Idempotency-Key is already in progress",
				"code":  "idempotency_in_progress",
			})
			return
		}
		defer func() {
			if err := store.End(ctx, key); err != nil {
				log.Warn("idempotency unlock failed", "key", key, "error", err)
			}
		}()

		w := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = w

		c.Next()

		// Server errors are not cached so the client can retry.
		if status := c.Writer.Status(); status >= 200 && status < 500 {
			data, err := json.Marshal(cachedResponse{
				StatusCode:  status,
				Body:        w.body.Bytes(),
				Headers:     extractResponseHeaders(c),
				RequestHash: requestHash,
			})
			if err == nil {
				err = store.Set(ctx, key, data)
			}
			if err != nil {
				log.Warn("failed to store idempotent response", "key", key, "error", err)
			}
		}
	}
}

// hashRequestBody returns the hex SHA-256 of the body and restores it for
// the handlers.
func hashRequestBody(c *gin.Context) (string, error) {
	var body []byte
	if c.Request.Body != nil {
		var err error
		if body, err = io.ReadAll(c.Request.Body); err != nil {
			return "", err
		}
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), nil
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// extractResponseHeaders extracts headers to cache.
func extractResponseHeaders(c *gin.Context) http.Header {
	headers := make(http.Header)
	for _, h := range []string{"Content-Type", "Content-Disposition"} {
		if v := c.Writer.Header().Get(h); v != "" {
			headers.Set(h, v)
		}
	}
	return headers
}

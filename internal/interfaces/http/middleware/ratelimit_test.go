package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/orris-inc/gamepanel/internal/shared/logger"
)

type stubLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (s *stubLimiter) Allow(_ context.Context, key string) (bool, error) {
	s.keys = append(s.keys, key)
	return s.allowed, s.err
}

func serveRateLimited(limiter *stubLimiter) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/ws/agent", RateLimitByIP(limiter, logger.NewNopLogger()), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws/agent", nil)
	req.RemoteAddr = "192.0.2.10:4567"
	engine.ServeHTTP(w, req)
	return w
}

func TestRateLimitByIP(t *testing.T) {
	t.Run("allowed", func(t *testing.T) {
		limiter := &stubLimiter{allowed: true}
		w := serveRateLimited(limiter)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, []string{"192.0.2.10"}, limiter.keys)
	})

	t.Run("denied", func(t *testing.T) {
		w := serveRateLimited(&stubLimiter{allowed: false})

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "too many connection attempts")
	})

	t.Run("limiter error lets request through", func(t *testing.T) {
		w := serveRateLimited(&stubLimiter{err: errors.New("redis down")})

		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

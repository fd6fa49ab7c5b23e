package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/testutil"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// publicRequest fakes a request arriving from outside the operator's
// network segment. 203.0.113.0/24 is TEST-NET-3, never private.
func publicRequest(ip string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.Header.Set("X-Forwarded-For", ip)
	return req
}

func TestRateLimiter_Limit(t *testing.T) {
	t.Run("allows requests under the limit with remaining headers", func(t *testing.T) {
		mr, cleanup := testutil.SetupMiniRedis(t)
		defer cleanup()
		store := testutil.NewTestStore(t, mr)
		limiter := NewRateLimiter(store, 3, time.Minute)
		handler := limiter.Limit("auth")(okHandler())

		for i := 1; i <= 3; i++ {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, publicRequest("203.0.113.9"))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		}
	})

	t.Run("returns 429 once the window budget is spent", func(t *testing.T) {
		mr, cleanup := testutil.SetupMiniRedis(t)
		defer cleanup()
		store := testutil.NewTestStore(t, mr)
		limiter := NewRateLimiter(store, 2, time.Minute)
		handler := limiter.Limit("auth")(okHandler())

		for i := 0; i < 2; i++ {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, publicRequest("203.0.113.9"))
			assert.Equal(t, http.StatusOK, rec.Code)
		}

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, publicRequest("203.0.113.9"))

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, "60", rec.Header().Get("Retry-After"))
		assert.Contains(t, rec.Body.String(), "Rate limit exceeded. Please try again later.")
	})

	t.Run("counts each client IP independently", func(t *testing.T) {
		mr, cleanup := testutil.SetupMiniRedis(t)
		defer cleanup()
		store := testutil.NewTestStore(t, mr)
		limiter := NewRateLimiter(store, 1, time.Minute)
		handler := limiter.Limit("auth")(okHandler())

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, publicRequest("203.0.113.9"))
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, publicRequest("203.0.113.9"))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)

		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, publicRequest("203.0.113.10"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("counts endpoints independently", func(t *testing.T) {
		mr, cleanup := testutil.SetupMiniRedis(t)
		defer cleanup()
		store := testutil.NewTestStore(t, mr)
		limiter := NewRateLimiter(store, 1, time.Minute)
		login := limiter.Limit("login")(okHandler())
		register := limiter.Limit("register")(okHandler())

		rec := httptest.NewRecorder()
		login.ServeHTTP(rec, publicRequest("203.0.113.9"))
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		login.ServeHTTP(rec, publicRequest("203.0.113.9"))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)

		rec = httptest.NewRecorder()
		register.ServeHTTP(rec, publicRequest("203.0.113.9"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("exempts private and loopback addresses", func(t *testing.T) {
		mr, cleanup := testutil.SetupMiniRedis(t)
		defer cleanup()
		store := testutil.NewTestStore(t, mr)
		limiter := NewRateLimiter(store, 1, time.Minute)
		handler := limiter.Limit("auth")(okHandler())

		for _, ip := range []string{"127.0.0.1", "10.0.0.5", "192.168.1.20"} {
			for i := 0; i < 5; i++ {
				rec := httptest.NewRecorder()
				handler.ServeHTTP(rec, publicRequest(ip))
				assert.Equal(t, http.StatusOK, rec.Code, "ip %s should be exempt", ip)
			}
		}
	})

	t.Run("window expiry resets the budget", func(t *testing.T) {
		mr, cleanup := testutil.SetupMiniRedis(t)
		defer cleanup()
		store := testutil.NewTestStore(t, mr)
		limiter := NewRateLimiter(store, 1, time.Second)
		handler := limiter.Limit("auth")(okHandler())

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, publicRequest("203.0.113.9"))
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, publicRequest("203.0.113.9"))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)

		mr.FastForward(2 * time.Second)

		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, publicRequest("203.0.113.9"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("fails open when the store is unreachable", func(t *testing.T) {
		mr, _ := testutil.SetupMiniRedis(t)
		store := testutil.NewTestStore(t, mr)
		limiter := NewRateLimiter(store, 1, time.Minute)
		handler := limiter.Limit("auth")(okHandler())
		mr.Close()

		for i := 0; i < 3; i++ {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, publicRequest("203.0.113.9"))
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	})
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"communityhub/pkg/config"
)

func newLimitedRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(NewHTTPRateLimitMiddleware(cfg))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func doGet(router http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = remoteAddr
	router.ServeHTTP(w, req)
	return w
}

// Test that when rate limiting is disabled, middleware lets all requests through.
func TestHTTPRateLimitMiddleware_Disabled_AllowsRequests(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RateLimiting.Enabled = false
	router := newLimitedRouter(cfg)

	for i := 0; i < 3; i++ {
		if w := doGet(router, "10.0.0.1:1234"); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected status 200, got %d", i, w.Code)
		}
	}
}

// Test basic per-IP rate limiting behaviour.
func TestHTTPRateLimitMiddleware_Enabled_RateLimited(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RateLimiting.Enabled = true
	cfg.RateLimiting.HTTP.RequestsPerSecond = 1
	cfg.RateLimiting.HTTP.Burst = 1
	cfg.RateLimiting.HTTP.MaxConcurrent = 0
	router := newLimitedRouter(cfg)

	if w := doGet(router, "10.0.0.1:1234"); w.Code != http.StatusOK {
		t.Fatalf("expected status 200 for first request, got %d", w.Code)
	}

	w := doGet(router, "10.0.0.1:1234")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429 for second request, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected Retry-After 1, got %q", w.Header().Get("Retry-After"))
	}

	// another client has its own budget
	if w := doGet(router, "10.0.0.2:1234"); w.Code != http.StatusOK {
		t.Fatalf("expected status 200 for a different client, got %d", w.Code)
	}
}

func TestRateLimiterStore_ForgetsIdleClients(t *testing.T) {
	store := newRateLimiterStore(1, 1)
	start := time.Now()

	store.getLimiter("a", start)
	store.getLimiter("b", start)
	if store.size() != 2 {
		t.Fatalf("expected 2 limiters, got %d", store.size())
	}

	store.getLimiter("c", start.Add(limiterIdleTTL+time.Minute))
	if store.size() != 1 {
		t.Fatalf("expected idle limiters to be swept, got %d", store.size())
	}
}

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(method, path, nil))
	return resp
}

func TestRateLimitWebhookHigherThanAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })

	r := gin.New()
	r.Use(RateLimit(RateLimitConfig{
		GroupFor: func(c *gin.Context) string {
			if c.FullPath() == "/telegram/webhook/:secret" {
				return "WEBHOOK"
			}
			return ""
		},
		Limiter: limiter,
		Rules: map[string]RateLimitRule{
			"DEFAULT": {Rate: 1, Burst: 2},
			"WEBHOOK": {Rate: 5, Burst: 10},
		},
	}))
	r.POST("/telegram/webhook/:secret", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/stats", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		if code := serve(r, http.MethodPost, "/telegram/webhook/abc").Code; code != http.StatusOK {
			t.Fatalf("webhook request %d expected 200, got %d", i+1, code)
		}
	}
	for i := 0; i < 2; i++ {
		if code := serve(r, http.MethodGet, "/api/v1/stats").Code; code != http.StatusOK {
			t.Fatalf("stats request %d expected 200, got %d", i+1, code)
		}
	}
	if code := serve(r, http.MethodGet, "/api/v1/stats").Code; code != http.StatusTooManyRequests {
		t.Fatalf("stats request 3 expected 429, got %d", code)
	}

	// One second refills one stats token.
	now = now.Add(time.Second)
	if code := serve(r, http.MethodGet, "/api/v1/stats").Code; code != http.StatusOK {
		t.Fatalf("expected refill after 1s, got %d", code)
	}
}

func TestRateLimit429IncludesRetryAfter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

	r := gin.New()
	r.Use(RateLimit(RateLimitConfig{
		Limiter: NewRateLimiter(func() time.Time { return now }),
		Rules:   map[string]RateLimitRule{"DEFAULT": {Rate: 0.5, Burst: 1}},
	}))
	r.GET("/api/v1/limited", func(c *gin.Context) { c.Status(http.StatusOK) })

	if code := serve(r, http.MethodGet, "/api/v1/limited").Code; code != http.StatusOK {
		t.Fatalf("expected first request 200, got %d", code)
	}
	resp := serve(r, http.MethodGet, "/api/v1/limited")
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.Code)
	}
	if got := resp.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("expected Retry-After 2, got %q", got)
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["error"] != "rate_limited" {
		t.Fatalf("expected error=rate_limited, got %v", payload["error"])
	}
	if ms, ok := payload["retryAfterMs"].(float64); !ok || ms != 2000 {
		t.Fatalf("expected retryAfterMs=2000, got %v", payload["retryAfterMs"])
	}
}

func TestRateLimiterForgetsIdleKeys(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter(func() time.Time { return now })
	rule := RateLimitRule{Rate: 1, Burst: 1}

	l.Allow("a", rule)
	l.Allow("b", rule)
	if l.size() != 2 {
		t.Fatalf("expected 2 keys, got %d", l.size())
	}

	now = now.Add(limiterIdleTTL + time.Minute)
	l.Allow("c", rule)
	if l.size() != 1 {
		t.Fatalf("expected idle keys to be dropped, got %d", l.size())
	}
}

func TestRateLimiterZeroRuleAllowsAll(t *testing.T) {
	l := NewRateLimiter(nil)
	for i := 0; i < 100; i++ {
		if ok, _ := l.Allow("k", RateLimitRule{}); !ok {
			t.Fatalf("zero rule must not limit")
		}
	}
}

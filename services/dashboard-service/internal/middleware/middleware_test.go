package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestServiceAuth(t *testing.T) {
	router := gin.New()
	router.Use(ServiceAuth("s3cret", zap.NewNop()))
	router.GET("/bug_count", func(c *gin.Context) {
		c.JSON(http.StatusOK, c.GetString("subject"))
	})

	valid, err := auth.NewServiceToken("s3cret", "dashctl", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"no bearer prefix", valid, http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer " + valid, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/bug_count", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

func TestLoggerRecordsRequest(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	router := gin.New()
	router.Use(Logger(zap.New(core)), RequestID())
	router.GET("/run_list", func(c *gin.Context) { c.JSON(http.StatusOK, []any{}) })

	req := httptest.NewRequest(http.MethodGet, "/run_list", nil)
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "req-1" {
		t.Errorf("X-Request-ID = %q", got)
	}
	entries := logs.FilterMessage("HTTP request").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["path"] != "/run_list" || fields["status"] != int64(http.StatusOK) || fields["request_id"] != "req-1" {
		t.Errorf("unexpected fields: %v", fields)
	}
}

type countingObserver struct {
	mu   sync.Mutex
	seen []string
}

func (o *countingObserver) Observe(method, route, status string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, method+" "+route+" "+status)
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	obs := &countingObserver{}
	router := gin.New()
	router.Use(Metrics(obs))
	router.GET("/view/:bug_id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/view/1", "/view/2", "/missing"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	want := []string{"GET /view/:bug_id 200", "GET /view/:bug_id 200", "GET unmatched 404"}
	if len(obs.seen) != len(want) {
		t.Fatalf("seen = %v", obs.seen)
	}
	for i := range want {
		if obs.seen[i] != want[i] {
			t.Errorf("seen[%d] = %q, want %q", i, obs.seen[i], want[i])
		}
	}
}

type budgetLimiter struct {
	mu     sync.Mutex
	budget int
	keys   []string
	err    error
}

func (l *budgetLimiter) Allow(_ context.Context, key string) (bool, int, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
	if l.err != nil {
		return false, 0, 0, l.err
	}
	if l.budget == 0 {
		return false, 0, time.Now().Unix() + 30, nil
	}
	l.budget--
	return true, l.budget, time.Now().Unix() + 30, nil
}

func TestRateLimit(t *testing.T) {
	limiter := &budgetLimiter{budget: 1}
	router := gin.New()
	router.Use(RateLimit(limiter, 1, zap.NewNop()))
	router.GET("/bug_list", func(c *gin.Context) { c.JSON(http.StatusOK, []any{}) })

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/bug_list", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d", first.Code)
	}
	if got := first.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", got)
	}

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/bug_list", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	if !strings.Contains(second.Body.String(), "detail") {
		t.Errorf("expected detail body, got %s", second.Body.String())
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	limiter := &budgetLimiter{err: errors.New("redis down")}
	router := gin.New()
	router.Use(func(c *gin.Context) { c.Set("subject", "dashctl") })
	router.Use(RateLimit(limiter, 10, zap.NewNop()))
	router.GET("/bug_list", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bug_list", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 when the limiter fails", w.Code)
	}
	if len(limiter.keys) != 1 || limiter.keys[0] != "dashctl" {
		t.Errorf("limiter keys = %v, want [dashctl]", limiter.keys)
	}
}

func TestWindowKey(t *testing.T) {
	if got := windowKey("10.0.0.1", 28000000); got != "dbtest:ratelimit:10.0.0.1:28000000" {
		t.Errorf("windowKey = %q", got)
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/todoman/internal/model"
)

func newTestRateLimiter(t *testing.T, config RateLimiterConfig) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(config)
	t.Cleanup(rl.Stop)
	return rl
}

func rateLimitedRequest(handler http.Handler, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/todos", nil)
	req = req.WithContext(ContextWithUser(req.Context(), &model.User{ID: userID}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestGeneralMiddleware_AllowsWithinBurst(t *testing.T) {
	rl := newTestRateLimiter(t, RateLimiterConfig{
		GeneralRate:     rate.Limit(1),
		GeneralBurst:    3,
		SuggestRate:     rate.Limit(1),
		SuggestBurst:    1,
		CleanupInterval: time.Minute,
	})

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		if rec := rateLimitedRequest(handler, "user-1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}

	rec := rateLimitedRequest(handler, "user-1")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("burst exceeded: status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429 response should carry Retry-After")
	}
}

func TestGeneralMiddleware_PerUserIsolation(t *testing.T) {
	rl := newTestRateLimiter(t, RateLimiterConfig{
		GeneralRate:     rate.Limit(0.1),
		GeneralBurst:    1,
		SuggestRate:     rate.Limit(1),
		SuggestBurst:    1,
		CleanupInterval: time.Minute,
	})

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	if rec := rateLimitedRequest(handler, "user-1"); rec.Code != http.StatusOK {
		t.Fatalf("user-1 first request: status = %d", rec.Code)
	}
	if rec := rateLimitedRequest(handler, "user-1"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("user-1 second request: status = %d, want 429", rec.Code)
	}
	// 別ユーザーは独立したリミッターを持つ
	if rec := rateLimitedRequest(handler, "user-2"); rec.Code != http.StatusOK {
		t.Errorf("user-2 should not be limited by user-1, status = %d", rec.Code)
	}

	if got := rl.GeneralLimiterCount(); got != 2 {
		t.Errorf("limiter count = %d, want 2", got)
	}
}

func TestSuggestMiddleware_IndependentOfGeneral(t *testing.T) {
	rl := newTestRateLimiter(t, RateLimiterConfig{
		GeneralRate:     rate.Limit(0.1),
		GeneralBurst:    1,
		SuggestRate:     rate.Limit(0.1),
		SuggestBurst:    2,
		CleanupInterval: time.Minute,
	})

	general := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	suggest := rl.SuggestMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// API全般のバーストを使い切ってもAI提案側は消費されない
	rateLimitedRequest(general, "user-1")
	rateLimitedRequest(general, "user-1")

	if rec := rateLimitedRequest(suggest, "user-1"); rec.Code != http.StatusOK {
		t.Errorf("suggest limiter should be independent, status = %d", rec.Code)
	}
}

func TestRateLimitMiddleware_MissingUser(t *testing.T) {
	rl := newTestRateLimiter(t, NewRateLimiterConfig(120, 10))

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/todos", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestNewRateLimiterConfig(t *testing.T) {
	config := NewRateLimiterConfig(120, 10)

	if config.GeneralBurst != 120 {
		t.Errorf("GeneralBurst = %d, want 120", config.GeneralBurst)
	}
	if config.SuggestBurst != 10 {
		t.Errorf("SuggestBurst = %d, want 10", config.SuggestBurst)
	}
	if config.GeneralRate != rate.Limit(2) {
		t.Errorf("GeneralRate = %v, want 2 req/sec", config.GeneralRate)
	}
}

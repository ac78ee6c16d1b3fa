package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/todoman/internal/metrics"
	"github.com/hitoshi/todoman/internal/middleware"
	"github.com/hitoshi/todoman/internal/model"
	"github.com/hitoshi/todoman/internal/task"
)

// routerSessionStore はルーターテスト用のインメモリセッションストア。
type routerSessionStore struct {
	sessions map[string]*model.Session
}

func (s *routerSessionStore) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return s.sessions[id], nil
}

func (s *routerSessionStore) Renew(ctx context.Context, id string, expiresAt, renewedAt time.Time) error {
	return nil
}

type routerUserFinder struct {
	users map[string]*model.User
}

func (f *routerUserFinder) FindByID(ctx context.Context, id string) (*model.User, error) {
	return f.users[id], nil
}

type staticHealthChecker struct{ err error }

func (c staticHealthChecker) PingContext(ctx context.Context) error { return c.err }

func newTestRouter(t *testing.T, taskService TaskServiceInterface) http.Handler {
	t.Helper()

	reg := prometheus.NewRegistry()
	rl := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(120, 10))
	t.Cleanup(rl.Stop)

	deps := &RouterDeps{
		SessionStore: &routerSessionStore{sessions: map[string]*model.Session{
			"session-1": {ID: "session-1", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour), RenewedAt: time.Now()},
		}},
		UserFinder: &routerUserFinder{users: map[string]*model.User{
			"user-1": {ID: "user-1", Email: "taro@example.com", Name: "Taro"},
		}},
		SessionConfig:     middleware.SessionConfig{MaxAge: 2592000, RenewWindow: 24 * time.Hour},
		CSRFConfig:        middleware.CSRFConfig{},
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       rl,
		Logger:            slog.New(slog.NewJSONHandler(io.Discard, nil)),

		AuthService: &mockAuthService{},
		AuthConfig:  testAuthConfig(),

		TaskService:    taskService,
		SuggestService: &mockSuggestService{},

		Metrics:         metrics.NewCollector(reg),
		MetricsGatherer: reg,

		HealthChecker: staticHealthChecker{},
	}

	return NewRouter(deps)
}

func TestRouter_UnauthenticatedListReturns401(t *testing.T) {
	router := newTestRouter(t, &mockTaskService{})

	req := httptest.NewRequest(http.MethodGet, "/todos", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRouter_AuthenticatedListSucceeds(t *testing.T) {
	svc := &mockTaskService{
		listFn: func(ctx context.Context, user *model.User) (*task.ListResult, error) {
			if user.Email != "taro@example.com" {
				t.Errorf("user email = %q", user.Email)
			}
			return &task.ListResult{Tasks: []model.TaskWithOwner{}}, nil
		},
	}
	router := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/todos", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-1"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}
}

func TestRouter_MutationRequiresCSRFToken(t *testing.T) {
	router := newTestRouter(t, &mockTaskService{})

	body := bytes.NewBufferString(`{"name": "task"}`)
	req := httptest.NewRequest(http.MethodPost, "/todos", body)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-1"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("mutation without CSRF token: status = %d, want 403", w.Code)
	}
}

func TestRouter_MutationWithCSRFTokenSucceeds(t *testing.T) {
	svc := &mockTaskService{
		createFn: func(ctx context.Context, user *model.User, name string, priority *int) (*model.Task, error) {
			return &model.Task{ID: "task-1", Name: name, OwnerID: user.ID}, nil
		},
	}
	router := newTestRouter(t, svc)

	body := bytes.NewBufferString(`{"name": "牛乳を買う"}`)
	req := httptest.NewRequest(http.MethodPost, "/todos", body)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-1"})
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "token-1"})
	req.Header.Set("X-CSRF-Token", "token-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body: %s", w.Code, w.Body.String())
	}
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router := newTestRouter(t, &mockTaskService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestRouter_CSRFTokenEndpointIsPublic(t *testing.T) {
	router := newTestRouter(t, &mockTaskService{})

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["token"] == "" {
		t.Error("token should not be empty")
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, &mockTaskService{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestRouter_CORSPreflightReturns204(t *testing.T) {
	router := newTestRouter(t, &mockTaskService{})

	req := httptest.NewRequest(http.MethodOptions, "/todos", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Allow-Credentials = %q", got)
	}
}

func TestRouter_SecurityHeadersPresent(t *testing.T) {
	router := newTestRouter(t, &mockTaskService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
}

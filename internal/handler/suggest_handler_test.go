package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/todoman/internal/model"
	"github.com/hitoshi/todoman/internal/suggest"
)

// mockSuggestService はSuggestServiceInterfaceのモック実装。
type mockSuggestService struct {
	suggestFn func(ctx context.Context, todos []string) ([]string, error)
}

func (m *mockSuggestService) Suggest(ctx context.Context, todos []string) ([]string, error) {
	if m.suggestFn != nil {
		return m.suggestFn(ctx, todos)
	}
	return nil, nil
}

// recordingSuggestMetrics はAI提案メトリクスの呼び出しを記録する。
type recordingSuggestMetrics struct {
	mu               sync.Mutex
	latencyCalls     int
	fallbackCalls    int
	upstreamFailures int
}

func (m *recordingSuggestMetrics) RecordSuggestLatency(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencyCalls++
}

func (m *recordingSuggestMetrics) RecordSuggestFallback() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbackCalls++
}

func (m *recordingSuggestMetrics) RecordSuggestUpstreamFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upstreamFailures++
}

func TestSuggestHandler_Success(t *testing.T) {
	svc := &mockSuggestService{
		suggestFn: func(ctx context.Context, todos []string) ([]string, error) {
			if len(todos) != 2 || todos[0] != "Buy milk" {
				t.Errorf("todos = %v", todos)
			}
			return []string{"Read a book", "Go for a run", "Call a friend"}, nil
		},
	}
	m := &recordingSuggestMetrics{}
	h := NewSuggestHandler(svc, m)

	body := bytes.NewBufferString(`{"todos": ["Buy milk", "Walk the dog"]}`)
	req := withUser(httptest.NewRequest(http.MethodPost, "/ai/suggest", body), testUser)
	w := httptest.NewRecorder()
	h.SuggestTodos(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp map[string][]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(resp["suggestions"]) != 3 {
		t.Errorf("suggestions = %v, want 3 items", resp["suggestions"])
	}
	if m.latencyCalls != 1 {
		t.Errorf("latency recorded %d times, want 1", m.latencyCalls)
	}
}

func TestSuggestHandler_EmptyArrayAllowed(t *testing.T) {
	svc := &mockSuggestService{
		suggestFn: func(ctx context.Context, todos []string) ([]string, error) {
			if todos == nil || len(todos) != 0 {
				t.Errorf("todos = %v, want empty array", todos)
			}
			return []string{"Start a journal"}, nil
		},
	}
	h := NewSuggestHandler(svc, &recordingSuggestMetrics{})

	body := bytes.NewBufferString(`{"todos": []}`)
	req := withUser(httptest.NewRequest(http.MethodPost, "/ai/suggest", body), testUser)
	w := httptest.NewRecorder()
	h.SuggestTodos(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestSuggestHandler_MissingTodosField(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"フィールド欠落", `{}`},
		{"null", `{"todos": null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSuggestHandler(&mockSuggestService{}, &recordingSuggestMetrics{})

			req := withUser(httptest.NewRequest(http.MethodPost, "/ai/suggest", bytes.NewBufferString(tt.body)), testUser)
			w := httptest.NewRecorder()
			h.SuggestTodos(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			resp := parseAPIErrorResponse(t, w)
			if resp["code"] != model.ErrCodeValidation {
				t.Errorf("code = %q, want VALIDATION_ERROR", resp["code"])
			}
		})
	}
}

func TestSuggestHandler_NonArrayTodos(t *testing.T) {
	h := NewSuggestHandler(&mockSuggestService{}, &recordingSuggestMetrics{})

	body := bytes.NewBufferString(`{"todos": "not an array"}`)
	req := withUser(httptest.NewRequest(http.MethodPost, "/ai/suggest", body), testUser)
	w := httptest.NewRecorder()
	h.SuggestTodos(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSuggestHandler_UpstreamFailure(t *testing.T) {
	svc := &mockSuggestService{
		suggestFn: func(ctx context.Context, todos []string) ([]string, error) {
			return nil, model.NewUpstreamError()
		},
	}
	m := &recordingSuggestMetrics{}
	h := NewSuggestHandler(svc, m)

	body := bytes.NewBufferString(`{"todos": ["Buy milk"]}`)
	req := withUser(httptest.NewRequest(http.MethodPost, "/ai/suggest", body), testUser)
	w := httptest.NewRecorder()
	h.SuggestTodos(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	resp := parseAPIErrorResponse(t, w)
	if resp["code"] != model.ErrCodeUpstreamFailure {
		t.Errorf("code = %q, want UPSTREAM_ERROR", resp["code"])
	}
	if m.upstreamFailures != 1 {
		t.Errorf("upstream failures recorded %d times, want 1", m.upstreamFailures)
	}
}

func TestSuggestHandler_FallbackRecorded(t *testing.T) {
	svc := &mockSuggestService{
		suggestFn: func(ctx context.Context, todos []string) ([]string, error) {
			return []string{suggest.FallbackSuggestion}, nil
		},
	}
	m := &recordingSuggestMetrics{}
	h := NewSuggestHandler(svc, m)

	body := bytes.NewBufferString(`{"todos": ["Buy milk"]}`)
	req := withUser(httptest.NewRequest(http.MethodPost, "/ai/suggest", body), testUser)
	w := httptest.NewRecorder()
	h.SuggestTodos(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if m.fallbackCalls != 1 {
		t.Errorf("fallback recorded %d times, want 1", m.fallbackCalls)
	}
}

func TestSuggestHandler_Unauthenticated(t *testing.T) {
	h := NewSuggestHandler(&mockSuggestService{}, &recordingSuggestMetrics{})

	body := bytes.NewBufferString(`{"todos": []}`)
	req := httptest.NewRequest(http.MethodPost, "/ai/suggest", body)
	w := httptest.NewRecorder()
	h.SuggestTodos(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

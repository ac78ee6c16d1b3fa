package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hitoshi/todoman/internal/middleware"
	"github.com/hitoshi/todoman/internal/model"
	"github.com/hitoshi/todoman/internal/suggest"
)

// SuggestServiceInterface はAI提案ハンドラーが必要とするサービスインターフェース。
type SuggestServiceInterface interface {
	// Suggest は既存タスク名のリストをもとに新規タスク案を返す。
	Suggest(ctx context.Context, todos []string) ([]string, error)
}

// SuggestMetrics はAI提案のメトリクス記録に必要なインターフェース。
type SuggestMetrics interface {
	RecordSuggestLatency(duration time.Duration)
	RecordSuggestFallback()
	RecordSuggestUpstreamFailure()
}

// SuggestHandler はAI提案のHTTPハンドラー。
type SuggestHandler struct {
	service SuggestServiceInterface
	metrics SuggestMetrics
}

// NewSuggestHandler はSuggestHandlerを生成する。
func NewSuggestHandler(service SuggestServiceInterface, metrics SuggestMetrics) *SuggestHandler {
	return &SuggestHandler{
		service: service,
		metrics: metrics,
	}
}

// suggestRequest はAI提案リクエストのボディ。
type suggestRequest struct {
	Todos []string `json:"todos"`
}

// suggestResponse はAI提案のAPIレスポンス。
type suggestResponse struct {
	Suggestions []string `json:"suggestions"`
}

// SuggestTodos は既存タスクをもとにAIへ新規タスクの提案を依頼する。
// POST /ai/suggest
func (h *SuggestHandler) SuggestTodos(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserFromContext(r.Context()); err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req suggestRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		return
	}

	// todosフィールドの欠落・nullは配列として解釈できないため拒否する
	if req.Todos == nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("todos", "文字列の配列を指定してください"))
		return
	}

	start := time.Now()
	suggestions, err := h.service.Suggest(r.Context(), req.Todos)
	h.metrics.RecordSuggestLatency(time.Since(start))

	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeUpstreamFailure {
			h.metrics.RecordSuggestUpstreamFailure()
		}
		handleServiceError(w, err)
		return
	}

	if len(suggestions) == 1 && suggestions[0] == suggest.FallbackSuggestion {
		h.metrics.RecordSuggestFallback()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(suggestResponse{Suggestions: suggestions})
}

// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/todoman/internal/middleware"
	"github.com/hitoshi/todoman/internal/model"
	"github.com/hitoshi/todoman/internal/task"
)

// TaskServiceInterface はタスクハンドラーが必要とするサービスインターフェース。
type TaskServiceInterface interface {
	// List はタスク一覧をcreated_at昇順で返す。管理者は全件＋所有者情報。
	List(ctx context.Context, user *model.User) (*task.ListResult, error)
	// Create は新しいタスクを作成する。
	Create(ctx context.Context, user *model.User, name string, priority *int) (*model.Task, error)
	// Update はタスクへ部分更新を適用する。
	Update(ctx context.Context, user *model.User, taskID string, patch model.TaskPatch) (*model.Task, error)
	// Delete はタスクを物理削除する。
	Delete(ctx context.Context, user *model.User, taskID string) error
}

// TaskMetrics はタスク操作のメトリクス記録に必要なインターフェース。
type TaskMetrics interface {
	RecordTaskOperation(operation string)
}

// TaskHandler はタスクCRUDのHTTPハンドラー。
type TaskHandler struct {
	service TaskServiceInterface
	metrics TaskMetrics
}

// NewTaskHandler はTaskHandlerを生成する。
func NewTaskHandler(service TaskServiceInterface, metrics TaskMetrics) *TaskHandler {
	return &TaskHandler{
		service: service,
		metrics: metrics,
	}
}

// taskResponse はタスクのAPIレスポンス。
type taskResponse struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Completed bool           `json:"completed"`
	Priority  int            `json:"priority"`
	OwnerID   string         `json:"owner_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Owner     *ownerResponse `json:"owner,omitempty"` // 管理者の一覧でのみ付与
}

// ownerResponse はタスク所有者のAPIレスポンス。
type ownerResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// createTaskRequest はタスク作成リクエストのボディ。
type createTaskRequest struct {
	Name     string `json:"name"`
	Priority *int   `json:"priority"`
}

// updateTaskRequest はタスク更新リクエストのボディ。
// 指定されなかったフィールドは変更されない。
type updateTaskRequest struct {
	Name      *string `json:"name"`
	Completed *bool   `json:"completed"`
	Priority  *int    `json:"priority"`
}

// ListTasks はタスク一覧を取得する。
// GET /todos
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	result, err := h.service.List(r.Context(), user)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]taskResponse, 0, len(result.Tasks))
	for _, t := range result.Tasks {
		resp := toTaskResponse(&t.Task)
		if result.IncludeOwner {
			resp.Owner = &ownerResponse{
				ID:    t.Owner.ID,
				Name:  t.Owner.Name,
				Email: t.Owner.Email,
			}
		}
		responses = append(responses, resp)
	}

	h.metrics.RecordTaskOperation("list")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

// CreateTask は新しいタスクを作成する。
// POST /todos
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req createTaskRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		return
	}

	created, err := h.service.Create(r.Context(), user, req.Name, req.Priority)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordTaskOperation("create")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toTaskResponse(created))
}

// UpdateTask はタスクへ部分更新を適用する。
// PUT /todos/{id}
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	taskID := chi.URLParam(r, "id")

	var req updateTaskRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		return
	}

	patch := model.TaskPatch{
		Name:      req.Name,
		Completed: req.Completed,
		Priority:  req.Priority,
	}

	updated, err := h.service.Update(r.Context(), user, taskID, patch)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordTaskOperation("update")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toTaskResponse(updated))
}

// DeleteTask はタスクを削除する。
// DELETE /todos/{id}
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	taskID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), user, taskID); err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordTaskOperation("delete")

	w.WriteHeader(http.StatusNoContent)
}

// toTaskResponse はモデルをAPIレスポンスに変換する。
func toTaskResponse(t *model.Task) taskResponse {
	return taskResponse{
		ID:        t.ID,
		Name:      t.Name,
		Completed: t.Completed,
		Priority:  t.Priority,
		OwnerID:   t.OwnerID,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// decodeJSONBody はリクエストボディをJSONとしてデコードする。
// 型不一致はフィールド単位のバリデーションエラー、それ以外の解析失敗は
// INVALID_REQUESTとしてレスポンスを書き込み、エラーを返す。
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			writeAPIErrorResponse(w, http.StatusBadRequest,
				model.NewValidationError(typeErr.Field, "型が不正です（"+typeErr.Value+"は受け付けません）"))
			return err
		}
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return err
	}
	return nil
}

// apiErrorResponse はAPIエラーレスポンスの統一フォーマット。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeValidation, model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeTaskNotFound:
		return http.StatusNotFound
	case model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeUpstreamFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

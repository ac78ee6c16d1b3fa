// Package task はタスクのCRUD業務ロジックを提供する。
//
// 全ての操作は認証済みユーザーを起点とし、所有者スコープで実行される。
// 管理者メールアドレスに一致するユーザーのみ、一覧取得で全ユーザーの
// タスクを所有者情報付きで閲覧できる。更新・削除は管理者であっても
// owner_id条件を通過するため、他ユーザーのタスクには影響しない。
package task

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/todoman/internal/model"
	"github.com/hitoshi/todoman/internal/repository"
	"github.com/hitoshi/todoman/internal/security"
)

// Service はタスクのCRUD操作を提供する。
type Service struct {
	taskRepo   repository.TaskRepository
	sanitizer  security.TextSanitizerService
	adminEmail string
}

// NewService はタスクサービスを生成する。
// adminEmailが空文字列の場合、管理者一覧機能は無効となる。
func NewService(taskRepo repository.TaskRepository, sanitizer security.TextSanitizerService, adminEmail string) *Service {
	return &Service{
		taskRepo:   taskRepo,
		sanitizer:  sanitizer,
		adminEmail: adminEmail,
	}
}

// ListResult は一覧取得の結果。
// IncludeOwnerがtrueの場合のみ各タスクのOwnerフィールドが有効。
type ListResult struct {
	Tasks        []model.TaskWithOwner
	IncludeOwner bool
}

// List はタスク一覧をcreated_at昇順で返す。
// 呼び出しユーザーが管理者の場合は全ユーザーのタスクを所有者情報付きで、
// それ以外は自身のタスクのみを返す。
func (s *Service) List(ctx context.Context, user *model.User) (*ListResult, error) {
	if user == nil {
		return nil, model.NewUnauthorizedError()
	}

	if s.isAdmin(user) {
		tasks, err := s.taskRepo.ListAllWithOwner(ctx)
		if err != nil {
			return nil, fmt.Errorf("タスク全件一覧の取得に失敗しました: %w", err)
		}
		return &ListResult{Tasks: tasks, IncludeOwner: true}, nil
	}

	owned, err := s.taskRepo.ListByOwner(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("タスク一覧の取得に失敗しました: %w", err)
	}

	tasks := make([]model.TaskWithOwner, 0, len(owned))
	for _, t := range owned {
		tasks = append(tasks, model.TaskWithOwner{Task: *t})
	}
	return &ListResult{Tasks: tasks, IncludeOwner: false}, nil
}

// Create は新しいタスクを作成する。
// nameはHTMLタグ除去後に非空でなければならない。
// priorityが指定されない場合は0、completedは常にfalseで作成される。
func (s *Service) Create(ctx context.Context, user *model.User, name string, priority *int) (*model.Task, error) {
	if user == nil {
		return nil, model.NewUnauthorizedError()
	}

	cleanName := s.sanitizer.SanitizeText(name)
	if cleanName == "" {
		return nil, model.NewValidationError("name", "タスク名は必須です")
	}

	now := time.Now()

	task := &model.Task{
		ID:        uuid.New().String(),
		Name:      cleanName,
		Completed: false,
		OwnerID:   user.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if priority != nil {
		task.Priority = *priority
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("タスクの作成に失敗しました: %w", err)
	}

	return task, nil
}

// Update はタスクへ部分更新を適用し、更新後のタスクを返す。
// patchのnilフィールドは変更されない。
// id AND owner_idの複合条件に一致する行がない場合、対象が存在しないのか
// 他ユーザーの所有物なのかを区別せずTASK_NOT_FOUNDを返す。
func (s *Service) Update(ctx context.Context, user *model.User, taskID string, patch model.TaskPatch) (*model.Task, error) {
	if user == nil {
		return nil, model.NewUnauthorizedError()
	}
	if taskID == "" {
		return nil, model.NewValidationError("id", "タスクIDは必須です")
	}

	if patch.Name != nil {
		cleanName := s.sanitizer.SanitizeText(*patch.Name)
		if cleanName == "" {
			return nil, model.NewValidationError("name", "タスク名は必須です")
		}
		patch.Name = &cleanName
	}

	updated, err := s.taskRepo.UpdateWhereOwner(ctx, taskID, user.ID, patch)
	if err != nil {
		return nil, fmt.Errorf("タスクの更新に失敗しました: %w", err)
	}
	if updated == nil {
		return nil, model.NewTaskNotFoundError(taskID)
	}

	return updated, nil
}

// Delete はタスクを物理削除する。
// Updateと同じid AND owner_idの複合条件を使用し、一致する行がない場合は
// TASK_NOT_FOUNDを返す。
func (s *Service) Delete(ctx context.Context, user *model.User, taskID string) error {
	if user == nil {
		return model.NewUnauthorizedError()
	}
	if taskID == "" {
		return model.NewValidationError("id", "タスクIDは必須です")
	}

	deleted, err := s.taskRepo.DeleteWhereOwner(ctx, taskID, user.ID)
	if err != nil {
		return fmt.Errorf("タスクの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewTaskNotFoundError(taskID)
	}

	return nil
}

// isAdmin は呼び出しユーザーが管理者かどうかを判定する。
func (s *Service) isAdmin(user *model.User) bool {
	return s.adminEmail != "" && user.Email == s.adminEmail
}

// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/todoman/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// Renew はセッションの期限とスライディング更新時刻を延長する。
	Renew(ctx context.Context, id string, expiresAt, renewedAt time.Time) error
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// TaskRepository はタスクデータの永続化インターフェース。
//
// UpdateWhereOwnerとDeleteWhereOwnerはidとowner_idの複合条件で
// 1回の条件付き書き込みを行い、影響行数ゼロをシグナルとして返す。
// 事前の存在確認を行わないことで、所有権検証と変更の間の
// check-then-act競合を排除する。
type TaskRepository interface {
	// Create はタスクを作成する。
	Create(ctx context.Context, task *model.Task) error

	// ListByOwner は指定ユーザーのタスク一覧をcreated_at昇順で返す。
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Task, error)

	// ListAllWithOwner は全タスクを所有者情報付きでcreated_at昇順で返す。
	// 管理者による全件一覧でのみ使用する。
	ListAllWithOwner(ctx context.Context) ([]model.TaskWithOwner, error)

	// UpdateWhereOwner はid AND owner_idに一致するタスクへ部分更新を適用し、
	// 更新後のタスクを返す。一致する行がない場合は(nil, nil)を返す。
	// patchのnilフィールドは変更されない。
	UpdateWhereOwner(ctx context.Context, id, ownerID string, patch model.TaskPatch) (*model.Task, error)

	// DeleteWhereOwner はid AND owner_idに一致するタスクを削除する。
	// 削除された場合はtrue、一致する行がない場合はfalseを返す。
	DeleteWhereOwner(ctx context.Context, id, ownerID string) (bool, error)
}

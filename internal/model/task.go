// Package model はドメインモデルを定義する。
package model

import "time"

// Task はToDoタスクを表す。唯一のビジネスエンティティ。
// OwnerID以外の書き込みフィールドはname, completed, priorityのみ。
type Task struct {
	ID        string
	Name      string
	Completed bool
	Priority  int
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OwnerSummary はタスクに付与する読み取り専用の所有者情報。
// 管理者による全件一覧でのみ使用する。
type OwnerSummary struct {
	ID    string
	Name  string
	Email string
}

// TaskWithOwner はタスクと所有者情報を結合したモデル。
// tasksテーブルとusersテーブルをJOINして取得される。
type TaskWithOwner struct {
	Task
	Owner OwnerSummary
}

// TaskPatch はタスクの部分更新を表す。
// nilフィールドは変更せず、既存の値を維持する。
type TaskPatch struct {
	Name      *string
	Completed *bool
	Priority  *int
}

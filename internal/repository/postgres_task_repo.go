package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/todoman/internal/model"
)

// PostgresTaskRepo はPostgreSQLを使用したタスクリポジトリ。
type PostgresTaskRepo struct {
	db *sql.DB
}

// NewPostgresTaskRepo はPostgresTaskRepoを生成する。
func NewPostgresTaskRepo(db *sql.DB) *PostgresTaskRepo {
	return &PostgresTaskRepo{db: db}
}

// Create はタスクを作成する。
func (r *PostgresTaskRepo) Create(ctx context.Context, task *model.Task) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, name, completed, priority, owner_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		task.ID, task.Name, task.Completed, task.Priority, task.OwnerID,
		task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("タスクの作成に失敗しました: %w", err)
	}
	return nil
}

// ListByOwner は指定ユーザーのタスク一覧をcreated_at昇順で返す。
func (r *PostgresTaskRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, completed, priority, owner_id, created_at, updated_at
		 FROM tasks
		 WHERE owner_id = $1
		 ORDER BY created_at ASC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("タスク一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		task := &model.Task{}
		if err := rows.Scan(
			&task.ID, &task.Name, &task.Completed, &task.Priority,
			&task.OwnerID, &task.CreatedAt, &task.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("タスク行の読み取りに失敗しました: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("タスク一覧の走査に失敗しました: %w", err)
	}

	return tasks, nil
}

// ListAllWithOwner は全タスクを所有者情報付きでcreated_at昇順で返す。
func (r *PostgresTaskRepo) ListAllWithOwner(ctx context.Context) ([]model.TaskWithOwner, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.name, t.completed, t.priority, t.owner_id,
		        t.created_at, t.updated_at,
		        u.id, u.name, u.email
		 FROM tasks t
		 JOIN users u ON t.owner_id = u.id
		 ORDER BY t.created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("全タスク一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var tasks []model.TaskWithOwner
	for rows.Next() {
		var two model.TaskWithOwner
		if err := rows.Scan(
			&two.ID, &two.Name, &two.Completed, &two.Priority, &two.OwnerID,
			&two.CreatedAt, &two.UpdatedAt,
			&two.Owner.ID, &two.Owner.Name, &two.Owner.Email,
		); err != nil {
			return nil, fmt.Errorf("タスク行の読み取りに失敗しました: %w", err)
		}
		tasks = append(tasks, two)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("全タスク一覧の走査に失敗しました: %w", err)
	}

	return tasks, nil
}

// UpdateWhereOwner はid AND owner_idに一致するタスクへ部分更新を適用する。
// COALESCEにより未指定フィールドは既存値を維持し、更新と所有権検証を
// 単一のアトミックな条件付きUPDATEで行う。一致ゼロ件は(nil, nil)。
func (r *PostgresTaskRepo) UpdateWhereOwner(ctx context.Context, id, ownerID string, patch model.TaskPatch) (*model.Task, error) {
	var name sql.NullString
	if patch.Name != nil {
		name = sql.NullString{String: *patch.Name, Valid: true}
	}
	var completed sql.NullBool
	if patch.Completed != nil {
		completed = sql.NullBool{Bool: *patch.Completed, Valid: true}
	}
	var priority sql.NullInt32
	if patch.Priority != nil {
		priority = sql.NullInt32{Int32: int32(*patch.Priority), Valid: true}
	}

	task := &model.Task{}
	err := r.db.QueryRowContext(ctx,
		`UPDATE tasks SET
		    name = COALESCE($3, name),
		    completed = COALESCE($4, completed),
		    priority = COALESCE($5, priority),
		    updated_at = now()
		 WHERE id = $1 AND owner_id = $2
		 RETURNING id, name, completed, priority, owner_id, created_at, updated_at`,
		id, ownerID, name, completed, priority,
	).Scan(
		&task.ID, &task.Name, &task.Completed, &task.Priority,
		&task.OwnerID, &task.CreatedAt, &task.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("タスクの更新に失敗しました: %w", err)
	}

	return task, nil
}

// DeleteWhereOwner はid AND owner_idに一致するタスクを削除する。
func (r *PostgresTaskRepo) DeleteWhereOwner(ctx context.Context, id, ownerID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return false, fmt.Errorf("タスクの削除に失敗しました: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}

	return rowsAffected > 0, nil
}

// compile-time interface check
var _ TaskRepository = (*PostgresTaskRepo)(nil)

package repository

import (
	"testing"
)

// TestPostgresTaskRepo_ImplementsInterface はPostgresTaskRepoがTaskRepositoryを実装することを検証する。
func TestPostgresTaskRepo_ImplementsInterface(t *testing.T) {
	// コンパイル時チェック：PostgresTaskRepoがTaskRepositoryを満たすことを検証
	var _ TaskRepository = (*PostgresTaskRepo)(nil)
}

func TestPostgresSessionRepo_ImplementsInterface(t *testing.T) {
	var _ SessionRepository = (*PostgresSessionRepo)(nil)
}

func TestPostgresUserRepo_ImplementsInterface(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
}

func TestPostgresIdentityRepo_ImplementsInterface(t *testing.T) {
	var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
}

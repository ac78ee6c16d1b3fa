// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// 初回のOAuthサインイン時に作成され、以後このシステムからは変更されない。
type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity は外部IdPとの紐付け情報を表す。
// 将来的に複数のIdP（Google, GitHub等）に対応可能な構造。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Session はユーザーのログインセッションを表す。
// ExpiresAtは絶対期限、RenewedAtはスライディング更新の最終更新時刻。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	RenewedAt time.Time
	CreatedAt time.Time
}

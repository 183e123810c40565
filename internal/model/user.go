package model

import "time"

// User はサービス利用ユーザーを表す。
// メールアドレスがアイデンティティのキーとなる。
type User struct {
	ID                string
	Email             string
	PasswordHash      string
	Verified          bool
	VerificationToken string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AuthSession はサーバー側で発行されたログインセッションを表す。
// IDがそのままBearerトークンとしてクライアントに渡される。
type AuthSession struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

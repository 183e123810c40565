package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresAdminRepo はPostgreSQLを使用した管理者リポジトリ。
// adminsテーブルの単一行ルックアップのみを提供する。
type PostgresAdminRepo struct {
	db *sql.DB
}

// NewPostgresAdminRepo はPostgresAdminRepoを生成する。
func NewPostgresAdminRepo(db *sql.DB) *PostgresAdminRepo {
	return &PostgresAdminRepo{db: db}
}

// Exists は指定メールアドレスの管理者行が存在するかを返す。
// 行の不在は正常な結果であり、エラーにはならない。
func (r *PostgresAdminRepo) Exists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM admins WHERE email = $1)`,
		email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check admin existence: %w", err)
	}
	return exists, nil
}

// compile-time interface check
var _ AdminRepository = (*PostgresAdminRepo)(nil)

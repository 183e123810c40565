// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/rezerveme/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// MarkVerified は検証トークンに一致するユーザーを認証済みにする。
	// 該当ユーザーが存在しない場合はfalseを返す。
	MarkVerified(ctx context.Context, token string) (bool, error)
}

// SessionRepository はログインセッションの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.AuthSession) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.AuthSession, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// AdminRepository は管理者権限ルックアップの永続化インターフェース。
type AdminRepository interface {
	// Exists は指定メールアドレスの管理者行が存在するかを返す。
	// 行の不在は正常な結果であり、エラーにはならない。
	Exists(ctx context.Context, email string) (bool, error)
}

// SpaceRepository はスペースデータの永続化インターフェース。
type SpaceRepository interface {
	// List は全スペースをID昇順で返す。
	List(ctx context.Context) ([]model.Space, error)

	// FindByID は指定IDのスペースを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Space, error)

	// Create はスペースを作成し、採番されたIDを設定して返す。
	Create(ctx context.Context, space *model.Space) error
}

// ReservationRepository は予約データの永続化インターフェース。
type ReservationRepository interface {
	// ListByUserEmail は指定ユーザーの予約一覧を予約日昇順で返す。
	ListByUserEmail(ctx context.Context, email string) ([]model.Reservation, error)

	// CountBySpaceAndDate は指定スペース・指定日の予約数を返す。
	// バックエンド側の定員チェックに使用する。
	CountBySpaceAndDate(ctx context.Context, spaceID int64, date model.Date) (int, error)

	// Create は予約を作成し、採番されたIDを設定して返す。
	Create(ctx context.Context, reservation *model.Reservation) error
}

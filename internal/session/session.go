// Package session は現在のアイデンティティの追跡を提供する。
// アイデンティティプロバイダを唯一の情報源とし、変更を購読者に通知する。
package session

import (
	"context"
	"time"
)

// State はセッション状態を表す。
type State int

const (
	// StateUnknown は初期状態（解決前）。
	StateUnknown State = iota
	// StateAnonymous は未ログイン状態。
	StateAnonymous
	// StateAuthenticated はログイン済み状態。
	StateAuthenticated
)

// String はStateの文字列表現を返す。
func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Session はアイデンティティプロバイダが発行したセッションを表す。
type Session struct {
	Token     string    // Bearerトークン
	UserID    string    // ユーザーID
	Email     string    // 検証済みメールアドレス
	ExpiresAt time.Time // 有効期限
}

// Identity は認証済みの主体を表す。
// キーは検証済みメールアドレス。セッションが有効な間のみ存在する。
type Identity struct {
	Key     string // 検証済みメールアドレス
	Session *Session
}

// IdentityProvider はセッションの発行・検証・変更通知のインターフェース。
type IdentityProvider interface {
	// CurrentSession は現在の有効なセッションを返す。未ログインの場合はnilを返す。
	CurrentSession(ctx context.Context) (*Session, error)

	// Subscribe はセッション変更イベントの購読を登録する。
	// サインイン時は新しいセッション、サインアウト時はnilが通知される。
	// 返される関数を呼ぶと購読が解除される。
	Subscribe(fn func(*Session)) (unsubscribe func())

	// SignIn はメールアドレスとパスワードでログインする。
	SignIn(ctx context.Context, email, password string) error

	// SignUp はユーザーを仮登録する。検証メールの送信はプロバイダ側で行われる。
	SignUp(ctx context.Context, email, password string) error

	// SignOut は現在のセッションを破棄する。
	SignOut(ctx context.Context) error
}

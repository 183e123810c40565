package session

import (
	"context"
	"log/slog"
	"sync"
)

// Tracker は「現在のアイデンティティは誰か」の唯一の情報源。
// アイデンティティプロバイダを購読し、読み取り専用の現在値と
// 変更通知を提供する。他のコンポーネントがセッション状態を
// 直接変更することはない。
type Tracker struct {
	provider IdentityProvider

	mu          sync.Mutex
	state       State
	identity    *Identity
	subscribers map[int]func(State, *Identity)
	nextSubID   int
	unsubscribe func()
	closed      bool
}

// NewTracker はTrackerの新しいインスタンスを生成する。
func NewTracker(provider IdentityProvider) *Tracker {
	return &Tracker{
		provider:    provider,
		state:       StateUnknown,
		subscribers: make(map[int]func(State, *Identity)),
	}
}

// Initialize は起動時に一度だけセッションを解決し、プロバイダの購読を開始する。
// プロバイダのエラーはAnonymousとして扱う（fail to logged-out）。
// Unknownのまま放置されることはない。
func (t *Tracker) Initialize(ctx context.Context) State {
	sess, err := t.provider.CurrentSession(ctx)
	if err != nil {
		slog.Warn("failed to resolve current session, treating as anonymous",
			slog.String("error", err.Error()),
		)
		sess = nil
	}

	t.mu.Lock()
	t.applyLocked(sess)
	state := t.state
	t.mu.Unlock()

	// 以後のセッション変更イベントを購読する
	unsub := t.provider.Subscribe(t.onProviderEvent)

	t.mu.Lock()
	if t.closed {
		// Closeと競合した場合はその場で解除する
		t.mu.Unlock()
		unsub()
		return state
	}
	t.unsubscribe = unsub
	t.mu.Unlock()

	return state
}

// Current は現在のセッション状態とアイデンティティを返す。
func (t *Tracker) Current() (State, *Identity) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state, t.identity
}

// Subscribe は状態変更の購読を登録する。
// 返される関数を呼ぶと購読が解除され、以後は通知されない。
func (t *Tracker) Subscribe(fn func(State, *Identity)) (unsubscribe func()) {
	t.mu.Lock()
	id := t.nextSubID
	t.nextSubID++
	t.subscribers[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.subscribers, id)
		t.mu.Unlock()
	}
}

// Close はプロバイダの購読を解除する。すべての終了経路で呼ぶこと。
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	unsub := t.unsubscribe
	t.unsubscribe = nil
	t.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// onProviderEvent はプロバイダからのセッション変更イベントを処理する。
// イベントはセッション値を完全に置き換える（部分マージはしない）。
func (t *Tracker) onProviderEvent(sess *Session) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.applyLocked(sess)
	state := t.state
	identity := t.identity
	subs := make([]func(State, *Identity), 0, len(t.subscribers))
	for _, fn := range t.subscribers {
		subs = append(subs, fn)
	}
	t.mu.Unlock()

	for _, fn := range subs {
		fn(state, identity)
	}
}

// applyLocked はセッション値から状態とアイデンティティを更新する。
// 呼び出し元はmuを保持していること。
func (t *Tracker) applyLocked(sess *Session) {
	if sess == nil {
		t.state = StateAnonymous
		t.identity = nil
		return
	}
	t.state = StateAuthenticated
	t.identity = &Identity{Key: sess.Email, Session: sess}
}

package authz

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/hitoshi/rezerveme/internal/model"
)

// Resolver は現在のアイデンティティから管理者権限フラグを導出する。
//
// 解決は世代カウンタでスタンプされる: Resetで世代が進むと、
// それ以前に開始された解決の結果は到着時に破棄される
// （古い結果の抑制）。権限は解決が完了するまでfalseであり、
// ルックアップの失敗時もfalseに解決される（fail closed）。
type Resolver struct {
	store AdminStore

	mu       sync.Mutex
	gen      uint64
	admin    bool
	resolved bool
}

// NewResolver はResolverの新しいインスタンスを生成する。
func NewResolver(store AdminStore) *Resolver {
	return &Resolver{store: store}
}

// Reset は権限を未解決のfalseに戻し、進行中の解決を無効化する。
// アイデンティティが変わるたびに呼ぶこと。
func (r *Resolver) Reset() {
	r.mu.Lock()
	r.gen++
	r.admin = false
	r.resolved = false
	r.mu.Unlock()
}

// Gen は現在の世代カウンタを返す。Resolveに渡す世代は
// 解決を予約した時点で読むこと。
func (r *Resolver) Gen() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen
}

// Resolve は予約時点の世代genで指定キーの管理者権限を解決する。
// キーが空の場合はリモート呼び出しなしでfalseに解決する。
//
// ルックアップの「未登録」は正常な非管理者を意味する。
// それ以外の失敗はログに記録し、非管理者として解決する（fail closed）。
// リトライは行わない。
//
// 予約から実行開始までの間、または呼び出し中にResetが実行された場合、
// ルックアップは発行されないか、結果が適用されない。
func (r *Resolver) Resolve(ctx context.Context, key string, gen uint64) {
	r.mu.Lock()
	if gen != r.gen {
		// 予約後・開始前にリセットされた。ルックアップを発行しない
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	if key == "" {
		r.apply(gen, false)
		return
	}

	admin, err := r.store.IsAdmin(ctx, key)
	if err != nil {
		if !errors.Is(err, model.ErrAdminNotFound) {
			slog.Warn("admin lookup failed, treating as non-admin",
				slog.String("identity", key),
				slog.String("error", err.Error()),
			)
		}
		admin = false
	}

	r.apply(gen, admin)
}

// Privilege は現在の権限フラグと解決済みかどうかを返す。
// 解決前のフラグは常にfalse。
func (r *Resolver) Privilege() (admin bool, resolved bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.admin, r.resolved
}

// apply は解決結果を適用する。世代が進んでいた場合は破棄する。
func (r *Resolver) apply(gen uint64, admin bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		return
	}
	r.admin = admin
	r.resolved = true
}

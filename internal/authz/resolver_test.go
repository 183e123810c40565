package authz

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hitoshi/rezerveme/internal/model"
)

// --- モック定義 ---

type mockAdminStore struct {
	mu        sync.Mutex
	isAdminFn func(ctx context.Context, key string) (bool, error)
	calls     int
}

func (m *mockAdminStore) IsAdmin(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	m.calls++
	fn := m.isAdminFn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, key)
	}
	return false, model.ErrAdminNotFound
}

func (m *mockAdminStore) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var _ AdminStore = (*mockAdminStore)(nil)

// --- テスト ---

func TestResolve_AdminRowGrantsPrivilege(t *testing.T) {
	store := &mockAdminStore{
		isAdminFn: func(ctx context.Context, key string) (bool, error) {
			return key == "admin@x.com", nil
		},
	}
	r := NewResolver(store)

	r.Resolve(context.Background(), "admin@x.com", r.Gen())

	admin, resolved := r.Privilege()
	if !admin || !resolved {
		t.Errorf("privilege = (%v, %v), want (true, true)", admin, resolved)
	}
}

func TestResolve_NotFoundIsNormalNonAdmin(t *testing.T) {
	// 行の不在は「管理者ではない」という正常な結果
	r := NewResolver(&mockAdminStore{})

	r.Resolve(context.Background(), "a@x.com", r.Gen())

	admin, resolved := r.Privilege()
	if admin {
		t.Error("admin = true, want false")
	}
	if !resolved {
		t.Error("resolved = false, want true")
	}
}

func TestResolve_LookupFailureFailsClosed(t *testing.T) {
	store := &mockAdminStore{
		isAdminFn: func(ctx context.Context, key string) (bool, error) {
			return false, errors.New("store unreachable")
		},
	}
	r := NewResolver(store)

	r.Resolve(context.Background(), "admin@x.com", r.Gen())

	admin, resolved := r.Privilege()
	if admin {
		t.Error("lookup failure must never grant privilege")
	}
	if !resolved {
		t.Error("resolved = false, want true")
	}
}

func TestResolve_EmptyKeyResolvesWithoutRemoteCall(t *testing.T) {
	store := &mockAdminStore{}
	r := NewResolver(store)

	r.Resolve(context.Background(), "", r.Gen())

	if store.callCount() != 0 {
		t.Errorf("store calls = %d, want 0", store.callCount())
	}
	admin, resolved := r.Privilege()
	if admin || !resolved {
		t.Errorf("privilege = (%v, %v), want (false, true)", admin, resolved)
	}
}

func TestResolve_StaleResultDiscardedAfterReset(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	store := &mockAdminStore{
		isAdminFn: func(ctx context.Context, key string) (bool, error) {
			close(started)
			<-release
			return true, nil
		},
	}
	r := NewResolver(store)

	done := make(chan struct{})
	go func() {
		r.Resolve(context.Background(), "admin@x.com", r.Gen())
		close(done)
	}()

	<-started
	// 解決中にアイデンティティが変わった
	r.Reset()
	close(release)
	<-done

	admin, resolved := r.Privilege()
	if admin {
		t.Error("stale resolution must not be applied")
	}
	if resolved {
		t.Error("resolved = true, want false after reset")
	}
}

func TestResolve_SupersededBeforeStartIsNotIssued(t *testing.T) {
	store := &mockAdminStore{
		isAdminFn: func(ctx context.Context, key string) (bool, error) {
			return true, nil
		},
	}
	r := NewResolver(store)

	// 解決を予約した後、実行開始前にアイデンティティが切り替わった
	gen := r.Gen()
	r.Reset()
	r.Resolve(context.Background(), "admin@x.com", gen)

	if store.callCount() != 0 {
		t.Errorf("store calls = %d, want 0", store.callCount())
	}
	admin, resolved := r.Privilege()
	if admin || resolved {
		t.Errorf("privilege = (%v, %v), want (false, false)", admin, resolved)
	}
}

func TestReset_ClearsPrivilege(t *testing.T) {
	store := &mockAdminStore{
		isAdminFn: func(ctx context.Context, key string) (bool, error) {
			return true, nil
		},
	}
	r := NewResolver(store)
	r.Resolve(context.Background(), "admin@x.com", r.Gen())

	r.Reset()

	admin, resolved := r.Privilege()
	if admin || resolved {
		t.Errorf("privilege = (%v, %v), want (false, false)", admin, resolved)
	}
}

func TestPrivilege_DefaultsToFalseBeforeResolution(t *testing.T) {
	r := NewResolver(&mockAdminStore{})

	admin, resolved := r.Privilege()
	if admin || resolved {
		t.Errorf("privilege = (%v, %v), want (false, false)", admin, resolved)
	}
}

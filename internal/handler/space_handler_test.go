package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/rezerveme/internal/booking"
	"github.com/hitoshi/rezerveme/internal/middleware"
	"github.com/hitoshi/rezerveme/internal/model"
)

// --- モック定義 ---

type mockSpaceService struct {
	listSpacesFn  func(ctx context.Context) ([]model.Space, error)
	createSpaceFn func(ctx context.Context, name string, capacity int) (*model.Space, error)
}

func (m *mockSpaceService) ListSpaces(ctx context.Context) ([]model.Space, error) {
	if m.listSpacesFn != nil {
		return m.listSpacesFn(ctx)
	}
	return nil, nil
}

func (m *mockSpaceService) CreateSpace(ctx context.Context, name string, capacity int) (*model.Space, error) {
	if m.createSpaceFn != nil {
		return m.createSpaceFn(ctx, name, capacity)
	}
	return nil, nil
}

type mockAdminChecker struct {
	existsFn func(ctx context.Context, email string) (bool, error)
}

func (m *mockAdminChecker) Exists(ctx context.Context, email string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, email)
	}
	return false, nil
}

var _ SpaceServiceInterface = (*mockSpaceService)(nil)
var _ AdminChecker = (*mockAdminChecker)(nil)

// authedRequest は認証済みユーザーのコンテキストを持つリクエストを生成する。
func authedRequest(method, target, body, email string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	ctx := middleware.ContextWithUser(req.Context(), "user-1", email)
	return req.WithContext(ctx)
}

// --- テスト ---

func TestListSpaces_ReturnsSpacesAsJSON(t *testing.T) {
	service := &mockSpaceService{
		listSpacesFn: func(ctx context.Context) ([]model.Space, error) {
			return []model.Space{
				{ID: 1, Name: "Room A", Capacity: 10},
				{ID: 2, Name: "Room B", Capacity: 4},
			}, nil
		},
	}
	h := NewSpaceHandler(service, &mockAdminChecker{})

	req := httptest.NewRequest(http.MethodGet, "/api/spaces", nil)
	w := httptest.NewRecorder()

	h.ListSpaces(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	got := string(body)
	if !strings.Contains(got, `"name":"Room A"`) || !strings.Contains(got, `"capacity":4`) {
		t.Errorf("unexpected body: %s", got)
	}
}

func TestListSpaces_EmptyListReturnsJSONArray(t *testing.T) {
	h := NewSpaceHandler(&mockSpaceService{}, &mockAdminChecker{})

	req := httptest.NewRequest(http.MethodGet, "/api/spaces", nil)
	w := httptest.NewRecorder()

	h.ListSpaces(w, req)

	body, _ := io.ReadAll(w.Result().Body)
	if strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("body = %q, want []", string(body))
	}
}

func TestCreateSpace_AdminCanCreate(t *testing.T) {
	service := &mockSpaceService{
		createSpaceFn: func(ctx context.Context, name string, capacity int) (*model.Space, error) {
			return &model.Space{ID: 3, Name: name, Capacity: capacity}, nil
		},
	}
	checker := &mockAdminChecker{
		existsFn: func(ctx context.Context, email string) (bool, error) {
			return email == "admin@x.com", nil
		},
	}
	h := NewSpaceHandler(service, checker)

	req := authedRequest(http.MethodPost, "/api/spaces", `{"name":"Room C","capacity":6}`, "admin@x.com")
	w := httptest.NewRecorder()

	h.CreateSpace(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"id":3`) {
		t.Errorf("unexpected body: %s", string(body))
	}
}

func TestCreateSpace_NonAdminGets403(t *testing.T) {
	createCalled := false
	service := &mockSpaceService{
		createSpaceFn: func(ctx context.Context, name string, capacity int) (*model.Space, error) {
			createCalled = true
			return nil, nil
		},
	}
	checker := &mockAdminChecker{
		existsFn: func(ctx context.Context, email string) (bool, error) {
			return false, nil
		},
	}
	h := NewSpaceHandler(service, checker)

	req := authedRequest(http.MethodPost, "/api/spaces", `{"name":"Room C","capacity":6}`, "user@x.com")
	w := httptest.NewRecorder()

	h.CreateSpace(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
	if createCalled {
		t.Error("service must not be called for non-admin")
	}
}

func TestCreateSpace_AdminCheckFailureIsDenied(t *testing.T) {
	// 権限確認に失敗した場合は管理者として扱わない（fail closed）
	checker := &mockAdminChecker{
		existsFn: func(ctx context.Context, email string) (bool, error) {
			return false, context.DeadlineExceeded
		},
	}
	h := NewSpaceHandler(&mockSpaceService{}, checker)

	req := authedRequest(http.MethodPost, "/api/spaces", `{"name":"Room C","capacity":6}`, "admin@x.com")
	w := httptest.NewRecorder()

	h.CreateSpace(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
}

func TestCreateSpace_ValidationErrorReturns400WithBodyText(t *testing.T) {
	service := &mockSpaceService{
		createSpaceFn: func(ctx context.Context, name string, capacity int) (*model.Space, error) {
			return nil, booking.ErrInvalidCapacity
		},
	}
	checker := &mockAdminChecker{
		existsFn: func(ctx context.Context, email string) (bool, error) { return true, nil },
	}
	h := NewSpaceHandler(service, checker)

	req := authedRequest(http.MethodPost, "/api/spaces", `{"name":"Room","capacity":0}`, "admin@x.com")
	w := httptest.NewRecorder()

	h.CreateSpace(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	body, _ := io.ReadAll(resp.Body)
	if string(body) != "Capacity must be at least 1" {
		t.Errorf("body = %q, want %q", string(body), "Capacity must be at least 1")
	}
}

func TestCreateSpace_UnauthenticatedReturns401(t *testing.T) {
	h := NewSpaceHandler(&mockSpaceService{}, &mockAdminChecker{})

	req := httptest.NewRequest(http.MethodPost, "/api/spaces", strings.NewReader(`{"name":"Room","capacity":1}`))
	w := httptest.NewRecorder()

	h.CreateSpace(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

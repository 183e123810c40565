package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/rezerveme/internal/booking"
	"github.com/hitoshi/rezerveme/internal/middleware"
	"github.com/hitoshi/rezerveme/internal/model"
)

// SpaceServiceInterface はスペースハンドラーが必要とするサービスインターフェース。
type SpaceServiceInterface interface {
	// ListSpaces は全スペースの一覧を返す。
	ListSpaces(ctx context.Context) ([]model.Space, error)
	// CreateSpace はスペースを作成する。
	CreateSpace(ctx context.Context, name string, capacity int) (*model.Space, error)
}

// AdminChecker は管理者権限の確認インターフェース。
// repository.AdminRepositoryの部分集合として定義する。
type AdminChecker interface {
	Exists(ctx context.Context, email string) (bool, error)
}

// SpaceHandler はスペース管理のHTTPハンドラー。
type SpaceHandler struct {
	service      SpaceServiceInterface
	adminChecker AdminChecker
}

// NewSpaceHandler はSpaceHandlerを生成する。
func NewSpaceHandler(service SpaceServiceInterface, adminChecker AdminChecker) *SpaceHandler {
	return &SpaceHandler{
		service:      service,
		adminChecker: adminChecker,
	}
}

// createSpaceRequest はスペース作成リクエストのボディ。
type createSpaceRequest struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// ListSpaces は全スペースの一覧を返す。
// GET /api/spaces
func (h *SpaceHandler) ListSpaces(w http.ResponseWriter, r *http.Request) {
	spaces, err := h.service.ListSpaces(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}

	if spaces == nil {
		spaces = []model.Space{}
	}
	writeJSON(w, http.StatusOK, spaces)
}

// CreateSpace はスペースを作成する。管理者のみ実行できる。
// POST /api/spaces
func (h *SpaceHandler) CreateSpace(w http.ResponseWriter, r *http.Request) {
	email, err := middleware.UserEmailFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewNotAuthenticatedError())
		return
	}

	// 管理者チェック。確認に失敗した場合も拒否する（fail closed）。
	isAdmin, err := h.adminChecker.Exists(r.Context(), email)
	if err != nil {
		slog.Error("failed to check admin privilege",
			slog.String("user_email", email),
			slog.String("error", err.Error()),
		)
		writePlainError(w, http.StatusForbidden, "Admin privileges required")
		return
	}
	if !isAdmin {
		writePlainError(w, http.StatusForbidden, "Admin privileges required")
		return
	}

	var req createSpaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writePlainError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	space, err := h.service.CreateSpace(r.Context(), req.Name, req.Capacity)
	if err != nil {
		if errors.Is(err, booking.ErrNameRequired) || errors.Is(err, booking.ErrInvalidCapacity) {
			writePlainError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, space)
}

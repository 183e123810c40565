package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hitoshi/rezerveme/internal/booking"
	"github.com/hitoshi/rezerveme/internal/middleware"
	"github.com/hitoshi/rezerveme/internal/model"
)

// ReservationServiceInterface は予約ハンドラーが必要とするサービスインターフェース。
type ReservationServiceInterface interface {
	// ListReservations は指定ユーザーの予約一覧を返す。
	ListReservations(ctx context.Context, userEmail string) ([]model.Reservation, error)
	// CreateReservation は予約を作成する。
	CreateReservation(ctx context.Context, spaceID int64, userEmail string, date model.Date) (*model.Reservation, error)
}

// ReservationHandler は予約管理のHTTPハンドラー。
type ReservationHandler struct {
	service ReservationServiceInterface
}

// NewReservationHandler はReservationHandlerを生成する。
func NewReservationHandler(service ReservationServiceInterface) *ReservationHandler {
	return &ReservationHandler{service: service}
}

// createReservationRequest は予約作成リクエストのボディ。
type createReservationRequest struct {
	SpaceID         int64      `json:"spaceId"`
	UserEmail       string     `json:"userEmail"`
	ReservationDate model.Date `json:"reservationDate"`
}

// ListReservations はログイン中のユーザー自身の予約一覧を返す。
// GET /api/reservations?userEmail=...
//
// userEmailクエリパラメータはセッションのメールアドレスと一致しなければ
// ならない。他人のメールアドレスを指定した列挙は403で拒否する。
func (h *ReservationHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	sessionEmail, err := middleware.UserEmailFromContext(r.Context())
	if err != nil {
		writePlainError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	userEmail := r.URL.Query().Get("userEmail")
	if userEmail == "" {
		userEmail = sessionEmail
	}
	if userEmail != sessionEmail {
		writePlainError(w, http.StatusForbidden, "Cannot list reservations for another user")
		return
	}

	reservations, err := h.service.ListReservations(r.Context(), userEmail)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	if reservations == nil {
		reservations = []model.Reservation{}
	}
	writeJSON(w, http.StatusOK, reservations)
}

// CreateReservation は予約を作成する。
// POST /api/reservations
//
// エラー時はプレーンテキストのボディを返す:
//   - 400: 予約日なし、または指定日が満員
//   - 404: 指定IDのスペースが存在しない
func (h *ReservationHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req createReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writePlainError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	reservation, err := h.service.CreateReservation(r.Context(), req.SpaceID, req.UserEmail, req.ReservationDate)
	if err != nil {
		var notFound *booking.SpaceNotFoundError
		var capacityErr *booking.CapacityError
		switch {
		case errors.Is(err, booking.ErrDateRequired):
			writePlainError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &notFound):
			writePlainError(w, http.StatusNotFound, notFound.Error())
		case errors.As(err, &capacityErr):
			writePlainError(w, http.StatusBadRequest, capacityErr.Error())
		default:
			writeInternalError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, reservation)
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/rezerveme/internal/auth"
	"github.com/hitoshi/rezerveme/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// SignUp はユーザーを仮登録し、検証トークンを発行する。
	SignUp(ctx context.Context, email, password string) (*model.User, error)
	// Verify は検証トークンに一致するユーザーを認証済みにする。
	Verify(ctx context.Context, token string) (bool, error)
	// SignIn はメールアドレスとパスワードを検証し、セッションを発行する。
	SignIn(ctx context.Context, email, password string) (*model.AuthSession, *model.User, error)
	// SignOut はセッションを破棄する。
	SignOut(ctx context.Context, sessionID string) error
	// GetCurrentUser はセッションIDからユーザーを解決する。
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, *model.AuthSession, error)
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service      AuthServiceInterface
	adminChecker AdminChecker
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, adminChecker AdminChecker) *AuthHandler {
	return &AuthHandler{
		service:      service,
		adminChecker: adminChecker,
	}
}

// credentialsRequest はサインアップ・ログインリクエストのボディ。
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// tokenResponse はログイン成功時のAPIレスポンス。
type tokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      userResponse `json:"user"`
}

// SignUp はユーザーを仮登録する。
// POST /auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	if req.Email == "" || req.Password == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "メールアドレスとパスワードを入力してください。",
			Category: "validation",
			Action:   "すべての項目を入力してください。",
		})
		return
	}

	user, err := h.service.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			writeAPIErrorResponse(w, http.StatusConflict, &model.APIError{
				Code:     model.ErrCodeEmailTaken,
				Message:  "このメールアドレスは既に登録されています。",
				Category: "auth",
				Action:   "別のメールアドレスを使用するか、ログインしてください。",
			})
			return
		}
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, userResponse{ID: user.ID, Email: user.Email})
}

// Verify はメールアドレス検証トークンを消費してユーザーを有効化する。
// GET /auth/verify?token=...
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "検証トークンが指定されていません。",
			Category: "validation",
			Action:   "メールに記載されたリンクからアクセスしてください。",
		})
		return
	}

	ok, err := h.service.Verify(r.Context(), token)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if !ok {
		writeAPIErrorResponse(w, http.StatusNotFound, &model.APIError{
			Code:     "TOKEN_NOT_FOUND",
			Message:  "検証トークンが無効です。",
			Category: "auth",
			Action:   "再度サインアップしてください。",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

// Token はメールアドレスとパスワードでログインし、Bearerトークンを発行する。
// POST /auth/token
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	session, user, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
				Code:     model.ErrCodeInvalidCredentials,
				Message:  "メールアドレスまたはパスワードが正しくありません。",
				Category: "auth",
				Action:   "入力内容を確認してください。",
			})
		case errors.Is(err, auth.ErrEmailNotVerified):
			writeAPIErrorResponse(w, http.StatusForbidden, &model.APIError{
				Code:     model.ErrCodeEmailNotVerified,
				Message:  "メールアドレスが未検証です。",
				Category: "auth",
				Action:   "メールに記載された検証リンクを開いてください。",
			})
		default:
			writeInternalError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		Token:     session.ID,
		ExpiresAt: session.ExpiresAt,
		User:      userResponse{ID: user.ID, Email: user.Email},
	})
}

// Logout は現在のセッションを破棄する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := bearerTokenFromRequest(r)
	if token == "" {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewNotAuthenticatedError())
		return
	}

	if err := h.service.SignOut(r.Context(), token); err != nil {
		writeInternalError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のセッションのユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	token := bearerTokenFromRequest(r)
	if token == "" {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewNotAuthenticatedError())
		return
	}

	user, _, err := h.service.GetCurrentUser(r.Context(), token)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if user == nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewNotAuthenticatedError())
		return
	}

	writeJSON(w, http.StatusOK, userResponse{ID: user.ID, Email: user.Email})
}

// AdminLookup は指定メールアドレスの管理者登録を確認する。
// GET /auth/admins/{email}
//
// 登録がない場合は404を返す。クライアントは404を「管理者ではない」
// という正常な結果として扱う。
func (h *AuthHandler) AdminLookup(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if email == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "メールアドレスが指定されていません。",
			Category: "validation",
			Action:   "パスにメールアドレスを指定してください。",
		})
		return
	}

	exists, err := h.adminChecker.Exists(r.Context(), email)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if !exists {
		writeAPIErrorResponse(w, http.StatusNotFound, &model.APIError{
			Code:     "ADMIN_NOT_FOUND",
			Message:  "管理者として登録されていません。",
			Category: "auth",
			Action:   "",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"email": email, "admin": true})
}

// bearerTokenFromRequest はAuthorizationヘッダーからBearerトークンを取り出す。
func bearerTokenFromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// Package authz はアイデンティティから管理者権限を導出する。
package authz

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/rezerveme/internal/model"
)

// AdminStore は管理者権限ルックアップのインターフェース。
type AdminStore interface {
	// IsAdmin は指定キーの管理者登録を確認する。
	// 登録がない場合はmodel.ErrAdminNotFoundを返す（正常な結果）。
	IsAdmin(ctx context.Context, key string) (bool, error)
}

// TokenSource はリクエストに付与するBearerトークンの供給元。
type TokenSource interface {
	Token() string
}

// HTTPAdminStore は認証APIの管理者ルックアップエンドポイントを利用するAdminStore。
type HTTPAdminStore struct {
	httpClient  *http.Client
	logger      *slog.Logger
	baseURL     string
	tokenSource TokenSource
}

// NewHTTPAdminStore はHTTPAdminStoreの新しいインスタンスを生成する。
func NewHTTPAdminStore(httpClient *http.Client, logger *slog.Logger, baseURL string, tokenSource TokenSource) *HTTPAdminStore {
	return &HTTPAdminStore{
		httpClient:  httpClient,
		logger:      logger,
		baseURL:     strings.TrimRight(baseURL, "/"),
		tokenSource: tokenSource,
	}
}

// IsAdmin は指定メールアドレスの管理者登録を確認する。
// GET /auth/admins/{email}
//
// 404は「管理者ではない」という正常な結果としてmodel.ErrAdminNotFoundを返す。
func (s *HTTPAdminStore) IsAdmin(ctx context.Context, key string) (bool, error) {
	reqURL := s.baseURL + "/auth/admins/" + url.PathEscape(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	if s.tokenSource != nil {
		if token := s.tokenSource.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("管理者ルックアップに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, model.ErrAdminNotFound
	default:
		return false, fmt.Errorf("管理者ルックアップAPIがステータス %d を返しました", resp.StatusCode)
	}
}

// compile-time interface check
var _ AdminStore = (*HTTPAdminStore)(nil)

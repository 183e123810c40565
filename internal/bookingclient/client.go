// Package bookingclient は予約バックエンドAPIのHTTPクライアントを提供する。
// スペース一覧・予約一覧の取得と、予約・スペースの作成を行う。
package bookingclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/rezerveme/internal/model"
)

// TokenSource はリクエストに付与するBearerトークンの供給元。
// 未ログイン時は空文字を返す。
type TokenSource interface {
	Token() string
}

// Client は予約バックエンドAPIのクライアント。
type Client struct {
	httpClient  *http.Client
	logger      *slog.Logger
	baseURL     string
	tokenSource TokenSource
}

// NewClient はClientの新しいインスタンスを生成する。
// tokenSourceはnilでもよい（全リクエストが匿名になる）。
func NewClient(httpClient *http.Client, logger *slog.Logger, baseURL string, tokenSource TokenSource) *Client {
	return &Client{
		httpClient:  httpClient,
		logger:      logger,
		baseURL:     strings.TrimRight(baseURL, "/"),
		tokenSource: tokenSource,
	}
}

// createReservationRequest は予約作成リクエストのボディ。
// フィールド順はワイヤフォーマットに合わせる。
type createReservationRequest struct {
	SpaceID         int64      `json:"spaceId"`
	UserEmail       string     `json:"userEmail"`
	ReservationDate model.Date `json:"reservationDate"`
}

// createSpaceRequest はスペース作成リクエストのボディ。
type createSpaceRequest struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// ListSpaces は全スペースの一覧を取得する。
// GET /api/spaces
func (c *Client) ListSpaces(ctx context.Context) ([]model.Space, error) {
	var spaces []model.Space
	if err := c.getJSON(ctx, "/api/spaces", &spaces); err != nil {
		return nil, model.NewFetchFailedError("スペース一覧", err)
	}
	return spaces, nil
}

// ListReservations は指定ユーザーの予約一覧を取得する。
// GET /api/reservations?userEmail=...
func (c *Client) ListReservations(ctx context.Context, userEmail string) ([]model.Reservation, error) {
	path := "/api/reservations?userEmail=" + url.QueryEscape(userEmail)
	var reservations []model.Reservation
	if err := c.getJSON(ctx, path, &reservations); err != nil {
		return nil, model.NewFetchFailedError("予約一覧", err)
	}
	return reservations, nil
}

// CreateReservation は予約を作成する。
// POST /api/reservations
//
// バックエンドが非2xxで拒否した場合、レスポンスボディのテキストを
// そのままメッセージとして持つエラーを返す。
func (c *Client) CreateReservation(ctx context.Context, spaceID int64, userEmail string, date model.Date) (*model.Reservation, error) {
	body := createReservationRequest{
		SpaceID:         spaceID,
		UserEmail:       userEmail,
		ReservationDate: date,
	}

	var created model.Reservation
	if err := c.postJSON(ctx, "/api/reservations", body, &created, model.NewBookingRejectedError); err != nil {
		return nil, err
	}
	return &created, nil
}

// CreateSpace はスペースを作成する。管理者トークンが必要。
// POST /api/spaces
func (c *Client) CreateSpace(ctx context.Context, name string, capacity int) (*model.Space, error) {
	body := createSpaceRequest{
		Name:     name,
		Capacity: capacity,
	}

	var created model.Space
	if err := c.postJSON(ctx, "/api/spaces", body, &created, model.NewSpaceRejectedError); err != nil {
		return nil, err
	}
	return &created, nil
}

// getJSON はGETリクエストを実行し、200レスポンスのJSONをoutにデコードする。
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("booking APIの呼び出しに失敗しました",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("booking APIがエラーステータスを返しました",
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
		)
		return fmt.Errorf("booking APIがステータス %d を返しました", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	return nil
}

// postJSON はPOSTリクエストを実行し、2xxレスポンスのJSONをoutにデコードする。
// 非2xxの場合はレスポンスボディのテキストをrejectに渡してエラーを生成する。
func (c *Client) postJSON(ctx context.Context, path string, body any, out any, reject func(string) *model.APIError) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("リクエストボディの生成に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("booking APIの呼び出しに失敗しました",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return model.NewFetchFailedError("booking API", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// 拒否理由はレスポンスボディのテキストをそのまま保持する
		raw, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			raw = nil
		}
		c.logger.Warn("booking APIがリクエストを拒否しました",
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
			slog.String("body", string(raw)),
		)
		return reject(string(raw))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	return nil
}

// setHeaders はUser-Agentと（ログイン済みの場合）Authorizationヘッダーを設定する。
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "RezerveMe/1.0")
	if c.tokenSource != nil {
		if token := c.tokenSource.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
}

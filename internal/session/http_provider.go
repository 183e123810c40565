package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// HTTPProvider は認証APIを利用するIdentityProviderの実装。
// 発行されたトークンをローカルファイルに永続化し、
// プロセス再起動後もセッションを復元できるようにする。
type HTTPProvider struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	tokenPath  string

	mu          sync.Mutex
	session     *Session
	subscribers map[int]func(*Session)
	nextSubID   int
}

// NewHTTPProvider はHTTPProviderの新しいインスタンスを生成する。
func NewHTTPProvider(httpClient *http.Client, logger *slog.Logger, baseURL, tokenPath string) *HTTPProvider {
	return &HTTPProvider{
		httpClient:  httpClient,
		logger:      logger,
		baseURL:     strings.TrimRight(baseURL, "/"),
		tokenPath:   tokenPath,
		subscribers: make(map[int]func(*Session)),
	}
}

// tokenResponse はログインAPIのレスポンス。
type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// apiError は認証APIの統一エラーフォーマット。
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CurrentSession は保存済みトークンを検証し、有効なセッションを返す。
// トークンが無い・無効な場合はnilを返す（エラーではない）。
func (p *HTTPProvider) CurrentSession(ctx context.Context) (*Session, error) {
	p.mu.Lock()
	if p.session != nil {
		sess := p.session
		p.mu.Unlock()
		return sess, nil
	}
	p.mu.Unlock()

	token, err := p.loadToken()
	if err != nil {
		return nil, fmt.Errorf("トークンの読み込みに失敗しました: %w", err)
	}
	if token == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/auth/me", nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("セッションの検証に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// 期限切れトークンは破棄する
		p.removeToken()
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("認証APIがステータス %d を返しました", resp.StatusCode)
	}

	var user struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	sess := &Session{Token: token, UserID: user.ID, Email: user.Email}
	p.mu.Lock()
	p.session = sess
	p.mu.Unlock()

	return sess, nil
}

// Subscribe はセッション変更イベントの購読を登録する。
func (p *HTTPProvider) Subscribe(fn func(*Session)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextSubID
	p.nextSubID++
	p.subscribers[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subscribers, id)
		p.mu.Unlock()
	}
}

// SignIn はメールアドレスとパスワードでログインし、トークンを保存する。
// 成功すると購読者に新しいセッションが通知される。
func (p *HTTPProvider) SignIn(ctx context.Context, email, password string) error {
	var result tokenResponse
	if err := p.postJSON(ctx, "/auth/token", map[string]string{
		"email":    email,
		"password": password,
	}, &result); err != nil {
		return err
	}

	if err := p.saveToken(result.Token); err != nil {
		p.logger.Warn("failed to persist token",
			slog.String("error", err.Error()),
		)
	}

	sess := &Session{
		Token:     result.Token,
		UserID:    result.User.ID,
		Email:     result.User.Email,
		ExpiresAt: result.ExpiresAt,
	}

	p.mu.Lock()
	p.session = sess
	p.mu.Unlock()

	p.notify(sess)
	return nil
}

// SignUp はユーザーを仮登録する。検証メールの送信はサーバー側で行われる。
// セッションは発行されない（メール検証後にSignInする）。
func (p *HTTPProvider) SignUp(ctx context.Context, email, password string) error {
	var created struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	return p.postJSON(ctx, "/auth/signup", map[string]string{
		"email":    email,
		"password": password,
	}, &created)
}

// SignOut は現在のセッションを破棄する。
// サーバー側の破棄に失敗してもローカルのトークンは必ず破棄し、
// 購読者にはnilが通知される。
func (p *HTTPProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	sess := p.session
	p.session = nil
	p.mu.Unlock()

	p.removeToken()

	var requestErr error
	if sess != nil {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/auth/logout", nil)
		if err == nil {
			req.Header.Set("Authorization", "Bearer "+sess.Token)
			resp, err := p.httpClient.Do(req)
			if err != nil {
				requestErr = err
			} else {
				resp.Body.Close()
			}
		}
		if requestErr != nil {
			p.logger.Warn("failed to revoke session on server",
				slog.String("error", requestErr.Error()),
			)
		}
	}

	p.notify(nil)
	return nil
}

// Token は現在のBearerトークンを返す。未ログインの場合は空文字を返す。
func (p *HTTPProvider) Token() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return ""
	}
	return p.session.Token
}

// notify は全購読者にセッション変更を通知する。
func (p *HTTPProvider) notify(sess *Session) {
	p.mu.Lock()
	subs := make([]func(*Session), 0, len(p.subscribers))
	for _, fn := range p.subscribers {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	for _, fn := range subs {
		fn(sess)
	}
}

// postJSON は認証APIにPOSTリクエストを実行する。
// 非2xxの場合は統一エラーフォーマットのメッセージをエラーとして返す。
func (p *HTTPProvider) postJSON(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("リクエストボディの生成に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("認証APIの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Message != "" {
			return fmt.Errorf("%s", apiErr.Message)
		}
		return fmt.Errorf("認証APIがステータス %d を返しました", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
		}
	}
	return nil
}

// loadToken は保存済みトークンを読み込む。ファイルが無い場合は空文字を返す。
func (p *HTTPProvider) loadToken() (string, error) {
	data, err := os.ReadFile(p.tokenPath)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// saveToken はトークンをファイルに保存する。
func (p *HTTPProvider) saveToken(token string) error {
	if err := os.MkdirAll(filepath.Dir(p.tokenPath), 0o700); err != nil {
		return err
	}
	return os.WriteFile(p.tokenPath, []byte(token), 0o600)
}

// removeToken は保存済みトークンを削除する。
func (p *HTTPProvider) removeToken() {
	if err := os.Remove(p.tokenPath); err != nil && !os.IsNotExist(err) {
		p.logger.Warn("failed to remove token file",
			slog.String("path", p.tokenPath),
			slog.String("error", err.Error()),
		)
	}
}

// compile-time interface check
var _ IdentityProvider = (*HTTPProvider)(nil)

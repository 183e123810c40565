// Package config は環境変数ベースのアプリケーション設定を提供する。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Server
	ServerPort    string
	SessionMaxAge int // セッション有効期間（秒）
	BcryptCost    int

	// Rate Limit（req/min/user）
	RateLimitGeneral int
	RateLimitReserve int

	// CORS
	CORSAllowedOrigin string

	// Client（tuiサブコマンド用）
	APIBaseURL  string
	HTTPTimeout time.Duration
	TokenPath   string
}

// Load はサーバーモード用のConfigを環境変数から読み込む。
// DATABASE_URLが未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := loadCommon()

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("required environment variable is not set: DATABASE_URL")
	}

	return cfg, nil
}

// LoadClient はクライアント（TUI）モード用のConfigを環境変数から読み込む。
// すべての項目にデフォルト値があるため、失敗しない。
func LoadClient() *Config {
	return loadCommon()
}

func loadCommon() *Config {
	cfg := &Config{}

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", 10)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitReserve = getEnvInt("RATE_LIMIT_RESERVE", 30)
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	cfg.APIBaseURL = getEnvString("API_BASE_URL", "http://localhost:8080")
	cfg.HTTPTimeout = getEnvDuration("HTTP_TIMEOUT", 10*time.Second)
	cfg.TokenPath = getEnvString("TOKEN_PATH", defaultTokenPath())

	return cfg
}

// defaultTokenPath はセッショントークンの保存先のデフォルトを返す。
// ユーザー設定ディレクトリが解決できない場合は空文字列（保存なし）を返す。
func defaultTokenPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "rezerveme", "session")
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

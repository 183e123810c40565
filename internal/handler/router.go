package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/rezerveme/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	UserResolver      middleware.CurrentUserResolver
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	MetricsRecorder   middleware.HTTPMetricsRecorder

	// 認証
	AuthService  AuthServiceInterface
	AdminChecker AdminChecker

	// 予約ドメイン
	SpaceService       SpaceServiceInterface
	ReservationService ReservationServiceInterface

	// Prometheusスクレイプ用ハンドラー。nilの場合は/metricsを公開しない。
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Metrics → (Session → RateLimit)
//
// スペース一覧と認証フロー（サインアップ・検証・ログイン）は認証不要。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	if deps.MetricsRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.MetricsRecorder))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AdminChecker)
	spaceHandler := NewSpaceHandler(deps.SpaceService, deps.AdminChecker)
	reservationHandler := NewReservationHandler(deps.ReservationService)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// 認証フロー
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.SignUp)
		r.Get("/verify", authHandler.Verify)
		r.Post("/token", authHandler.Token)
	})

	// スペース一覧は未ログインでも閲覧できる
	r.Get("/api/spaces", spaceHandler.ListSpaces)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.UserResolver))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		// セッション管理
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/me", authHandler.Me)
		r.Get("/auth/admins/{email}", authHandler.AdminLookup)

		// スペース登録（管理者のみ）
		r.Post("/api/spaces", spaceHandler.CreateSpace)

		// 予約管理
		r.Route("/api/reservations", func(r chi.Router) {
			r.Get("/", reservationHandler.ListReservations)

			// POST /api/reservations - 予約作成（作成専用レート制限を追加）
			if deps.RateLimiter != nil {
				r.With(deps.RateLimiter.ReservationMiddleware()).Post("/", reservationHandler.CreateReservation)
			} else {
				r.Post("/", reservationHandler.CreateReservation)
			}
		})
	})

	return r
}

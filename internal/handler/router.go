package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lucasmorforio/ubalerta/internal/middleware"
	"github.com/lucasmorforio/ubalerta/internal/model"
)

// HealthChecker はヘルスチェックで疎通確認する依存を表す。*sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	SessionFinder     middleware.SessionFinder
	UserFinder        middleware.UserFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger
	// OnHTTPStatus はリクエスト完了時にステータスコードを通知する（メトリクス用）。nil可。
	OnHTTPStatus middleware.StatusRecorderFunc

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 地図フィード
	MapFeedService MapFeedServiceInterface

	// 道路
	StreetService StreetServiceInterface

	// 通報・モデレーション
	ReportService ReportServiceInterface
	AdminService  AdminServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging → CORS → CSRF
//
// に加え、認証が必要なルートでは
//
//	SessionMiddleware → RateLimit(General)
//
// が適用される。地図フィードと道路検索は認証不要の公開ルート。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.OnHTTPStatus))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	mapHandler := NewMapHandler(deps.MapFeedService)
	streetHandler := NewStreetHandler(deps.StreetService)
	reportHandler := NewReportHandler(deps.ReportService)
	adminHandler := NewAdminHandler(deps.AdminService)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// CSRFトークン取得
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
		r.Get("/dev/login", authHandler.DevLogin)
		r.Post("/logout", authHandler.Logout)
	})
	r.Get("/api/auth/me", authHandler.Me)

	// 公開地図フィード
	r.Get("/api/map-data", mapHandler.ListFeed)

	// 道路の検索と形状
	r.Get("/api/streets/search", streetHandler.Search)
	r.Get("/api/streets/{id}/geometry", streetHandler.Geometry)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder, deps.UserFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 通報
		r.Route("/api/reports", func(r chi.Router) {
			// POST /api/reports - 通報投稿（投稿専用レート制限を追加）
			r.With(deps.RateLimiter.ReportSubmissionMiddleware()).Post("/", reportHandler.Submit)

			r.Route("/{id}", func(r chi.Router) {
				r.Post("/flag", reportHandler.Flag)

				// 削除は管理者以上
				r.With(middleware.NewRoleMiddleware(model.RoleAdmin)).Delete("/", reportHandler.Delete)
			})
		})

		// 道路管理（管理者以上）
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewRoleMiddleware(model.RoleAdmin))
			r.Post("/api/streets", adminHandler.CreateStreet)
			r.Delete("/api/streets/{id}", adminHandler.DeleteStreet)
		})

		// 管理者昇格（運営者のみ）
		r.With(middleware.NewRoleMiddleware(model.RoleOwner)).Post("/api/admins", adminHandler.PromoteAdmin)
	})

	return r
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/yatube/internal/cache"
	"github.com/hitoshi/yatube/internal/metrics"
	"github.com/hitoshi/yatube/internal/middleware"
	"github.com/hitoshi/yatube/internal/render"
)

// loginPath はログイン必須ページから未ログインでアクセスしたときのリダイレクト先。
const loginPath = "/auth/login/"

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// 描画
	Renderer *render.Renderer

	// ミドルウェア依存
	UserResolver middleware.UserResolver
	RateLimiter  *middleware.RateLimiter
	CSRFConfig   middleware.CSRFConfig
	MaxBodySize  int64
	Logger       *slog.Logger

	// サービス
	FeedService         FeedServiceInterface
	ArticleService      ArticleServiceInterface
	SubscriptionService SubscriptionServiceInterface
	AuthService         AuthServiceInterface
	UserService         UserServiceInterface
	AuthConfig          AuthHandlerConfig

	// キャッシュ・運用
	PageCache      cache.PageCache
	HealthChecker  HealthChecker
	AdminToken     string
	Metrics        metrics.MetricsCollector
	MetricsHandler http.Handler

	// アップロード画像
	MediaURL  string
	MediaRoot string
}

// NewRouter は全ページのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → Recovery → Session → Logging → SecurityHeaders
//	  ページ: BodyLimit → CSRF → (RequireLogin → RateLimit(General))
//
// /health, /metrics, /admin/*, メディア配信はCSRFの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pages := NewPages(deps.Renderer)
	feedHandler := NewFeedHandler(deps.FeedService, deps.PageCache, deps.Renderer, pages, collector)
	articleHandler := NewArticleHandler(deps.ArticleService, pages, collector)
	subHandler := NewSubscriptionHandler(deps.SubscriptionService, pages, collector)
	authHandler := NewAuthHandler(deps.AuthService, deps.UserService, pages, deps.AuthConfig)
	adminHandler := NewAdminHandler(deps.PageCache, deps.HealthChecker, deps.AdminToken, pages)

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewRecoveryMiddleware(http.HandlerFunc(pages.InternalError)))
	r.Use(middleware.NewSessionMiddleware(deps.UserResolver))
	r.Use(middleware.NewLoggingMiddleware(logger, collector))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	r.NotFound(pages.NotFound)

	// --- 運用エンドポイント ---
	r.Get("/health", adminHandler.Health)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}
	r.Post("/admin/cache/clear/", adminHandler.ClearCache)
	if deps.MediaURL != "" && deps.MediaRoot != "" {
		r.Handle(deps.MediaURL+"*", mediaFileServer(deps.MediaURL, deps.MediaRoot, pages.NotFound))
	}

	csrfConfig := deps.CSRFConfig
	csrfConfig.Failure = http.HandlerFunc(pages.CSRFFailure)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewBodyLimitMiddleware(deps.MaxBodySize))
		r.Use(middleware.NewCSRFMiddleware(csrfConfig))

		// --- ログイン不要のページ ---
		r.Get("/", feedHandler.Index)
		r.Get("/group/{slug}/", feedHandler.Community)
		r.Get("/profile/{username}/", feedHandler.Profile)
		r.Get("/posts/{id}/", articleHandler.Detail)

		r.Get("/about/author/", pages.Static("about/author.html", "作者について"))
		r.Get("/about/tech/", pages.Static("about/tech.html", "技術"))

		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.LoginMiddleware())
			r.Get("/auth/login/", authHandler.Login)
			r.Post("/auth/login/", authHandler.Login)
			r.Get("/auth/signup/", authHandler.Signup)
			r.Post("/auth/signup/", authHandler.Signup)
		})
		r.Post("/auth/logout/", authHandler.Logout)

		// --- ログイン必須のページ ---
		// ミドルウェアスタック: RequireLogin → RateLimit(General)
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewRequireLoginMiddleware(loginPath))
			r.Use(deps.RateLimiter.GeneralMiddleware())

			r.Get("/create/", articleHandler.Create)
			r.Post("/create/", articleHandler.Create)
			r.Get("/posts/{id}/edit/", articleHandler.Edit)
			r.Post("/posts/{id}/edit/", articleHandler.Edit)
			r.Post("/posts/{id}/comment/", articleHandler.AddComment)

			r.Get("/follow/", feedHandler.Following)
			r.Get("/profile/{username}/follow/", subHandler.Follow)
			r.Get("/profile/{username}/unfollow/", subHandler.Unfollow)

			r.Get("/auth/withdraw/", authHandler.Withdraw)
			r.Post("/auth/withdraw/", authHandler.Withdraw)
		})
	})

	return r
}

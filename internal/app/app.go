package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/yatube/internal/article"
	"github.com/hitoshi/yatube/internal/auth"
	"github.com/hitoshi/yatube/internal/cache"
	"github.com/hitoshi/yatube/internal/config"
	"github.com/hitoshi/yatube/internal/database"
	"github.com/hitoshi/yatube/internal/feed"
	"github.com/hitoshi/yatube/internal/handler"
	"github.com/hitoshi/yatube/internal/logger"
	"github.com/hitoshi/yatube/internal/media"
	"github.com/hitoshi/yatube/internal/metrics"
	"github.com/hitoshi/yatube/internal/middleware"
	"github.com/hitoshi/yatube/internal/model"
	"github.com/hitoshi/yatube/internal/render"
	"github.com/hitoshi/yatube/internal/repository"
	"github.com/hitoshi/yatube/internal/security"
	"github.com/hitoshi/yatube/internal/subscription"
	"github.com/hitoshi/yatube/internal/user"
	"github.com/hitoshi/yatube/internal/validation"
	"github.com/hitoshi/yatube/internal/worker/cleanup"
)

// multipartOverhead はアップロード上限に加えて許容するフォーム本体の大きさ。
const multipartOverhead = 1 << 20

// dbConnectAttempts は起動時にDBへの接続を試みる回数。
var dbConnectAttempts = 5

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再設定する
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck と clear-cache は稼働中のサーバーを呼ぶだけなので、フル初期化をスキップする
	switch cmd {
	case CommandHealthcheck:
		return runHealthcheck(localURL(serverPort()))
	case CommandClearCache:
		logger.SetupDefault(w, slog.LevelInfo)
		return runClearCache(localURL(serverPort()), os.Getenv("ADMIN_TOKEN"))
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandCreateCommunity:
		return runCreateCommunity(cfg, args[1:])
	default:
		return runServe(cfg)
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(cfg *config.Config, pool database.PoolConfig) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL, pool)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := database.PingWithRetry(ctx, db, dbConnectAttempts); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// runServe はWebサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDatabase(cfg, database.DefaultPoolConfig())
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	// 2. ページキャッシュ
	pageCache, closeCache, err := cache.New(context.Background(), cfg.CacheURL, cfg.IndexCacheTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize page cache: %w", err)
	}
	defer closeCache()

	// 3. メトリクス
	registry := newRegistry()
	collector := metrics.NewCollector(registry)

	// 4. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	communityRepo := repository.NewPostgresCommunityRepo(db)
	articleRepo := repository.NewPostgresArticleRepo(db)
	commentRepo := repository.NewPostgresCommentRepo(db)
	subRepo := repository.NewPostgresSubscriptionRepo(db)

	// 5. ドメインサービスの初期化
	images := media.NewLocalStore(cfg.MediaRoot, cfg.MediaURL, cfg.MaxUploadSize)
	sanitizer := security.NewTextSanitizer()

	authService := auth.NewService(userRepo, sessionRepo, auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge})
	feedService := feed.NewService(articleRepo, communityRepo, userRepo, subRepo, cfg.PageSize)
	articleService := article.NewService(articleRepo, commentRepo, communityRepo, images, sanitizer)
	subService := subscription.NewService(userRepo, subRepo)
	userService := user.NewService(userRepo, articleRepo, images)

	// 6. テンプレート
	renderer, err := render.New(images.URL)
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}

	// 7. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitLogin),
	)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Renderer:     renderer,
		UserResolver: authService,
		RateLimiter:  rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		MaxBodySize: cfg.MaxUploadSize + multipartOverhead,
		Logger:      slog.Default(),

		FeedService:         feedService,
		ArticleService:      articleService,
		SubscriptionService: subService,
		AuthService:         authService,
		UserService:         userService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		PageCache:      pageCache,
		HealthChecker:  db,
		AdminToken:     cfg.AdminToken,
		Metrics:        collector,
		MetricsHandler: metrics.Handler(registry),

		MediaURL:  cfg.MediaURL,
		MediaRoot: cfg.MediaRoot,
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("web server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down web server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("web server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションの削除をSESSION_CLEANUP_INTERVAL間隔で実行し、
// 削除件数などのメトリクスをWORKER_METRICS_PORTの/metricsで公開する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	db, err := openDatabase(cfg, database.PoolConfig{MaxOpenConns: 2, MaxIdleConns: 1})
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	registry := newRegistry()
	collector := metrics.NewCollector(registry)

	metricsServer := newWorkerMetricsServer(":"+cfg.WorkerMetricsPort, registry)
	go func() {
		slog.Info("worker metrics server starting", slog.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker metrics listen error", slog.String("error", err.Error()))
		}
	}()

	job := cleanup.NewCleanupJob(db, slog.Default(), collector)
	job.Start(ctx, cfg.SessionCleanupInterval)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("worker metrics shutdown failed", slog.String("error", err.Error()))
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// newRegistry はGoランタイムとプロセスのコレクターを登録したレジストリを生成する。
func newRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// newWorkerMetricsServer はワーカーのメトリクスだけを公開するHTTPサーバーを生成する。
func newWorkerMetricsServer(addr string, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler(gatherer))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("version", uint64(version)))
	return nil
}

// runCreateCommunity はコミュニティを1件作成する。
func runCreateCommunity(cfg *config.Config, args []string) error {
	db, err := openDatabase(cfg, database.PoolConfig{MaxOpenConns: 1})
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c, err := createCommunity(ctx, repository.NewPostgresCommunityRepo(db), args)
	if err != nil {
		return err
	}

	slog.Info("コミュニティを作成しました",
		slog.String("id", c.ID),
		slog.String("slug", c.Slug),
		slog.String("title", c.Title),
	)
	return nil
}

// createCommunity は引数 <slug> <title> [description] を検証してコミュニティを保存する。
// 説明は3番目以降の引数を空白で連結したもの。
func createCommunity(ctx context.Context, repo repository.CommunityRepository, args []string) (*model.Community, error) {
	if len(args) < 2 {
		return nil, errors.New("usage: create-community <slug> <title> [description]")
	}

	form := validation.CommunityForm{Slug: args[0], Title: args[1]}
	if len(args) > 2 {
		form.Description = strings.Join(args[2:], " ")
	}
	form.Normalize()

	if errs := validation.Validate(&form); errs.Any() {
		return nil, fmt.Errorf("入力が不正です: %s", formatErrors(errs))
	}

	c := &model.Community{
		ID:          uuid.New().String(),
		Title:       form.Title,
		Slug:        form.Slug,
		Description: form.Description,
		CreatedAt:   time.Now(),
	}
	if err := repo.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewCommunityExistsError(form.Slug)
		}
		return nil, fmt.Errorf("コミュニティの作成に失敗しました: %w", err)
	}
	return c, nil
}

func formatErrors(errs validation.Errors) string {
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+strings.Join(errs[field], " "))
	}
	return strings.Join(parts, "; ")
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(baseURL string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// runClearCache は稼働中のサーバーにページキャッシュの消去を要求する。
func runClearCache(baseURL, token string) error {
	if token == "" {
		return errors.New("ADMIN_TOKEN is not set")
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/admin/cache/clear/", nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("cache clear request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cache clear returned status %d", resp.StatusCode)
	}

	slog.Info("ページキャッシュを消去しました")
	return nil
}

func serverPort() string {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		return port
	}
	return "8080"
}

func localURL(port string) string {
	return "http://localhost:" + port
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}

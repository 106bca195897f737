package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lucasmorforio/ubalerta/internal/auth"
	"github.com/lucasmorforio/ubalerta/internal/config"
	"github.com/lucasmorforio/ubalerta/internal/database"
	"github.com/lucasmorforio/ubalerta/internal/geo"
	"github.com/lucasmorforio/ubalerta/internal/handler"
	"github.com/lucasmorforio/ubalerta/internal/logger"
	"github.com/lucasmorforio/ubalerta/internal/mapfeed"
	"github.com/lucasmorforio/ubalerta/internal/metrics"
	"github.com/lucasmorforio/ubalerta/internal/middleware"
	"github.com/lucasmorforio/ubalerta/internal/moderation"
	"github.com/lucasmorforio/ubalerta/internal/model"
	"github.com/lucasmorforio/ubalerta/internal/repository"
	"github.com/lucasmorforio/ubalerta/internal/security"
	"github.com/lucasmorforio/ubalerta/internal/street"
	"github.com/lucasmorforio/ubalerta/internal/worker/validator"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.Int("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandSeed:
		return runSeed(cfg)
	case CommandImportStreets:
		return runImportStreets(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	streetRepo := repository.NewPostgresStreetRepo(db)
	reportRepo := repository.NewPostgresReportRepo(db)
	flagRepo := repository.NewPostgresFlagRepo(db)

	// 3. セキュリティ・外部APIクライアントの初期化
	ssrfGuard := security.NewSSRFGuard()
	safeClient := ssrfGuard.NewSafeClient(cfg.GeocodeTimeout)
	sanitizer := security.NewTextSanitizer()

	nominatim := geo.NewNominatimClient(safeClient, slog.Default(), cfg.GeocodeRegion)
	overpass := geo.NewOverpassClient(safeClient, slog.Default(), cfg.Municipality)

	// 4. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 5. ドメインサービスの初期化
	oauthProvider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})
	authService := auth.NewService(
		oauthProvider, userRepo, sessionRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)

	moderationService := moderation.NewService(
		streetRepo, reportRepo, flagRepo, userRepo, sessionRepo,
		sanitizer, nominatim, collector,
		moderation.ServiceConfig{
			GeocodeTimeout: cfg.GeocodeTimeout,
			FallbackCenter: model.Coordinate{Lat: cfg.FallbackLat, Lng: cfg.FallbackLng},
		},
	)
	mapFeedService := mapfeed.NewService(reportRepo)
	streetService := street.NewService(streetRepo, overpass)

	// 6. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitReport),
	)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		HealthChecker:     db,
		SessionFinder:     sessionRepo,
		UserFinder:        userRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Logger:       slog.Default(),
		OnHTTPStatus: collector.RecordHTTPStatus,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:         cfg.BaseURL,
			CookieDomain:    cfg.CookieDomain,
			CookieSecure:    cfg.CookieSecure,
			SessionMaxAge:   int(cfg.SessionMaxAge.Seconds()),
			DevLoginEnabled: cfg.DevLogin,
		},

		MapFeedService: mapFeedService,
		StreetService:  streetService,

		ReportService: moderationService,
		AdminService:  moderationService,
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: metrics.SetupMetricsRoute(registry),
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("metrics server starting",
			slog.String("addr", metricsServer.Addr),
		)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := metricsServer.Shutdown(ctx); err != nil {
		slog.Error("metrics server shutdown failed", slog.String("error", err.Error()))
	}
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker は公報検証ワーカーモードで起動する。
// DB接続を開き、公報検証ジョブを定期実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. 公報フィードURLの事前検証
	// 危険なURL（内部ネットワーク宛て等）が設定されたままワーカーが
	// 動き続けないよう、起動時に拒否する。
	ssrfGuard := security.NewSSRFGuard()
	if cfg.BulletinFeedURL != "" {
		if err := ssrfGuard.ValidateURL(cfg.BulletinFeedURL); err != nil {
			return fmt.Errorf("invalid bulletin feed URL: %w", err)
		}
	}

	// 2. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 3. リポジトリの初期化
	streetRepo := repository.NewPostgresStreetRepo(db)
	reportRepo := repository.NewPostgresReportRepo(db)

	// 4. 公報ソースの選択
	// BULLETIN_FEED_URL が未設定の場合は模擬公報ソースを使う。
	var source validator.BulletinSource = validator.MockBulletinSource{}
	if cfg.BulletinFeedURL != "" {
		source = validator.NewRSSBulletinSource(
			ssrfGuard.NewSafeClient(30*time.Second), slog.Default(), cfg.BulletinFeedURL,
		)
	}

	// 5. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: metrics.SetupMetricsRoute(registry),
	}

	// 6. バリデーターの初期化
	bulletinValidator := validator.NewValidator(
		streetRepo, reportRepo, source, collector, slog.Default(),
	)

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	go func() {
		slog.Info("metrics server starting",
			slog.String("addr", metricsServer.Addr),
		)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()

	slog.Info("worker starting",
		slog.Duration("scan_interval", cfg.ScanInterval),
	)

	// 検証ジョブをメインgoroutineで実行（ブロッキング）
	bulletinValidator.Start(ctx, cfg.ScanInterval)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown failed", slog.String("error", err.Error()))
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// seedStreets は自治体の基礎道路データ。
// 既存の同名道路には影響しない。
var seedStreets = []struct {
	name     string
	lat, lng float64
}{
	{"MGC-120 - Km 706", -21.1215, -42.9427},
	{"Ponte Major Siqueira", -21.12356, -42.94520},
	{"MG-447 - Km 1", -21.1350, -42.9215},
	{"MG-447 - Km 8", -21.0850, -42.8950},
	{"Avenida Beira-Rio", -21.1200, -42.9400},
	{"Ponte Major Fusaro", -21.1150, -42.9500},
	{"Avenida Comendador Jacinto Soares de Souza Lima", -21.1221, -42.9410},
	{"Rua Treze de Maio", -21.1245, -42.9433},
}

// runSeed は自治体の基礎道路データを投入する。
// 同名の道路が既に存在する場合はスキップする（冪等）。
func runSeed(cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	streetRepo := repository.NewPostgresStreetRepo(db)

	streets := make([]*model.Street, 0, len(seedStreets))
	for _, s := range seedStreets {
		streets = append(streets, &model.Street{
			ID:   uuid.New().String(),
			Name: s.name,
			Lat:  s.lat,
			Lng:  s.lng,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := streetRepo.UpsertBatch(ctx, streets); err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	slog.Info("street seed completed",
		slog.Int("count", len(streets)),
	)
	return nil
}

// runImportStreets はOverpass APIから自治体内の名称付き道路を全件取り込む。
// 既存の道路・通報データはすべて置き換えられる。
func runImportStreets(cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	streetRepo := repository.NewPostgresStreetRepo(db)

	ssrfGuard := security.NewSSRFGuard()
	overpass := geo.NewOverpassClient(
		ssrfGuard.NewSafeClient(90*time.Second), slog.Default(), cfg.Municipality,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	slog.Info("importing streets from Overpass",
		slog.String("municipality", cfg.Municipality),
	)

	summaries, err := overpass.MunicipalityStreets(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch municipality streets: %w", err)
	}
	if len(summaries) == 0 {
		return fmt.Errorf("no streets found for municipality %q", cfg.Municipality)
	}

	streets := make([]*model.Street, 0, len(summaries))
	for _, s := range summaries {
		streets = append(streets, &model.Street{
			ID:   uuid.New().String(),
			Name: s.Name,
			Lat:  s.Lat,
			Lng:  s.Lng,
		})
	}

	if err := streetRepo.ReplaceAll(ctx, streets); err != nil {
		return fmt.Errorf("street import failed: %w", err)
	}

	slog.Info("street import completed",
		slog.Int("count", len(streets)),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}

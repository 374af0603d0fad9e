package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/harenews/internal/config"
	"github.com/hitoshi/harenews/internal/curation"
	"github.com/hitoshi/harenews/internal/database"
	"github.com/hitoshi/harenews/internal/handler"
	"github.com/hitoshi/harenews/internal/image"
	"github.com/hitoshi/harenews/internal/logger"
	"github.com/hitoshi/harenews/internal/metrics"
	"github.com/hitoshi/harenews/internal/middleware"
	"github.com/hitoshi/harenews/internal/model"
	"github.com/hitoshi/harenews/internal/pipeline"
	"github.com/hitoshi/harenews/internal/repository"
	"github.com/hitoshi/harenews/internal/security"
	"github.com/hitoshi/harenews/internal/source"
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
		slog.String("port", cfg.ServerPort),
		slog.Bool("use_postgres", cfg.UsePostgres()),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandRun:
		return runPipeline(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// openRepos はアーカイブとレビュー待ちキューのリポジトリを初期化する。
// DATABASE_URLが設定されていればPostgres、なければJSONファイルをバックエンドとする。
// Postgresの場合は接続確認まで行い、呼び出し側がdbをCloseする。
func openRepos(cfg *config.Config) (repository.ArchiveRepository, repository.PendingRepository, *sql.DB, error) {
	if !cfg.UsePostgres() {
		slog.Info("using JSON file storage",
			slog.String("archive_path", cfg.ArchivePath),
			slog.String("pending_path", cfg.PendingPath),
		)
		return repository.NewJSONFileArchiveRepo(cfg.ArchivePath),
			repository.NewJSONFilePendingRepo(cfg.PendingPath), nil, nil
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	return repository.NewPostgresArchiveRepo(db), repository.NewPostgresPendingRepo(db), db, nil
}

// buildCurationService はリライト・画像選定・キュレーションサービスを組み立てる。
func buildCurationService(
	cfg *config.Config,
	srcCfg *config.Sources,
	ssrfGuard security.SSRFGuardService,
	archiveRepo repository.ArchiveRepository,
	pendingRepo repository.PendingRepository,
	collector *metrics.Collector,
) *curation.Service {
	if cfg.OpenAIAPIKey == "" {
		slog.Warn("OPENAI_API_KEYが未設定のためリライトは常にフォールバックになります")
	}
	rewriter := curation.NewRewriter(cfg.OpenAIAPIKey, cfg.OpenAIModel)

	fallbacks := make(map[model.Category][]string, len(srcCfg.FallbackImages))
	for category, urls := range srcCfg.FallbackImages {
		fallbacks[model.Category(category)] = urls
	}
	picker := image.NewPicker(
		ssrfGuard.NewSafeClient(cfg.FetchTimeout), ssrfGuard, fallbacks, slog.Default(), nil,
	)

	return curation.NewService(rewriter, picker, pendingRepo, archiveRepo, collector, slog.Default())
}

// buildSources は取得元設定からCandidateSourceのリストを構築する。
// RSS/Atomフィードと検索APIクエリの両方を取得元として扱う。
// NEWSAPI_API_KEYが未設定の場合、検索APIクエリはスキップする。
func buildSources(
	cfg *config.Config,
	srcCfg *config.Sources,
	ssrfGuard security.SSRFGuardService,
) []pipeline.CandidateSource {
	client := ssrfGuard.NewSafeClient(cfg.FetchTimeout)

	sources := make([]pipeline.CandidateSource, 0, len(srcCfg.Feeds)+len(srcCfg.Queries))

	for _, f := range srcCfg.Feeds {
		category := f.Category
		if category == "" {
			category = srcCfg.DefaultCategory
		}
		meta := model.SourceMeta{Name: f.Name, Category: model.Category(category)}
		sources = append(sources, source.NewRSSSource(f.URL, meta, client, ssrfGuard, cfg.FetchMaxSize))
	}

	if len(srcCfg.Queries) > 0 {
		if cfg.NewsAPIKey == "" {
			slog.Warn("NEWSAPI_API_KEYが未設定のため検索APIクエリをスキップします",
				slog.Int("query_count", len(srcCfg.Queries)),
			)
			return sources
		}

		// 全クエリが同一APIキーを共有するため、レートリミッターも共有する
		limiter := source.NewNewsAPILimiter()
		apiClient := &http.Client{Timeout: cfg.FetchTimeout}
		for _, q := range srcCfg.Queries {
			category := q.Category
			if category == "" {
				category = srcCfg.DefaultCategory
			}
			meta := model.SourceMeta{Name: "NewsAPI", Category: model.Category(category)}
			sources = append(sources, source.NewNewsAPISource(cfg.NewsAPIKey, q.Query, meta, apiClient, limiter))
		}
	}

	return sources
}

// runPipeline はパイプラインを1回実行するモードで起動する。
// 取得、正規化、採点、重複排除、アーカイブ照合、選抜、リライト登録まで行い、
// 登録件数をログに出力して終了する。
func runPipeline(cfg *config.Config) error {
	srcCfg, err := config.LoadSources(cfg.SourcesConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load sources config: %w", err)
	}

	archiveRepo, pendingRepo, db, err := openRepos(cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewTextSanitizer()

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	normalizer := pipeline.NewNormalizer(model.Category(srcCfg.DefaultCategory), sanitizer, time.Now)
	scorer := pipeline.NewScorer(pipeline.ScorerConfig{
		PositiveKeywords: srcCfg.Scoring.PositiveKeywords,
		NegativeKeywords: srcCfg.Scoring.NegativeKeywords,
		TrustedSources:   srcCfg.Scoring.TrustedSources,
		PositivePoint:    srcCfg.Scoring.PositivePoint,
		NegativePenalty:  srcCfg.Scoring.NegativePenalty,
		TrustBonus:       srcCfg.Scoring.TrustBonus,
	})
	matcherCfg := pipeline.MatcherConfig{
		TitlePrefixLength:   srcCfg.ArchiveMatch.TitlePrefixLength,
		SignificantWordLen:  srcCfg.ArchiveMatch.SignificantWordLen,
		MinSignificantWords: srcCfg.ArchiveMatch.MinSignificantWords,
		OverlapThreshold:    srcCfg.ArchiveMatch.OverlapThreshold,
	}

	sources := buildSources(cfg, srcCfg, ssrfGuard)
	if len(sources) == 0 {
		slog.Warn("取得元が1件も設定されていません",
			slog.String("sources_config", cfg.SourcesConfigPath),
		)
	}

	pipe := pipeline.New(sources, normalizer, scorer, matcherCfg, archiveRepo, collector, slog.Default(), pipeline.Options{
		DedupePrefixLength: srcCfg.Dedupe.TitlePrefixLength,
		MaxCandidates:      srcCfg.Selector.MaxCandidates,
		SourceTimeout:      cfg.FetchTimeout,
		MaxConcurrent:      cfg.FetchMaxConcurrent,
	})

	curationSvc := buildCurationService(cfg, srcCfg, ssrfGuard, archiveRepo, pendingRepo, collector)

	// SIGINT/SIGTERMで実行中のフェッチ・リライトを中断する
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("pipeline run starting",
		slog.Int("source_count", len(sources)),
		slog.Int("max_concurrent", cfg.FetchMaxConcurrent),
	)

	candidates, err := pipe.Run(ctx)
	if err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	created, err := curationSvc.Enqueue(ctx, candidates)
	if err != nil {
		return fmt.Errorf("failed to enqueue candidates: %w", err)
	}

	slog.Info("pipeline run completed",
		slog.Int("selected", len(candidates)),
		slog.Int("enqueued", created),
	)
	return nil
}

// runServe はレビューAPIサーバーモードで起動する。
// ストレージを開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	srcCfg, err := config.LoadSources(cfg.SourcesConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load sources config: %w", err)
	}

	archiveRepo, pendingRepo, db, err := openRepos(cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	ssrfGuard := security.NewSSRFGuard()

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	curationSvc := buildCurationService(cfg, srcCfg, ssrfGuard, archiveRepo, pendingRepo, collector)

	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitPerMinute))
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		ReviewService: curationSvc,
		RateLimiter:   rateLimiter,
		Logger:        slog.Default(),
		Gatherer:      reg,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("review API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down review API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("review API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if !cfg.UsePostgres() {
		return fmt.Errorf("DATABASE_URL is not set: migrate requires a Postgres backend")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /healthz エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/healthz", port)
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

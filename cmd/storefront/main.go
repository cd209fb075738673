package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"topdivers/internal/api"
	"topdivers/internal/apiclient"
	"topdivers/internal/auth"
	"topdivers/internal/config"
	"topdivers/internal/database"
	"topdivers/internal/domain"
	"topdivers/internal/events"
	"topdivers/internal/google"
	"topdivers/internal/logging"
	"topdivers/internal/metrics"
	"topdivers/internal/notify"
	"topdivers/internal/repository"
	"topdivers/internal/service"
	"topdivers/internal/sitemap"
	"topdivers/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer (func() { _ = repository.Close(redisClient) })()
	}
	authRepo := initAuthRepository(cfg, redisClient, &logger)

	startMetrics(ctx, cfg, &logger)

	bus := events.NewEventBus()

	notifier, err := notify.NewFromToken(cfg.Telegram.BotToken, cfg.Telegram.StaffChatID, cfg.Telegram.Debug, logging.Component(&logger, "notify"))
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without staff notifications")
	} else if notifier.Enabled() {
		notifier.Subscribe(bus)
	}

	var ledgerQueue api.LedgerQueue
	if sheet := initInvoiceSheet(ctx, cfg, &logger); sheet != nil {
		ledger := worker.NewLedgerWorker(db, sheet, redisClient, worker.RetryPolicy{}, logging.Component(&logger, "ledger"))
		ledger.Subscribe(bus)
		go ledger.Start(ctx)
		ledgerQueue = ledger
	}

	backup := database.NewBackupService(db, cfg.Backup, logging.Component(&logger, "backup"))
	go backup.Start(ctx)

	client := apiclient.NewClient(cfg.Backend.APIURL, cfg.Backend.Timeout, &logger)
	if redisClient != nil {
		client.UseRedisCache(redisClient, cfg.Backend.CacheTTL)
	}

	pages, err := loadPages(cfg.Sitemap.PagesFile, &logger)
	if err != nil {
		return err
	}

	cookie := auth.CookieConfig{
		Name:   cfg.Auth.CookieName,
		Secure: cfg.Auth.CookieSecure,
		MaxAge: cfg.Auth.CookieMaxAge,
	}
	verifier := auth.NewVerifier(auth.VerifierConfig{
		JWTSecret:         cfg.Auth.JWTSecret,
		VerifyInterval:    cfg.Auth.VerifyInterval,
		RecentLoginWindow: cfg.Auth.RecentLoginWindow,
	}, client, authRepo, logging.Component(&logger, "auth"))
	if cfg.Auth.JWTSecret == "" {
		logger.Warn().Msg("auth.jwt_secret is empty, token signatures are not checked locally")
	}

	checks := map[string]func(context.Context) error{
		"database": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return repository.Ping(ctx, redisClient) }
	}

	serviceLogger := logging.Component(&logger, "service")
	server := api.NewServer(cfg.HTTP, cfg.Auth, api.Deps{
		Auth:     client,
		Catalog:  service.NewCatalogService(client, "", serviceLogger),
		Content:  service.NewContentService(client),
		Checkout: service.NewCheckoutService(client, bus, serviceLogger),
		Payments: service.NewPaymentService(client),
		Coupons:  service.NewCouponService(client),
		Admin:    service.NewAdminService(client, bus, serviceLogger),
		Sitemap:  sitemap.NewGenerator(cfg.HTTP.PublicBaseURL, pages, client, cfg.Sitemap.Timeout, logging.Component(&logger, "sitemap")),
		Gate:     auth.NewGate(cookie, verifier, logging.Component(&logger, "gate")),
		Cookie:   cookie,
		Attempts: authRepo,
		Ledger:   ledgerQueue,
		Checks:   checks,

		ExportDir: cfg.Exports.Path,
	}, logging.Component(&logger, "http"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	logger.Info().Int("http_port", cfg.HTTP.Port).Str("backend", cfg.Backend.APIURL).Msg("storefront started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("storefront stopped")
	return nil
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "storefront-main").Logger()

	return cfg, logger, closer, nil
}

// loadPages reads the static sitemap routes. No file means the defaults.
func loadPages(path string, logger *zerolog.Logger) ([]sitemap.Page, error) {
	if path == "" {
		return sitemap.DefaultPages, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn().Str("pages_file", path).Msg("sitemap pages file not found, using defaults")
		return sitemap.DefaultPages, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read pages: %w", err)
	}

	var pagesConfig struct {
		Pages []sitemap.Page `yaml:"pages"`
	}
	if err := yaml.Unmarshal(data, &pagesConfig); err != nil {
		logger.Error().Err(err).Str("pages_file", path).Msg("parse pages")
		return nil, err
	}
	return pagesConfig.Pages, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initAuthRepository keeps verification stamps and login attempts in Redis
// with an in-process fallback.
func initAuthRepository(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.AuthRepository {
	memory := repository.NewMemoryAuthRepository(cfg.Auth.VerifyInterval)
	if redisClient == nil {
		return memory
	}
	primary := repository.NewRedisAuthRepository(redisClient, cfg.Auth.VerifyInterval)
	return repository.NewFailoverAuthRepository(primary, memory, logging.Component(logger, "auth-repo"))
}

func initInvoiceSheet(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *google.InvoiceSheet {
	if cfg.Google.CredentialsFile == "" || cfg.Google.InvoicesSpreadsheetID == "" {
		return nil
	}

	sheet, err := google.NewInvoiceSheet(ctx, cfg.Google.CredentialsFile, cfg.Google.InvoicesSpreadsheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without invoice ledger")
		return nil
	}
	if err := sheet.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets unreachable, continuing without invoice ledger")
		return nil
	}
	if err := sheet.EnsureHeader(ctx); err != nil {
		logger.Warn().Err(err).Msg("invoice ledger header check failed")
	}
	if err := sheet.WarmUpCache(ctx); err != nil {
		logger.Warn().Err(err).Msg("invoice ledger cache warm-up failed")
	}

	logger.Info().Msg("google sheets connected")
	return sheet
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

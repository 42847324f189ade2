package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/saturnino-fabrica-de-software/chamada/internal/api"
	"github.com/saturnino-fabrica-de-software/chamada/internal/audit"
	"github.com/saturnino-fabrica-de-software/chamada/internal/cache"
	"github.com/saturnino-fabrica-de-software/chamada/internal/config"
	"github.com/saturnino-fabrica-de-software/chamada/internal/database"
	"github.com/saturnino-fabrica-de-software/chamada/internal/extractor"
	"github.com/saturnino-fabrica-de-software/chamada/internal/face"
	"github.com/saturnino-fabrica-de-software/chamada/internal/gallery"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ledger"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ledger/filestore"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ledger/lock"
	"github.com/saturnino-fabrica-de-software/chamada/internal/notify"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ratelimit"
	"github.com/saturnino-fabrica-de-software/chamada/internal/registry"
	"github.com/saturnino-fabrica-de-software/chamada/internal/repository"
	"github.com/saturnino-fabrica-de-software/chamada/internal/service"
	"github.com/saturnino-fabrica-de-software/chamada/internal/webhook"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ws"
)

const (
	encodingCacheSize = 4096
	janitorInterval   = 10 * time.Minute
	encodingCacheTTL  = 90 * 24 * time.Hour
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting Chamada API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("ledger", cfg.LedgerBackend),
		slog.String("registry", cfg.RegistryBackend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database (only for postgres backends)
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		poolCfg := database.DefaultPoolConfig(cfg.DatabaseURL)
		if cfg.AutoMigrate {
			dbName, err := database.DatabaseName(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			version, err := database.MigrateUp(poolCfg, dbName)
			if err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}
			logger.Info("database migrated", slog.Uint64("version", uint64(version)))
		}

		pool, err = database.NewPgxPool(ctx, poolCfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()
	}

	// Face models, loaded once and shared by every request
	models, err := face.NewModels(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to load face models: %w", err)
	}
	defer func() { _ = models.Close() }()
	logger.Info("face models loaded", slog.String("model", models.ID), slog.Int("dim", models.Dim))

	ext := extractor.New(models)

	// Encoding cache
	var encodingCache cache.EncodingCache = cache.Nop{}
	var pgCache *cache.PGCache
	switch cfg.EncodingCache {
	case "memory":
		encodingCache = cache.NewMemory(encodingCacheSize)
	case "postgres":
		pgCache = cache.NewPGCache(pool)
		encodingCache = pgCache
	case "none", "":
	default:
		return fmt.Errorf("unknown encoding cache: %s (supported: memory, postgres, none)", cfg.EncodingCache)
	}

	// Gallery
	galleryStore := gallery.NewStore(filepath.Join(cfg.DataDir, "gallery"), ext, logger).
		WithCache(encodingCache).
		WithWorkers(cfg.Workers())
	migrateLegacyGallery(ctx, galleryStore, logger)

	// Ledger
	var ledgerStore ledger.Store
	switch cfg.LedgerBackend {
	case "file", "":
		locker, closeLocker, err := newLocker(cfg)
		if err != nil {
			return err
		}
		defer closeLocker()
		ledgerStore = filestore.New(filepath.Join(cfg.DataDir, "attendance"), locker, logger).
			WithLocation(cfg.Location())
	case "postgres":
		ledgerStore = repository.NewAttendanceRepository(pool)
	default:
		return fmt.Errorf("unknown ledger backend: %s (supported: file, postgres)", cfg.LedgerBackend)
	}

	// Student registry
	var students registry.Registry
	switch cfg.RegistryBackend {
	case "file", "":
		students = registry.NewFileStore(filepath.Join(cfg.DataDir, "students.csv"), logger)
	case "postgres":
		students = repository.NewStudentRepository(pool)
	default:
		return fmt.Errorf("unknown registry backend: %s (supported: file, postgres)", cfg.RegistryBackend)
	}

	// Notifications
	sender, err := newSender(cfg, logger)
	if err != nil {
		return err
	}
	dispatcher := notify.NewDispatcher(students, sender, logger)

	// Scan limiter: shared through postgres when available
	var scanLimiter ratelimit.Limiter = ratelimit.NewMemory(time.Minute)
	var pgLimiter *ratelimit.RateLimiter
	if pool != nil && cfg.ScanLimitPerMinute > 0 {
		pgLimiter = ratelimit.NewRateLimiter(pool, time.Minute)
		scanLimiter = pgLimiter
	}
	go runJanitor(ctx, logger, pgLimiter, pgCache)

	auditLogger := audit.NewSlogLogger(logger)
	hub := ws.NewHub()

	recognition := service.NewRecognitionService(ext, galleryStore, logger).
		WithThreshold(cfg.MatchThreshold).
		WithWorkers(cfg.Workers()).
		WithLimiter(scanLimiter, cfg.ScanLimitPerMinute).
		WithAudit(auditLogger)

	attendance := service.NewAttendanceService(ledgerStore, logger).
		WithNotifier(dispatcher).
		WithBroadcaster(hub).
		WithGallery(galleryStore).
		WithAudit(auditLogger).
		WithLocation(cfg.Location())

	enrollment := service.NewEnrollmentService(galleryStore, students, logger).
		WithAudit(auditLogger)

	deps := &api.Dependencies{
		Recognition:  recognition,
		Attendance:   attendance,
		Enrollment:   enrollment,
		Hub:          hub,
		RateLimitMax: cfg.RateLimitMax,
	}
	if pool != nil {
		deps.DB = pool
	}

	// Setup router
	router := api.NewRouter(logger, deps)
	router.Setup()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	done := make(chan error, 1)
	go func() { done <- router.Shutdown() }()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out")
	}

	logger.Info("server stopped")
	return nil
}

// newLocker returns the lock guarding file ledger scopes. Redis is needed
// when several API instances share DATA_DIR.
func newLocker(cfg *config.Config) (lock.Locker, func(), error) {
	if cfg.LockBackend != "redis" {
		return lock.NewLocal(), func() {}, nil
	}

	opts, err := goredis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return lock.NewRedis(client, "chamada:ledger:"), func() { _ = client.Close() }, nil
}

func newSender(cfg *config.Config, logger *slog.Logger) (notify.Sender, error) {
	switch cfg.Notifier {
	case "log", "":
		return notify.NewLogSender(logger), nil
	case "smtp":
		s, err := notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.EmailUser,
			Password: cfg.EmailPass,
		})
		if err != nil {
			return nil, fmt.Errorf("smtp notifier: %w", err)
		}
		return s, nil
	case "webhook":
		if cfg.WebhookURL == "" {
			return nil, fmt.Errorf("webhook notifier: WEBHOOK_URL is required")
		}
		return notify.NewWebhookSender(webhook.NewClient(webhook.Config{
			URL:    cfg.WebhookURL,
			Secret: cfg.WebhookSecret,
		})), nil
	case "none":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown notifier: %s (supported: log, smtp, webhook, none)", cfg.Notifier)
}

// migrateLegacyGallery rewrites Name_RegNo images into the sidecar layout.
func migrateLegacyGallery(ctx context.Context, g *gallery.Store, logger *slog.Logger) {
	classes, err := g.Classes(ctx)
	if err != nil {
		logger.Warn("gallery scan failed", slog.Any("error", err))
		return
	}
	for _, class := range classes {
		n, err := g.Migrate(ctx, class)
		if err != nil {
			logger.Warn("gallery migration failed", slog.String("class", class), slog.Any("error", err))
			continue
		}
		if n > 0 {
			logger.Info("gallery migrated", slog.String("class", class), slog.Int("images", n))
		}
	}
}

// runJanitor drops stale scan counters and old cached encodings.
func runJanitor(ctx context.Context, logger *slog.Logger, limiter *ratelimit.RateLimiter, pgCache *cache.PGCache) {
	if limiter == nil && pgCache == nil {
		return
	}

	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if limiter != nil {
				if n, err := limiter.CleanupExpired(ctx); err != nil {
					logger.Warn("scan counter cleanup failed", slog.Any("error", err))
				} else if n > 0 {
					logger.Debug("scan counters removed", slog.Int64("count", n))
				}
			}
			if pgCache != nil {
				if n, err := pgCache.CleanupOlderThan(ctx, encodingCacheTTL); err != nil {
					logger.Warn("encoding cache cleanup failed", slog.Any("error", err))
				} else if n > 0 {
					logger.Debug("cached encodings removed", slog.Int64("count", n))
				}
			}
		}
	}
}

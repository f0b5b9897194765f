package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/home-designer/backend/internal/api"
	"github.com/home-designer/backend/internal/config"
	"github.com/home-designer/backend/internal/logging"
	"github.com/home-designer/backend/internal/metrics"
	"github.com/home-designer/backend/internal/models"
	"github.com/home-designer/backend/internal/parser"
	"github.com/home-designer/backend/internal/session"
	"github.com/home-designer/backend/internal/storage"
	"github.com/home-designer/backend/internal/upload"
	"github.com/home-designer/backend/internal/vision"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const configFileName = "home-designer.yaml"

func main() {
	configPath, err := resolveConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve config path: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)
	defer logger.Sync()

	if err := run(cfg, configPath, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

// resolveConfigPath prefers HOME_DESIGNER_CONFIG, then the file next to the executable.
func resolveConfigPath() (string, error) {
	if p := os.Getenv("HOME_DESIGNER_CONFIG"); p != "" {
		return p, nil
	}
	exePath, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(exePath), configFileName), nil
}

func run(cfg *config.AppConfig, configPath string, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("creating directories: %w", err)
	}

	collector := metrics.NewCollector("home_designer", logger)

	catalog, err := loadCatalog(cfg.Catalog.Path)
	if err != nil {
		return err
	}

	assetStore, err := storage.NewLocalStore(cfg.Storage.AssetsDirectory, int64(cfg.Storage.MaxUploadSizeMB)<<20)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	sessions := session.NewManager(session.Options{
		MaxSessions: cfg.Session.MaxSessions,
		IDStyle:     cfg.Session.IDStyle,
		Logger:      logger,
		Metrics:     collector,
	})
	go sessions.RunCleanup(ctx, cfg.CleanupInterval(), cfg.SessionIdleTimeout())

	visionClient := vision.NewClient(cfg.Vision,
		vision.WithLogger(logger),
		vision.WithMetrics(collector),
		vision.WithCatalog(catalog))
	if !visionClient.Configured() {
		logger.Warn("vision api key not set; command and import endpoints will return 503")
	}

	imports := upload.NewManager(visionClient, upload.Options{
		JobTimeout: cfg.VisionTimeout() * 2,
		Logger:     logger,
		Metrics:    collector,
	})
	defer imports.Shutdown()
	go cleanupImports(ctx, imports, cfg.CleanupInterval(), cfg.ImportJobMaxAge(), logger)

	e := echo.New()
	limiter := api.SetupMiddleware(e, cfg.Server, logger, collector)
	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Store:            assetStore,
		Sessions:         sessions,
		Imports:          imports,
		Interpreter:      visionClient,
		VisionConfigured: visionClient.Configured(),
		Catalog:          catalog,
		Metrics:          collector,
		Logger:           logger,
		Version:          Version,
	}), collector, limiter)

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      e,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	logger.Info("home designer server starting",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("config", configPath),
		zap.String("listen", cfg.GetServerAddr()),
		zap.String("data_dir", cfg.Storage.DataDirectory),
		zap.Int("catalog_furniture", len(catalog.Furniture)))

	errCh := make(chan error, 1)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

func loadCatalog(path string) (*models.Catalog, error) {
	if path == "" {
		return parser.DefaultCatalog(), nil
	}
	catalog, err := parser.ParseCatalog(path)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	return catalog, nil
}

func cleanupImports(ctx context.Context, imports *upload.Manager, interval, maxAge time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := imports.CleanupOldJobs(maxAge); n > 0 {
				logger.Debug("removed finished import jobs", zap.Int("count", n))
			}
		}
	}
}

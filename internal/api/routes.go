// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/home-designer/backend/internal/config"
	"github.com/home-designer/backend/internal/metrics"
	"github.com/home-designer/backend/internal/models"
	"github.com/home-designer/backend/internal/session"
	"github.com/home-designer/backend/internal/storage"
	"github.com/home-designer/backend/internal/upload"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store            storage.Store
	Sessions         *session.Manager
	Imports          *upload.Manager
	Interpreter      CommandInterpreter
	VisionConfigured bool
	Catalog          *models.Catalog
	Metrics          *metrics.Collector
	Logger           *zap.Logger
	Version          string
}

// Handlers holds all handler instances
type Handlers struct {
	Health  HealthHandler
	Catalog CatalogHandler
	Asset   AssetHandler
	Session SessionHandler
	Scene   SceneHandler
	Preview PreviewHandler
	Command CommandHandler
	Import  ImportHandler
	Events  EventHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		Health:  NewHealthHandler(deps.Version, deps.Sessions, deps.VisionConfigured),
		Catalog: NewCatalogHandler(deps.Catalog),
		Asset:   NewAssetHandler(deps.Store),
		Session: NewSessionHandler(deps.Sessions),
		Scene:   NewSceneHandler(deps.Sessions),
		Preview: NewPreviewHandler(deps.Sessions),
		Command: NewCommandHandler(deps.Sessions, deps.Store, deps.Interpreter, logger),
		Import:  NewImportHandler(deps.Sessions, deps.Store, deps.Imports),
		Events:  NewEventHandler(deps.Sessions, logger),
	}
}

// RegisterRoutes registers all API routes with the Echo instance. limiter guards
// the endpoints that call the model service; nil means no limit.
func RegisterRoutes(e *echo.Echo, handlers *Handlers, m *metrics.Collector, limiter echo.MiddlewareFunc) {
	if limiter == nil {
		limiter = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}

	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)
	apiGroup.GET("/catalog", handlers.Catalog.HandleGetCatalog)

	// Image assets
	assetGroup := apiGroup.Group("/assets")
	assetGroup.POST("", handlers.Asset.HandleUploadAsset)
	assetGroup.GET("", handlers.Asset.HandleGetRecentAssets)
	assetGroup.GET("/:id", handlers.Asset.HandleGetAsset)
	assetGroup.DELETE("/:id", handlers.Asset.HandleDeleteAsset)

	// Editing sessions
	sessionGroup := apiGroup.Group("/sessions")
	sessionGroup.POST("", handlers.Session.HandleCreateSession)
	sessionGroup.GET("", handlers.Session.HandleListSessions)
	sessionGroup.GET("/:id", handlers.Session.HandleGetSession)
	sessionGroup.DELETE("/:id", handlers.Session.HandleDeleteSession)
	sessionGroup.POST("/:id/keepalive", handlers.Session.HandleSessionKeepAlive)

	// Canonical scene
	sessionGroup.GET("/:id/scene", handlers.Scene.HandleGetScene)
	sessionGroup.GET("/:id/scene/msgpack", handlers.Scene.HandleGetSceneMsgpack)
	sessionGroup.PUT("/:id/scene", handlers.Scene.HandleLoadScene)
	sessionGroup.DELETE("/:id/scene", handlers.Scene.HandleClearScene)
	sessionGroup.POST("/:id/operations", handlers.Scene.HandleApplyOperations)
	sessionGroup.POST("/:id/rooms", handlers.Scene.HandleAddRoom)
	sessionGroup.POST("/:id/walls", handlers.Scene.HandleAddWall)
	sessionGroup.POST("/:id/objects", handlers.Scene.HandleAddObject)
	sessionGroup.DELETE("/:id/objects/:objectId", handlers.Scene.HandleRemoveObject)
	sessionGroup.PUT("/:id/materials/:surfaceId", handlers.Scene.HandleUpdateMaterial)

	// Preview / commit
	sessionGroup.GET("/:id/preview", handlers.Preview.HandleGetPreview)
	sessionGroup.PUT("/:id/preview", handlers.Preview.HandleSetPreview)
	sessionGroup.DELETE("/:id/preview", handlers.Preview.HandleCancelPreview)
	sessionGroup.POST("/:id/preview/operations", handlers.Preview.HandlePreviewOperations)
	sessionGroup.POST("/:id/preview/commit", handlers.Preview.HandleCommitPreview)

	// Model-backed flows
	sessionGroup.POST("/:id/command", handlers.Command.HandleCommand, limiter)
	sessionGroup.POST("/:id/imports", handlers.Import.HandleStartImport, limiter)
	apiGroup.GET("/imports/:jobId", handlers.Import.HandleGetImport)

	// WebSocket change feed
	sessionGroup.GET("/:id/events", handlers.Events.HandleEvents)
}

// SetupMiddleware configures common middleware. The returned limiter is meant for
// RegisterRoutes.
func SetupMiddleware(e *echo.Echo, cfg config.ServerConfig, logger *zap.Logger, m *metrics.Collector) echo.MiddlewareFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	e.HideBanner = true
	e.HidePort = true

	// Use custom error handler
	e.HTTPErrorHandler = NewErrorHandler(logger, false)

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 * 1024,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("panic recovered",
				zap.String("path", c.Path()),
				zap.Error(err),
				zap.ByteString("stack", stack))
			return err
		},
	}))
	e.Use(RequestLogger(logger))
	e.Use(MetricsMiddleware(m))

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: isWebSocket,
	}))

	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	if cfg.EnableCORS {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: parseOrigins(cfg.AllowOrigins),
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		}))
	}

	return RateLimiter(cfg.RateLimit, cfg.RateBurst, logger.With(zap.String("component", "ratelimit")))
}

// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/home-designer/backend/internal/models"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// CatalogHandler serves the furniture vocabulary and material palettes
type CatalogHandler interface {
	HandleGetCatalog(c echo.Context) error
}

// AssetHandler handles image asset operations
type AssetHandler interface {
	HandleUploadAsset(c echo.Context) error
	HandleGetRecentAssets(c echo.Context) error
	HandleGetAsset(c echo.Context) error
	HandleDeleteAsset(c echo.Context) error
}

// SessionHandler handles editing session lifecycle
type SessionHandler interface {
	HandleCreateSession(c echo.Context) error
	HandleListSessions(c echo.Context) error
	HandleGetSession(c echo.Context) error
	HandleDeleteSession(c echo.Context) error
	HandleSessionKeepAlive(c echo.Context) error
}

// SceneHandler handles reads and mutations of the canonical scene document
type SceneHandler interface {
	HandleGetScene(c echo.Context) error
	HandleGetSceneMsgpack(c echo.Context) error
	HandleLoadScene(c echo.Context) error
	HandleClearScene(c echo.Context) error
	HandleApplyOperations(c echo.Context) error
	HandleAddRoom(c echo.Context) error
	HandleAddWall(c echo.Context) error
	HandleAddObject(c echo.Context) error
	HandleRemoveObject(c echo.Context) error
	HandleUpdateMaterial(c echo.Context) error
}

// PreviewHandler handles the preview/commit cycle
type PreviewHandler interface {
	HandleGetPreview(c echo.Context) error
	HandleSetPreview(c echo.Context) error
	HandlePreviewOperations(c echo.Context) error
	HandleCommitPreview(c echo.Context) error
	HandleCancelPreview(c echo.Context) error
}

// CommandHandler turns natural-language edit requests into a preview
type CommandHandler interface {
	HandleCommand(c echo.Context) error
}

// ImportHandler handles floor-plan import jobs
type ImportHandler interface {
	HandleStartImport(c echo.Context) error
	HandleGetImport(c echo.Context) error
}

// EventHandler streams session change notifications
type EventHandler interface {
	HandleEvents(c echo.Context) error
}

// CommandInterpreter is the part of the model client the command endpoint needs.
// This allows mocking in tests
type CommandInterpreter interface {
	InterpretCommand(ctx context.Context, command string, current *models.SceneDocument, referenceImage string) (*models.CommandResponse, []models.OperationDiagnostic, error)
}

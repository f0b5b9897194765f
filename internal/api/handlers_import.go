// handlers_import.go - Floor-plan import handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/home-designer/backend/internal/session"
	"github.com/home-designer/backend/internal/storage"
	"github.com/home-designer/backend/internal/upload"
)

// ImportHandlerImpl implements the ImportHandler interface
type ImportHandlerImpl struct {
	sessions *session.Manager
	store    storage.Store
	imports  *upload.Manager
}

// NewImportHandler creates a new import handler
func NewImportHandler(sessions *session.Manager, store storage.Store, imports *upload.Manager) ImportHandler {
	return &ImportHandlerImpl{
		sessions: sessions,
		store:    store,
		imports:  imports,
	}
}

// HandleStartImport stores the image if it was sent inline and starts an async
// import whose result becomes the session's preview
func (h *ImportHandlerImpl) HandleStartImport(c echo.Context) error {
	sess, err := lookupSession(c, h.sessions)
	if err != nil {
		return err
	}
	var req ImportRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if err := req.validate(); err != nil {
		return err
	}

	assetID := req.AssetID
	var image string
	if assetID == "" {
		data, err := storage.DecodeBase64Image(req.Image)
		if err != nil {
			return err
		}
		info, err := h.store.SaveBytes(req.Name, data)
		if err != nil {
			return err
		}
		assetID = info.ID
	}
	if image, err = h.store.ReadDataURL(assetID); err != nil {
		return err
	}

	job := h.imports.StartJob(sess, assetID, image)
	return c.JSON(http.StatusAccepted, job)
}

// HandleGetImport returns the status of an import job
func (h *ImportHandlerImpl) HandleGetImport(c echo.Context) error {
	id := c.Param("jobId")
	job, ok := h.imports.GetJob(id)
	if !ok {
		return NewNotFoundError("import job", id)
	}
	return c.JSON(http.StatusOK, job)
}

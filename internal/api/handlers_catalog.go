// handlers_catalog.go - Furniture and material catalog handler
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/home-designer/backend/internal/models"
)

// CatalogHandlerImpl implements the CatalogHandler interface
type CatalogHandlerImpl struct {
	catalog *models.Catalog
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalog *models.Catalog) CatalogHandler {
	return &CatalogHandlerImpl{catalog: catalog}
}

// HandleGetCatalog returns the furniture vocabulary with footprints, the
// material types and the colour palettes
func (h *CatalogHandlerImpl) HandleGetCatalog(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"version":       h.catalog.Version,
		"furniture":     h.catalog.Furniture,
		"materialTypes": models.MaterialTypes,
		"palettes":      h.catalog.Palettes,
	})
}

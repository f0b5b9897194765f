// handlers_assets.go - Image asset handlers
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/home-designer/backend/internal/storage"
)

const defaultRecentAssets = 20

// AssetHandlerImpl implements the AssetHandler interface
type AssetHandlerImpl struct {
	store storage.Store
}

// NewAssetHandler creates a new asset handler
func NewAssetHandler(store storage.Store) AssetHandler {
	return &AssetHandlerImpl{store: store}
}

// HandleUploadAsset stores a base64 image (floor plan, reference photo or texture)
func (h *AssetHandlerImpl) HandleUploadAsset(c echo.Context) error {
	var req UploadAssetRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if err := req.validate(); err != nil {
		return err
	}
	data, err := storage.DecodeBase64Image(req.Data)
	if err != nil {
		return err
	}
	info, err := h.store.SaveBytes(req.Name, data)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, info)
}

// HandleGetRecentAssets returns the most recently uploaded assets
func (h *AssetHandlerImpl) HandleGetRecentAssets(c echo.Context) error {
	limit := defaultRecentAssets
	if l := c.QueryParam("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			return NewFieldError("limit", "must be a positive integer")
		}
		limit = n
	}
	assets, err := h.store.List(limit)
	if err != nil {
		return NewInternalError("Failed to list assets", err)
	}
	return c.JSON(http.StatusOK, assets)
}

// HandleGetAsset returns asset metadata
func (h *AssetHandlerImpl) HandleGetAsset(c echo.Context) error {
	info, err := h.store.Get(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, info)
}

// HandleDeleteAsset removes an asset
func (h *AssetHandlerImpl) HandleDeleteAsset(c echo.Context) error {
	if err := h.store.Delete(c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

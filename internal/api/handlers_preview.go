// handlers_preview.go - Preview/commit handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/home-designer/backend/internal/session"
)

// PreviewHandlerImpl implements the PreviewHandler interface
type PreviewHandlerImpl struct {
	sessions *session.Manager
}

// NewPreviewHandler creates a new preview handler
func NewPreviewHandler(sessions *session.Manager) PreviewHandler {
	return &PreviewHandlerImpl{sessions: sessions}
}

// HandleGetPreview returns the pending preview. Document is null when the
// session is clean.
func (h *PreviewHandlerImpl) HandleGetPreview(c echo.Context) error {
	sess, err := lookupSession(c, h.sessions)
	if err != nil {
		return err
	}
	snap := sess.Snapshot()
	return c.JSON(http.StatusOK, SceneResponse{
		SessionID: sess.ID(),
		Revision:  snap.Revision,
		State:     snap.State,
		Document:  snap.Preview,
	})
}

// HandleSetPreview validates the body and installs it as the preview
func (h *PreviewHandlerImpl) HandleSetPreview(c echo.Context) error {
	sess, err := lookupSession(c, h.sessions)
	if err != nil {
		return err
	}
	raw, err := decodeRawBody(c)
	if err != nil {
		return err
	}
	report, err := sess.SetPreview(raw)
	if err != nil {
		return err
	}
	snap := sess.Snapshot()
	return c.JSON(http.StatusOK, SceneResponse{
		SessionID: sess.ID(),
		Revision:  snap.Revision,
		State:     snap.State,
		Document:  snap.Preview,
		Defaults:  report.Defaults,
	})
}

// HandlePreviewOperations applies {operations:[...]} to a fork of the canonical
// document and installs the fork as the preview
func (h *PreviewHandlerImpl) HandlePreviewOperations(c echo.Context) error {
	sess, err := lookupSession(c, h.sessions)
	if err != nil {
		return err
	}
	ops, malformed, err := decodeOperationsBody(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newOperationsResponse(sess.PreviewOperations(ops), malformed))
}

// HandleCommitPreview makes the preview canonical. Committing a clean session
// changes nothing.
func (h *PreviewHandlerImpl) HandleCommitPreview(c echo.Context) error {
	sess, err := lookupSession(c, h.sessions)
	if err != nil {
		return err
	}
	committed := sess.CommitPreview()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"committed": committed,
		"scene":     canonicalResponse(sess, nil),
	})
}

// HandleCancelPreview discards the preview
func (h *PreviewHandlerImpl) HandleCancelPreview(c echo.Context) error {
	sess, err := lookupSession(c, h.sessions)
	if err != nil {
		return err
	}
	cancelled := sess.CancelPreview()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"cancelled": cancelled,
		"scene":     canonicalResponse(sess, nil),
	})
}

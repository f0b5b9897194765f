// handlers_command.go - Natural-language command handler
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/home-designer/backend/internal/session"
	"github.com/home-designer/backend/internal/storage"
)

// CommandHandlerImpl implements the CommandHandler interface
type CommandHandlerImpl struct {
	sessions    *session.Manager
	store       storage.Store
	interpreter CommandInterpreter
	logger      *zap.Logger
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(sessions *session.Manager, store storage.Store, interpreter CommandInterpreter, logger *zap.Logger) CommandHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandHandlerImpl{
		sessions:    sessions,
		store:       store,
		interpreter: interpreter,
		logger:      logger.With(zap.String("component", "command")),
	}
}

// HandleCommand sends the command and the current scene to the command model and
// installs the resulting operations as a preview of that scene. If the canonical
// document changed while the model was working the reply is discarded with 409.
func (h *CommandHandlerImpl) HandleCommand(c echo.Context) error {
	sess, err := lookupSession(c, h.sessions)
	if err != nil {
		return err
	}
	var req CommandRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if err := req.validate(); err != nil {
		return err
	}

	refImage := req.ReferenceImage
	if req.ReferenceAssetID != "" {
		if refImage, err = h.store.ReadDataURL(req.ReferenceAssetID); err != nil {
			return err
		}
	}

	snap := sess.Snapshot()
	sess.SetLoading(true, "Processing command...")
	resp, malformed, err := h.interpreter.InterpretCommand(c.Request().Context(), req.Command, snap.Scene, refImage)
	if err != nil {
		h.logger.Warn("command failed",
			zap.String("session", sess.ID()),
			zap.Error(err))
		sess.SetError("Failed to process command: " + err.Error())
		return err
	}
	sess.SetLoading(false, "")

	res, err := sess.PreviewOperationsAt(snap.Revision, resp.Operations)
	if err != nil {
		h.logger.Warn("command reply is stale",
			zap.String("session", sess.ID()),
			zap.Int64("revision", snap.Revision))
		return err
	}
	out := newOperationsResponse(res, malformed)
	out.Explanation = resp.Explanation

	h.logger.Info("command previewed",
		zap.String("session", sess.ID()),
		zap.Int("operations", len(resp.Operations)),
		zap.Int("diagnostics", len(res.Diagnostics)),
		zap.Int("malformed", len(malformed)))
	return c.JSON(http.StatusOK, out)
}

// handlers_scene.go - Canonical scene document handlers
package api

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/home-designer/backend/internal/engine"
	"github.com/home-designer/backend/internal/models"
	"github.com/home-designer/backend/internal/scene"
	"github.com/home-designer/backend/internal/session"
)

// SceneResponse is a document together with the session state it was read from.
type SceneResponse struct {
	SessionID string                `json:"sessionId"`
	Revision  int64                 `json:"revision"`
	State     models.PreviewState   `json:"state"`
	Document  *models.SceneDocument `json:"document"`
	Defaults  []scene.Defaulted     `json:"defaults,omitempty"`
}

// OperationsResponse reports a batch run. Malformed entries are indexed into the
// submitted list; diagnostics are indexed into the decoded operations.
type OperationsResponse struct {
	Explanation string                       `json:"explanation,omitempty"`
	Revision    int64                        `json:"revision"`
	State       models.PreviewState          `json:"state"`
	Document    *models.SceneDocument        `json:"document"`
	Diagnostics []models.OperationDiagnostic `json:"diagnostics"`
	Malformed   []models.OperationDiagnostic `json:"malformed"`
	Added       []engine.Added               `json:"added"`
}

func newOperationsResponse(out session.Outcome, malformed []models.OperationDiagnostic) OperationsResponse {
	if malformed == nil {
		malformed = []models.OperationDiagnostic{}
	}
	return OperationsResponse{
		Revision:    out.Revision,
		State:       out.State,
		Document:    out.Document,
		Diagnostics: out.Diagnostics,
		Malformed:   malformed,
		Added:       out.Added,
	}
}

func canonicalResponse(sess *session.Session, report *scene.Report) SceneResponse {
	snap := sess.Snapshot()
	resp := SceneResponse{
		SessionID: sess.ID(),
		Revision:  snap.Revision,
		State:     snap.State,
		Document:  snap.Scene,
	}
	if report != nil {
		resp.Defaults = report.Defaults
	}
	return resp
}

// SceneHandlerImpl implements the SceneHandler interface
type SceneHandlerImpl struct {
	sessions *session.Manager
}

// NewSceneHandler creates a new scene handler
func NewSceneHandler(sessions *session.Manager) SceneHandler {
	return &SceneHandlerImpl{sessions: sessions}
}

// HandleGetScene returns the canonical document as JSON
func (h *SceneHandlerImpl) HandleGetScene(c echo.Context) error {
	sess, err := lookupSession(c, h.sessions)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, canonicalResponse(sess, nil))
}

// HandleGetSceneMsgpack returns the canonical document as MessagePack.
// Field names match the JSON form.
func (h *SceneHandlerImpl) HandleGetSceneMsgpack(c echo.Context) error {
	sess, err := lookupSession(c, h.sessions)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(canonicalResponse(sess, nil)); err != nil {
		return NewInternalError("Failed to encode scene", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", buf.Bytes())
}

// HandleLoadScene validates the body and installs it as the canonical document
func (h *SceneHandlerImpl) HandleLoadScene(c echo.Context) error {
	sess, err := lookupSession(c, h.sessions)
	if err != nil {
		return err
	}
	raw, err := decodeRawBody(c)
	if err != nil {
		return err
	}
	report, err := sess.LoadScene(raw)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, canonicalResponse(sess, report))
}

// HandleClearScene resets the canonical document to the empty scene
func (h *SceneHandlerImpl) HandleClearScene(c echo.Context) error {
	sess, err := lookupSession(c, h.sessions)
	if err != nil {
		return err
	}
	sess.ClearScene()
	return c.JSON(http.StatusOK, canonicalResponse(sess, nil))
}

// HandleApplyOperations runs {operations:[...]} against the canonical document
func (h *SceneHandlerImpl) HandleApplyOperations(c echo.Context) error {
	sess, err := lookupSession(c, h.sessions)
	if err != nil {
		return err
	}
	ops, malformed, err := decodeOperationsBody(c)
	if err != nil {
		return err
	}
	out, err := sess.Apply(ops)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newOperationsResponse(out, malformed))
}

// HandleAddRoom appends a room
func (h *SceneHandlerImpl) HandleAddRoom(c echo.Context) error {
	sess, err := lookupSession(c, h.sessions)
	if err != nil {
		return err
	}
	op, err := decodeTypedOperation(c, models.ActionAddRoom, nil)
	if err != nil {
		return err
	}
	room, err := sess.AddRoom(op.(models.AddRoom))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, room)
}

// HandleAddWall appends a wall
func (h *SceneHandlerImpl) HandleAddWall(c echo.Context) error {
	sess, err := lookupSession(c, h.sessions)
	if err != nil {
		return err
	}
	op, err := decodeTypedOperation(c, models.ActionAddWall, nil)
	if err != nil {
		return err
	}
	wall, err := sess.AddWall(op.(models.AddWall))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, wall)
}

// HandleAddObject places a furniture item
func (h *SceneHandlerImpl) HandleAddObject(c echo.Context) error {
	sess, err := lookupSession(c, h.sessions)
	if err != nil {
		return err
	}
	op, err := decodeTypedOperation(c, models.ActionAddObject, nil)
	if err != nil {
		return err
	}
	obj, err := sess.AddObject(op.(models.AddObject))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, obj)
}

// HandleRemoveObject removes a furniture item. Unknown ids succeed.
func (h *SceneHandlerImpl) HandleRemoveObject(c echo.Context) error {
	sess, err := lookupSession(c, h.sessions)
	if err != nil {
		return err
	}
	if err := sess.RemoveObject(c.Param("objectId")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleUpdateMaterial sets the material of one surface
func (h *SceneHandlerImpl) HandleUpdateMaterial(c echo.Context) error {
	sess, err := lookupSession(c, h.sessions)
	if err != nil {
		return err
	}
	surfaceID := c.Param("surfaceId")
	op, err := decodeMaterialOperation(c, surfaceID)
	if err != nil {
		return err
	}
	update := op.(models.UpdateMaterial)
	if err := sess.UpdateMaterial(update.SurfaceID, update.Material); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"surfaceId": update.SurfaceID,
		"material":  update.Material,
	})
}

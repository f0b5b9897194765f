// requests.go - Request body decoding and validation
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/home-designer/backend/internal/models"
	"github.com/home-designer/backend/internal/parser"
	"github.com/home-designer/backend/internal/scene"
)

// decodeRawBody decodes a JSON body into a loosely typed tree for the scene validator.
func decodeRawBody(c echo.Context) (any, error) {
	var raw any
	if err := json.NewDecoder(c.Request().Body).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, NewBadRequestError("request body is empty", nil)
		}
		return nil, NewBadRequestError("invalid JSON body", err)
	}
	return raw, nil
}

// decodeOperationsBody reads {operations:[...]} with the same decoder the command
// model's replies go through. Malformed entries come back as diagnostics.
func decodeOperationsBody(c echo.Context) ([]models.Operation, []models.OperationDiagnostic, error) {
	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, nil, NewBadRequestError("failed to read request body", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil, NewBadRequestError("request body is empty", nil)
	}
	resp, diags, err := parser.ParseCommandResponse(data)
	if err != nil {
		return nil, nil, NewBadRequestError("invalid operations body", err)
	}
	return resp.Operations, diags, nil
}

// readObjectBody decodes a body that must be a JSON object.
func readObjectBody(c echo.Context) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.NewDecoder(c.Request().Body).Decode(&fields); err != nil || fields == nil {
		if err == nil || errors.Is(err, io.EOF) {
			return nil, NewBadRequestError("request body must be a JSON object", nil)
		}
		return nil, NewBadRequestError("invalid JSON body", err)
	}
	return fields, nil
}

// decodeTypedOperation reads a single operation body for an endpoint that already
// names the action, merging in path-supplied fields.
func decodeTypedOperation(c echo.Context, action models.Action, extra map[string]string) (models.Operation, error) {
	fields, err := readObjectBody(c)
	if err != nil {
		return nil, err
	}
	for k, v := range extra {
		fields[k] = quote(v)
	}
	return buildOperation(action, fields)
}

// decodeMaterialOperation reads a material body and targets it at surfaceID.
func decodeMaterialOperation(c echo.Context, surfaceID string) (models.Operation, error) {
	fields, err := readObjectBody(c)
	if err != nil {
		return nil, err
	}
	material, err := json.Marshal(fields)
	if err != nil {
		return nil, NewInternalError("failed to encode material", err)
	}
	return buildOperation(models.ActionUpdateMaterial, map[string]json.RawMessage{
		"surfaceId": quote(surfaceID),
		"material":  material,
	})
}

func buildOperation(action models.Action, fields map[string]json.RawMessage) (models.Operation, error) {
	fields["action"] = quote(string(action))
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, NewInternalError("failed to encode operation", err)
	}

	op, err := parser.GetGlobalRegistry().DecodeOperation(data)
	if err != nil {
		var oe *parser.OperationError
		if errors.As(err, &oe) {
			return nil, &APIError{
				Status:  http.StatusBadRequest,
				Code:    "INVALID_FIELD",
				Message: oe.Error(),
				Path:    oe.Field,
			}
		}
		return nil, NewBadRequestError("invalid operation", err)
	}
	if err := checkVocabulary(op); err != nil {
		return nil, err
	}
	return op, nil
}

// checkVocabulary rejects furniture and material names a loaded scene would fail on.
// Geometry is left to scene validation, as with model-issued batches.
func checkVocabulary(op models.Operation) error {
	switch o := op.(type) {
	case models.AddObject:
		if !o.Type.Valid() {
			return invalidValue("type", "unknown furniture type %q", o.Type)
		}
	case models.UpdateMaterial:
		if !o.Material.Type.Valid() {
			return invalidValue("material.type", "unknown material type %q", o.Material.Type)
		}
		if o.Material.Color != "" && !models.IsValidHexColor(o.Material.Color) {
			return invalidValue("material.color", "color %q is not a hex colour", o.Material.Color)
		}
	}
	return nil
}

func invalidValue(path, format string, args ...any) error {
	return &scene.ValidationError{Kind: scene.KindInvalidValue, Path: path, Message: fmt.Sprintf(format, args...)}
}

func quote(s string) json.RawMessage {
	data, _ := json.Marshal(s)
	return data
}

// UploadAssetRequest is a base64 image upload.
type UploadAssetRequest struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

func (r *UploadAssetRequest) validate() error {
	if r.Data == "" {
		return NewFieldError("data", "is required")
	}
	if r.Name == "" {
		r.Name = "image"
	}
	return nil
}

// CommandRequest asks the command model to edit the scene.
type CommandRequest struct {
	Command          string `json:"command"`
	ReferenceImage   string `json:"referenceImage,omitempty"`
	ReferenceAssetID string `json:"referenceAssetId,omitempty"`
}

func (r *CommandRequest) validate() error {
	r.Command = strings.TrimSpace(r.Command)
	if r.Command == "" {
		return NewFieldError("command", "is required")
	}
	if r.ReferenceImage != "" && r.ReferenceAssetID != "" {
		return NewBadRequestError("referenceImage and referenceAssetId are mutually exclusive", nil)
	}
	return nil
}

// ImportRequest starts a floor-plan import from inline image data or a stored asset.
type ImportRequest struct {
	Image   string `json:"image,omitempty"`
	AssetID string `json:"assetId,omitempty"`
	Name    string `json:"name,omitempty"`
}

func (r *ImportRequest) validate() error {
	switch {
	case r.Image == "" && r.AssetID == "":
		return NewBadRequestError("one of image or assetId is required", nil)
	case r.Image != "" && r.AssetID != "":
		return NewBadRequestError("image and assetId are mutually exclusive", nil)
	}
	if r.Name == "" {
		r.Name = "floor-plan"
	}
	return nil
}

// bindJSON decodes a typed request body.
func bindJSON(c echo.Context, v any) error {
	if err := json.NewDecoder(c.Request().Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return NewBadRequestError("request body is empty", nil)
		}
		return NewBadRequestError("invalid JSON body", err)
	}
	return nil
}

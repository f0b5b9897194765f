package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/home-designer/backend/internal/models"
)

func decodeAddObject(f map[string]json.RawMessage) (models.Operation, error) {
	var op models.AddObject
	typ, err := requiredString(f, "type")
	if err != nil {
		return nil, err
	}
	op.Type = models.FurnitureType(typ)
	pos, err := requiredNumbers(f, "position", 3)
	if err != nil {
		return nil, err
	}
	op.Position = models.Point3{pos[0], pos[1], pos[2]}
	if op.Rotation, err = optionalNumber(f, "rotation"); err != nil {
		return nil, err
	}
	return op, nil
}

func decodeRemoveObject(f map[string]json.RawMessage) (models.Operation, error) {
	id, err := requiredString(f, "objectId")
	if err != nil {
		return nil, err
	}
	return models.RemoveObject{ObjectID: id}, nil
}

func decodeUpdateMaterial(f map[string]json.RawMessage) (models.Operation, error) {
	surface, err := requiredString(f, "surfaceId")
	if err != nil {
		return nil, err
	}
	raw, ok := present(f, "material")
	if !ok {
		return nil, missing("material")
	}
	var mat struct {
		Type    *string `json:"type"`
		Color   string  `json:"color"`
		Texture string  `json:"texture"`
	}
	if err := json.Unmarshal(raw, &mat); err != nil {
		return nil, &OperationError{Field: "material", Message: "material must be an object with string fields"}
	}
	if mat.Type == nil || *mat.Type == "" {
		return nil, missing("material.type")
	}
	return models.UpdateMaterial{
		SurfaceID: surface,
		Material:  models.Material{Type: models.MaterialType(*mat.Type), Color: mat.Color, Texture: mat.Texture},
	}, nil
}

func decodeAddWall(f map[string]json.RawMessage) (models.Operation, error) {
	var op models.AddWall
	from, err := requiredNumbers(f, "from", 2)
	if err != nil {
		return nil, err
	}
	to, err := requiredNumbers(f, "to", 2)
	if err != nil {
		return nil, err
	}
	op.From = models.Point2{from[0], from[1]}
	op.To = models.Point2{to[0], to[1]}
	if op.Height, err = optionalNumber(f, "height"); err != nil {
		return nil, err
	}
	if op.Thickness, err = optionalNumber(f, "thickness"); err != nil {
		return nil, err
	}
	return op, nil
}

func decodeAddRoom(f map[string]json.RawMessage) (models.Operation, error) {
	var op models.AddRoom
	name, err := requiredString(f, "name")
	if err != nil {
		return nil, err
	}
	op.Name = name
	raw, ok := present(f, "bounds")
	if !ok {
		return nil, missing("bounds")
	}
	var corners [][]float64
	if err := json.Unmarshal(raw, &corners); err != nil || len(corners) != 2 || len(corners[0]) != 2 || len(corners[1]) != 2 {
		return nil, &OperationError{Field: "bounds", Message: "bounds must be [[x1,z1],[x2,z2]]"}
	}
	op.Bounds = models.Bounds{{corners[0][0], corners[0][1]}, {corners[1][0], corners[1][1]}}
	if op.Height, err = optionalNumber(f, "height"); err != nil {
		return nil, err
	}
	return op, nil
}

func present(f map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	raw, ok := f[key]
	if !ok || isNull(raw) {
		return nil, false
	}
	return raw, true
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func missing(field string) *OperationError {
	return &OperationError{Field: field, Message: field + " is required"}
}

func requiredString(f map[string]json.RawMessage, key string) (string, error) {
	raw, ok := present(f, key)
	if !ok {
		return "", missing(key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &OperationError{Field: key, Message: key + " must be a string"}
	}
	if s == "" {
		return "", missing(key)
	}
	return s, nil
}

func requiredNumbers(f map[string]json.RawMessage, key string, n int) ([]float64, error) {
	raw, ok := present(f, key)
	if !ok {
		return nil, missing(key)
	}
	var nums []float64
	if err := json.Unmarshal(raw, &nums); err != nil || len(nums) != n {
		return nil, &OperationError{Field: key, Message: fmt.Sprintf("%s must be an array of %d numbers", key, n)}
	}
	return nums, nil
}

func optionalNumber(f map[string]json.RawMessage, key string) (*float64, error) {
	raw, ok := present(f, key)
	if !ok {
		return nil, nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, &OperationError{Field: key, Message: key + " must be a number"}
	}
	return &v, nil
}

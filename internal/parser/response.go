package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/home-designer/backend/internal/models"
)

// ErrInvalidResponse wraps every model response that cannot be used at all.
var ErrInvalidResponse = errors.New("invalid model response")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidResponse, fmt.Sprintf(format, args...))
}

// ExtractJSON returns the JSON object inside a model reply. Replies are normally
// bare JSON; fenced ```json blocks and leading prose are tolerated.
func ExtractJSON(content string) []byte {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "{") {
		return []byte(content)
	}

	if idx := strings.Index(content, "```json"); idx != -1 {
		start := idx + len("```json")
		if end := strings.Index(content[start:], "```"); end != -1 {
			return []byte(strings.TrimSpace(content[start : start+end]))
		}
	}

	if idx := strings.Index(content, "```"); idx != -1 {
		start := idx + len("```")
		// Skip language tag if present on same line
		if nl := strings.Index(content[start:], "\n"); nl != -1 {
			start = start + nl + 1
		}
		if end := strings.Index(content[start:], "```"); end != -1 {
			return []byte(strings.TrimSpace(content[start : start+end]))
		}
	}

	if start, end := strings.Index(content, "{"), strings.LastIndex(content, "}"); start != -1 && end > start {
		return []byte(content[start : end+1])
	}
	return []byte(content)
}

// ParseCommandResponse decodes {explanation, operations[]} with the global registry.
func ParseCommandResponse(data []byte) (*models.CommandResponse, []models.OperationDiagnostic, error) {
	return globalRegistry.ParseCommandResponse(data)
}

// ParseCommandResponse decodes a command-model reply. Unknown actions are kept as
// models.UnknownOperation so the engine reports them in sequence; known actions
// with missing or malformed fields are dropped here with a malformed_operation
// diagnostic. Only an unreadable envelope is an error.
func (r *Registry) ParseCommandResponse(data []byte) (*models.CommandResponse, []models.OperationDiagnostic, error) {
	var envelope struct {
		Explanation json.RawMessage   `json:"explanation"`
		Operations  []json.RawMessage `json:"operations"`
	}
	if err := json.Unmarshal(ExtractJSON(string(data)), &envelope); err != nil {
		return nil, nil, invalid("command response: %v", err)
	}

	resp := &models.CommandResponse{Operations: make([]models.Operation, 0, len(envelope.Operations))}
	if len(envelope.Explanation) > 0 && !isNull(envelope.Explanation) {
		if err := json.Unmarshal(envelope.Explanation, &resp.Explanation); err != nil {
			return nil, nil, invalid("command response: explanation must be a string")
		}
	}

	diags := make([]models.OperationDiagnostic, 0)
	for i, raw := range envelope.Operations {
		op, err := r.DecodeOperation(raw)
		if err != nil {
			d := models.OperationDiagnostic{
				Index:   i,
				Kind:    models.DiagnosticMalformedOperation,
				Message: err.Error(),
			}
			var oe *OperationError
			if errors.As(err, &oe) {
				d.Action = oe.Action
			}
			diags = append(diags, d)
			continue
		}
		resp.Operations = append(resp.Operations, op)
	}
	return resp, diags, nil
}

// ParseFloorPlanResult decodes {preview, sceneDsl}. A missing sceneDsl becomes the
// empty scene and missing objects/materials/version are filled in, matching what
// the floor-plan function always returned. The scene itself is validated later.
func ParseFloorPlanResult(data []byte) (*models.FloorPlanResult, error) {
	var envelope struct {
		Preview  *json.RawMessage `json:"preview"`
		SceneDSL json.RawMessage  `json:"sceneDsl"`
	}
	if err := json.Unmarshal(ExtractJSON(string(data)), &envelope); err != nil {
		return nil, invalid("floor plan response: %v", err)
	}

	result := &models.FloorPlanResult{}
	if envelope.Preview != nil && !isNull(*envelope.Preview) {
		var preview struct {
			RoomCount *float64 `json:"roomCount"`
			TotalSqFt *float64 `json:"totalSqFt"`
			Rooms     []string `json:"rooms"`
		}
		if err := json.Unmarshal(*envelope.Preview, &preview); err != nil {
			return nil, invalid("floor plan preview: %v", err)
		}
		if preview.RoomCount != nil {
			result.Preview.RoomCount = int(*preview.RoomCount)
		}
		result.Preview.TotalSqFt = preview.TotalSqFt
		result.Preview.Rooms = preview.Rooms
	}

	dsl := map[string]any{}
	if len(envelope.SceneDSL) > 0 && !isNull(envelope.SceneDSL) {
		if err := json.Unmarshal(envelope.SceneDSL, &dsl); err != nil {
			return nil, invalid("floor plan sceneDsl must be an object")
		}
	}
	for key, def := range map[string]func() any{
		"version":   func() any { return models.SceneVersion },
		"rooms":     func() any { return []any{} },
		"walls":     func() any { return []any{} },
		"openings":  func() any { return []any{} },
		"objects":   func() any { return []any{} },
		"materials": func() any { return map[string]any{} },
	} {
		if v, ok := dsl[key]; !ok || v == nil || v == "" {
			dsl[key] = def()
		}
	}
	result.SceneDSL = dsl

	if result.Preview.Rooms == nil {
		result.Preview.Rooms = roomNames(dsl)
	}
	if result.Preview.RoomCount == 0 {
		result.Preview.RoomCount = len(result.Preview.Rooms)
	}
	return result, nil
}

// roomNames recovers a preview room list from the scene when the model left it out.
func roomNames(dsl map[string]any) []string {
	names := make([]string, 0)
	rooms, _ := dsl["rooms"].([]any)
	for _, r := range rooms {
		if m, ok := r.(map[string]any); ok {
			if name, ok := m["name"].(string); ok && name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

// ParseClassification decodes {type, confidence, details}. Unknown categories map
// to "other" and confidence is clamped into [0,1].
func ParseClassification(data []byte) (*models.Classification, error) {
	var raw struct {
		Type       string   `json:"type"`
		Confidence *float64 `json:"confidence"`
		Details    string   `json:"details"`
	}
	if err := json.Unmarshal(ExtractJSON(string(data)), &raw); err != nil {
		return nil, invalid("classification response: %v", err)
	}

	c := &models.Classification{
		Type:    models.ImageCategory(strings.ToLower(strings.TrimSpace(raw.Type))),
		Details: raw.Details,
	}
	if !c.Type.Valid() {
		c.Type = models.CategoryOther
	}
	if raw.Confidence != nil {
		c.Confidence = clamp(*raw.Confidence, 0, 1)
	}
	return c, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package parser

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/home-designer/backend/internal/models"
)

// DecodeFunc turns the fields of one operation object into a typed operation.
type DecodeFunc func(fields map[string]json.RawMessage) (models.Operation, error)

// Registry maps action tags onto operation decoders.
type Registry struct {
	mu       sync.RWMutex
	decoders map[models.Action]DecodeFunc
}

// Global registry instance
var globalRegistry = NewRegistry()

// NewRegistry returns a registry that knows the five built-in actions.
func NewRegistry() *Registry {
	r := &Registry{decoders: make(map[models.Action]DecodeFunc)}
	r.Register(models.ActionAddObject, decodeAddObject)
	r.Register(models.ActionRemoveObject, decodeRemoveObject)
	r.Register(models.ActionUpdateMaterial, decodeUpdateMaterial)
	r.Register(models.ActionAddWall, decodeAddWall)
	r.Register(models.ActionAddRoom, decodeAddRoom)
	return r
}

// GetGlobalRegistry returns the singleton registry.
func GetGlobalRegistry() *Registry {
	return globalRegistry
}

// Register adds or replaces the decoder for an action.
func (r *Registry) Register(action models.Action, fn DecodeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[action] = fn
}

// Actions lists the registered action tags in sorted order.
func (r *Registry) Actions() []models.Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Action, 0, len(r.decoders))
	for a := range r.decoders {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DecodeOperation decodes one operation object. Unregistered actions come back as
// models.UnknownOperation with a nil error; a missing action tag or a bad field
// is an *OperationError.
func (r *Registry) DecodeOperation(data json.RawMessage) (models.Operation, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, &OperationError{Message: "operation is not a JSON object"}
	}

	var action string
	raw, ok := fields["action"]
	if !ok || isNull(raw) {
		return nil, &OperationError{Field: "action", Message: "action is required"}
	}
	if err := json.Unmarshal(raw, &action); err != nil {
		return nil, &OperationError{Field: "action", Message: "action must be a string"}
	}

	r.mu.RLock()
	fn, known := r.decoders[models.Action(action)]
	r.mu.RUnlock()
	if !known {
		return models.UnknownOperation{Name: action, Raw: append(json.RawMessage(nil), data...)}, nil
	}

	op, err := fn(fields)
	if err != nil {
		if oe, ok := err.(*OperationError); ok {
			oe.Action = action
			return nil, oe
		}
		return nil, &OperationError{Action: action, Message: err.Error()}
	}
	return op, nil
}

// OperationError describes why a known operation could not be decoded.
type OperationError struct {
	Action  string
	Field   string
	Message string
}

func (e *OperationError) Error() string {
	switch {
	case e.Action != "" && e.Field != "":
		return fmt.Sprintf("%s.%s: %s", e.Action, e.Field, e.Message)
	case e.Action != "":
		return fmt.Sprintf("%s: %s", e.Action, e.Message)
	}
	return e.Message
}

package models

import "encoding/json"

// Action is the tag carried by every operation in its "action" field.
type Action string

const (
	ActionAddObject      Action = "add_object"
	ActionRemoveObject   Action = "remove_object"
	ActionUpdateMaterial Action = "update_material"
	ActionAddWall        Action = "add_wall"
	ActionAddRoom        Action = "add_room"
)

// Operation is a single mutation request against a scene document.
// The set of implementations is closed: AddObject, RemoveObject, UpdateMaterial,
// AddWall, AddRoom and UnknownOperation.
type Operation interface {
	Action() Action
	isOperation()
}

// AddObject appends a placed object with a fresh id.
type AddObject struct {
	Type     FurnitureType `json:"type"`
	Position Point3        `json:"position"`
	Rotation *float64      `json:"rotation,omitempty"`
}

// RemoveObject drops the object with ObjectID. Missing ids are a no-op.
type RemoveObject struct {
	ObjectID string `json:"objectId"`
}

// UpdateMaterial sets or overwrites the material of one surface.
type UpdateMaterial struct {
	SurfaceID string   `json:"surfaceId"`
	Material  Material `json:"material"`
}

// AddWall appends a wall with a fresh id.
type AddWall struct {
	From      Point2   `json:"from"`
	To        Point2   `json:"to"`
	Height    *float64 `json:"height,omitempty"`
	Thickness *float64 `json:"thickness,omitempty"`
}

// AddRoom appends a room with a fresh id.
type AddRoom struct {
	Name   string   `json:"name"`
	Bounds Bounds   `json:"bounds"`
	Height *float64 `json:"height,omitempty"`
}

// UnknownOperation holds an operation whose action tag is not recognised.
// It is kept in the batch so the engine can report it in sequence.
type UnknownOperation struct {
	Name string
	Raw  json.RawMessage
}

func (AddObject) Action() Action { return ActionAddObject }
func (RemoveObject) Action() Action { return ActionRemoveObject }
func (UpdateMaterial) Action() Action { return ActionUpdateMaterial }
func (AddWall) Action() Action { return ActionAddWall }
func (AddRoom) Action() Action { return ActionAddRoom }
func (u UnknownOperation) Action() Action { return Action(u.Name) }

func (AddObject) isOperation() {}
func (RemoveObject) isOperation() {}
func (UpdateMaterial) isOperation() {}
func (AddWall) isOperation() {}
func (AddRoom) isOperation() {}
func (UnknownOperation) isOperation() {}

// Float returns a pointer to v, for the optional operation fields.
func Float(v float64) *float64 {
	return &v
}

func (o AddObject) MarshalJSON() ([]byte, error) {
	type alias AddObject
	return json.Marshal(struct {
		Action Action `json:"action"`
		alias
	}{ActionAddObject, alias(o)})
}

func (o RemoveObject) MarshalJSON() ([]byte, error) {
	type alias RemoveObject
	return json.Marshal(struct {
		Action Action `json:"action"`
		alias
	}{ActionRemoveObject, alias(o)})
}

func (o UpdateMaterial) MarshalJSON() ([]byte, error) {
	type alias UpdateMaterial
	return json.Marshal(struct {
		Action Action `json:"action"`
		alias
	}{ActionUpdateMaterial, alias(o)})
}

func (o AddWall) MarshalJSON() ([]byte, error) {
	type alias AddWall
	return json.Marshal(struct {
		Action Action `json:"action"`
		alias
	}{ActionAddWall, alias(o)})
}

func (o AddRoom) MarshalJSON() ([]byte, error) {
	type alias AddRoom
	return json.Marshal(struct {
		Action Action `json:"action"`
		alias
	}{ActionAddRoom, alias(o)})
}

func (u UnknownOperation) MarshalJSON() ([]byte, error) {
	if len(u.Raw) > 0 {
		return u.Raw, nil
	}
	return json.Marshal(map[string]string{"action": u.Name})
}

// DiagnosticKind classifies a non-fatal per-operation problem.
type DiagnosticKind string

const (
	DiagnosticUnknownOperation   DiagnosticKind = "unknown_operation"
	DiagnosticMalformedOperation DiagnosticKind = "malformed_operation"
)

// OperationDiagnostic reports an operation that was skipped. Index is the position
// of the operation in its batch.
type OperationDiagnostic struct {
	Index   int            `json:"index"`
	Action  string         `json:"action"`
	Kind    DiagnosticKind `json:"kind"`
	Message string         `json:"message"`
}

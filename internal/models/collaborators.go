package models

// CommandResponse is what the command-interpretation model returns for a
// natural-language edit request.
type CommandResponse struct {
	Explanation string      `json:"explanation"`
	Operations  []Operation `json:"operations"`
}

// FloorPlanPreview is the quick summary shown to the user before a parsed floor plan
// is accepted.
type FloorPlanPreview struct {
	RoomCount int      `json:"roomCount"`
	TotalSqFt *float64 `json:"totalSqFt,omitempty"`
	Rooms     []string `json:"rooms"`
}

// FloorPlanResult is what the floor-plan model returns. SceneDSL is left loosely typed
// until it has been validated into a SceneDocument.
type FloorPlanResult struct {
	Preview  FloorPlanPreview `json:"preview"`
	SceneDSL map[string]any   `json:"sceneDsl"`
}

// ImageCategory is the classifier's verdict on an uploaded image.
type ImageCategory string

const (
	CategoryFloorPlan ImageCategory = "floor_plan"
	CategoryFurniture ImageCategory = "furniture"
	CategoryMaterial  ImageCategory = "material"
	CategoryRoomPhoto ImageCategory = "room_photo"
	CategoryOther     ImageCategory = "other"
)

// Valid reports whether c is one of the known categories.
func (c ImageCategory) Valid() bool {
	switch c {
	case CategoryFloorPlan, CategoryFurniture, CategoryMaterial, CategoryRoomPhoto, CategoryOther:
		return true
	}
	return false
}

// Classification is the classifier response.
type Classification struct {
	Type       ImageCategory `json:"type"`
	Confidence float64       `json:"confidence"`
	Details    string        `json:"details"`
}

// IsFloorPlan is the only branch the import flow takes on a classification.
func (c Classification) IsFloorPlan() bool {
	return c.Type == CategoryFloorPlan
}

// Package models contains domain types for the Home Designer scene backend.
package models

import "sort"

// SceneVersion is the format marker written into every scene document.
const SceneVersion = "1.0"

// Default dimensions, in feet.
const (
	DefaultWallHeight    = 9.0
	DefaultWallThickness = 0.5
	DefaultRoomHeight    = 9.0
	DefaultRotation      = 0.0
)

// Point2 is a point on the ground plane as [x, z]. 1 unit = 1 foot.
type Point2 [2]float64

// Point3 is a point in scene space as [x, y, z].
type Point3 [3]float64

// Bounds are two opposite corners of an axis-aligned rectangle on the ground plane.
type Bounds [2]Point2

// Width returns the extent along x.
func (b Bounds) Width() float64 {
	w := b[1][0] - b[0][0]
	if w < 0 {
		return -w
	}
	return w
}

// Depth returns the extent along z.
func (b Bounds) Depth() float64 {
	d := b[1][1] - b[0][1]
	if d < 0 {
		return -d
	}
	return d
}

// Area returns the rectangle area in square feet.
func (b Bounds) Area() float64 {
	return b.Width() * b.Depth()
}

// OpeningType is the kind of hole cut into a wall.
type OpeningType string

const (
	OpeningDoor   OpeningType = "door"
	OpeningWindow OpeningType = "window"
)

// FurnitureType is one of the fixed furniture vocabulary entries.
type FurnitureType string

const (
	FurnitureSofa        FurnitureType = "sofa"
	FurnitureArmchair    FurnitureType = "armchair"
	FurnitureDiningChair FurnitureType = "dining_chair"
	FurnitureCoffeeTable FurnitureType = "coffee_table"
	FurnitureDiningTable FurnitureType = "dining_table"
	FurnitureDesk        FurnitureType = "desk"
	FurnitureBookshelf   FurnitureType = "bookshelf"
	FurnitureCabinet     FurnitureType = "cabinet"
	FurnitureQueenBed    FurnitureType = "queen_bed"
	FurnitureSingleBed   FurnitureType = "single_bed"
)

// FurnitureTypes lists the vocabulary in display order.
var FurnitureTypes = []FurnitureType{
	FurnitureSofa,
	FurnitureArmchair,
	FurnitureDiningChair,
	FurnitureCoffeeTable,
	FurnitureDiningTable,
	FurnitureDesk,
	FurnitureBookshelf,
	FurnitureCabinet,
	FurnitureQueenBed,
	FurnitureSingleBed,
}

// Valid reports whether t belongs to the furniture vocabulary.
func (t FurnitureType) Valid() bool {
	for _, ft := range FurnitureTypes {
		if ft == t {
			return true
		}
	}
	return false
}

// MaterialType is the finish applied to a surface.
type MaterialType string

const (
	MaterialPaint     MaterialType = "paint"
	MaterialWood      MaterialType = "wood"
	MaterialTile      MaterialType = "tile"
	MaterialCarpet    MaterialType = "carpet"
	MaterialWallpaper MaterialType = "wallpaper"
)

// MaterialTypes lists the supported finishes.
var MaterialTypes = []MaterialType{
	MaterialPaint,
	MaterialWood,
	MaterialTile,
	MaterialCarpet,
	MaterialWallpaper,
}

// Valid reports whether t is a supported finish.
func (t MaterialType) Valid() bool {
	for _, mt := range MaterialTypes {
		if mt == t {
			return true
		}
	}
	return false
}

// Room is a named rectangular floor area.
type Room struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Bounds Bounds  `json:"bounds"`
	Height float64 `json:"height"`
}

// Wall is a straight wall segment on the ground plane.
type Wall struct {
	ID        string  `json:"id"`
	From      Point2  `json:"from"`
	To        Point2  `json:"to"`
	Height    float64 `json:"height"`
	Thickness float64 `json:"thickness"`
}

// Opening is a door or window bound to exactly one wall.
// Position is a fraction in [0,1] along the wall, measured from Wall.From.
type Opening struct {
	ID       string      `json:"id"`
	WallID   string      `json:"wallId"`
	Type     OpeningType `json:"type"`
	Position float64     `json:"position"`
	Width    float64     `json:"width"`
}

// PlacedObject is a furniture instance. Rotation is in degrees around the y axis.
type PlacedObject struct {
	ID       string        `json:"id"`
	Type     FurnitureType `json:"type"`
	Position Point3        `json:"position"`
	Rotation float64       `json:"rotation"`
}

// Material is the finish of one surface. Texture may hold an asset id.
type Material struct {
	Type    MaterialType `json:"type"`
	Color   string       `json:"color,omitempty"`
	Texture string       `json:"texture,omitempty"`
}

// SceneDocument is the canonical description of a room layout.
type SceneDocument struct {
	Version   string              `json:"version"`
	Rooms     []Room              `json:"rooms"`
	Walls     []Wall              `json:"walls"`
	Openings  []Opening           `json:"openings"`
	Objects   []PlacedObject      `json:"objects"`
	Materials map[string]Material `json:"materials"`
}

// NewSceneDocument returns an empty document with all collections allocated.
func NewSceneDocument() *SceneDocument {
	return &SceneDocument{
		Version:   SceneVersion,
		Rooms:     make([]Room, 0),
		Walls:     make([]Wall, 0),
		Openings:  make([]Opening, 0),
		Objects:   make([]PlacedObject, 0),
		Materials: make(map[string]Material),
	}
}

// Clone returns a deep copy. A nil document clones to an empty one.
func (d *SceneDocument) Clone() *SceneDocument {
	if d == nil {
		return NewSceneDocument()
	}
	out := &SceneDocument{
		Version:   d.Version,
		Rooms:     append(make([]Room, 0, len(d.Rooms)), d.Rooms...),
		Walls:     append(make([]Wall, 0, len(d.Walls)), d.Walls...),
		Openings:  append(make([]Opening, 0, len(d.Openings)), d.Openings...),
		Objects:   append(make([]PlacedObject, 0, len(d.Objects)), d.Objects...),
		Materials: make(map[string]Material, len(d.Materials)),
	}
	for k, v := range d.Materials {
		out.Materials[k] = v
	}
	return out
}

// FindWall returns the wall with the given id.
func (d *SceneDocument) FindWall(id string) (Wall, bool) {
	for _, w := range d.Walls {
		if w.ID == id {
			return w, true
		}
	}
	return Wall{}, false
}

// FindObject returns the placed object with the given id.
func (d *SceneDocument) FindObject(id string) (PlacedObject, bool) {
	for _, o := range d.Objects {
		if o.ID == id {
			return o, true
		}
	}
	return PlacedObject{}, false
}

// OrphanedMaterials returns surface ids in Materials that name neither a room, a wall,
// an object, nor one of the well-known surfaces. Orphans are legal; renderers skip them.
func (d *SceneDocument) OrphanedMaterials() []string {
	known := map[string]struct{}{"floor": {}, "ceiling": {}}
	for _, r := range d.Rooms {
		known[r.ID] = struct{}{}
	}
	for _, w := range d.Walls {
		known[w.ID] = struct{}{}
	}
	for _, o := range d.Objects {
		known[o.ID] = struct{}{}
	}
	var orphans []string
	for surface := range d.Materials {
		if _, ok := known[surface]; ok {
			continue
		}
		if isCompassWall(surface) {
			continue
		}
		orphans = append(orphans, surface)
	}
	sort.Strings(orphans)
	return orphans
}

// isCompassWall matches the mobile editor's fixed surface names (northWall, southWall, ...).
func isCompassWall(surface string) bool {
	switch surface {
	case "northWall", "southWall", "eastWall", "westWall":
		return true
	}
	return false
}

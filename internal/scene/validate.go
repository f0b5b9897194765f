package scene

import (
	"fmt"
	"sort"

	"github.com/home-designer/backend/internal/models"
)

// Defaulted records one field that was filled in rather than read from the input.
type Defaulted struct {
	Path  string `json:"path"`
	Field string `json:"field"`
	Value any    `json:"value"`
}

// Report lists every default applied while validating a raw scene, so callers can
// tell "defaulted" apart from "rejected".
type Report struct {
	Defaults []Defaulted `json:"defaults"`
}

func (r *Report) add(path, field string, value any) {
	r.Defaults = append(r.Defaults, Defaulted{Path: path, Field: field, Value: value})
}

// Validator turns loosely typed scene input into a SceneDocument.
type Validator struct {
	ids IDGenerator
}

// NewValidator returns a validator that draws missing ids from ids.
// A nil generator falls back to UUIDGenerator.
func NewValidator(ids IDGenerator) *Validator {
	if ids == nil {
		ids = UUIDGenerator{}
	}
	return &Validator{ids: ids}
}

var defaultValidator = NewValidator(nil)

// Validate checks raw (decoded JSON or YAML) against an empty base document.
func Validate(raw any) (*models.SceneDocument, error) {
	return defaultValidator.Validate(raw)
}

// Validate checks raw against an empty base document.
func (v *Validator) Validate(raw any) (*models.SceneDocument, error) {
	doc, _, err := v.ValidateWithReport(nil, raw)
	return doc, err
}

// ValidateWithReport decodes raw, merges it over base (see Merge) and checks the
// merged result. Missing optional fields take their documented defaults; anything
// invalid rejects the whole input with a *ValidationError.
func (v *Validator) ValidateWithReport(base *models.SceneDocument, raw any) (*models.SceneDocument, *Report, error) {
	root, err := asObject(raw, "$")
	if err != nil {
		return nil, nil, err
	}

	report := &Report{}
	patch := &models.SceneDocument{}

	ObserveDocument(v.ids, base)
	if mats, ok := root["materials"].(map[string]any); ok {
		for surface := range mats {
			Observe(v.ids, surface)
		}
	}

	if val, ok := field(root, "version"); ok {
		s, err := asString(val, "version")
		if err != nil {
			return nil, nil, err
		}
		patch.Version = s
	} else if base == nil || base.Version == "" {
		report.add("", "version", models.SceneVersion)
	}

	if val, ok := field(root, "rooms"); ok {
		if patch.Rooms, err = v.decodeRooms(val, report); err != nil {
			return nil, nil, err
		}
	}
	if val, ok := field(root, "walls"); ok {
		if patch.Walls, err = v.decodeWalls(val, report); err != nil {
			return nil, nil, err
		}
	}
	if val, ok := field(root, "openings"); ok {
		if patch.Openings, err = v.decodeOpenings(val, report); err != nil {
			return nil, nil, err
		}
	}
	if val, ok := field(root, "objects"); ok {
		if patch.Objects, err = v.decodeObjects(val, report); err != nil {
			return nil, nil, err
		}
	}
	if val, ok := field(root, "materials"); ok {
		if patch.Materials, err = decodeMaterials(val); err != nil {
			return nil, nil, err
		}
	}

	doc := Merge(base, patch)
	if err := ValidateDocument(doc); err != nil {
		return nil, nil, err
	}
	return doc, report, nil
}

// ValidateDocument checks the invariants of an already typed document: ids present
// and unique per collection, positive dimensions, non-degenerate geometry, known
// enum values and resolvable opening references.
func ValidateDocument(doc *models.SceneDocument) error {
	if doc == nil {
		return newError(KindMissingRequiredField, "$", "document is missing")
	}

	seen := make(map[string]struct{})
	for i, r := range doc.Rooms {
		path := fmt.Sprintf("rooms[%d]", i)
		if err := checkID(seen, r.ID, path); err != nil {
			return err
		}
		if r.Height <= 0 {
			return newError(KindInvalidGeometry, path+".height", "room height must be positive, got %g", r.Height)
		}
		if r.Bounds.Width() == 0 || r.Bounds.Depth() == 0 {
			return newError(KindInvalidGeometry, path+".bounds", "room bounds must enclose a non-zero area")
		}
	}

	clear(seen)
	for i, w := range doc.Walls {
		path := fmt.Sprintf("walls[%d]", i)
		if err := checkID(seen, w.ID, path); err != nil {
			return err
		}
		if w.From == w.To {
			return newError(KindInvalidGeometry, path, "zero-length wall: from and to are both %v", w.From)
		}
		if w.Height <= 0 {
			return newError(KindInvalidGeometry, path+".height", "wall height must be positive, got %g", w.Height)
		}
		if w.Thickness <= 0 {
			return newError(KindInvalidGeometry, path+".thickness", "wall thickness must be positive, got %g", w.Thickness)
		}
	}

	clear(seen)
	for i, o := range doc.Openings {
		path := fmt.Sprintf("openings[%d]", i)
		if err := checkID(seen, o.ID, path); err != nil {
			return err
		}
		if o.Type != models.OpeningDoor && o.Type != models.OpeningWindow {
			return newError(KindInvalidValue, path+".type", "unknown opening type %q", o.Type)
		}
		if o.WallID == "" {
			return newError(KindMissingRequiredField, path+".wallId", "opening must reference a wall")
		}
		if _, ok := doc.FindWall(o.WallID); !ok {
			return newError(KindInvalidReference, path+".wallId", "wall %q does not exist", o.WallID)
		}
		if o.Width <= 0 {
			return newError(KindInvalidGeometry, path+".width", "opening width must be positive, got %g", o.Width)
		}
		if o.Position < 0 || o.Position > 1 {
			return newError(KindInvalidGeometry, path+".position", "position must be a fraction in [0,1], got %g", o.Position)
		}
	}

	clear(seen)
	for i, o := range doc.Objects {
		path := fmt.Sprintf("objects[%d]", i)
		if err := checkID(seen, o.ID, path); err != nil {
			return err
		}
		if !o.Type.Valid() {
			return newError(KindInvalidValue, path+".type", "unknown furniture type %q", o.Type)
		}
	}

	surfaces := make([]string, 0, len(doc.Materials))
	for s := range doc.Materials {
		surfaces = append(surfaces, s)
	}
	sort.Strings(surfaces)
	for _, s := range surfaces {
		if s == "" {
			return newError(KindInvalidValue, "materials", "surface id must not be empty")
		}
		if m := doc.Materials[s]; !m.Type.Valid() {
			return newError(KindInvalidValue, "materials."+s+".type", "unknown material type %q", m.Type)
		}
	}
	return nil
}

func checkID(seen map[string]struct{}, id, path string) error {
	if id == "" {
		return newError(KindMissingRequiredField, path+".id", "id is required")
	}
	if _, dup := seen[id]; dup {
		return newError(KindDuplicateID, path+".id", "id %q is used more than once", id)
	}
	seen[id] = struct{}{}
	return nil
}

// elements decodes a collection and hands out ids to entries that lack one, avoiding
// every explicit id in the same collection.
func (v *Validator) elements(raw any, collection, prefix string, report *Report,
	decode func(obj map[string]any, path string) (string, error), assign func(i int, id string)) error {

	arr, err := asArray(raw, collection)
	if err != nil {
		return err
	}
	taken := make(map[string]struct{}, len(arr))
	var missing []int
	for i, el := range arr {
		path := fmt.Sprintf("%s[%d]", collection, i)
		obj, err := asObject(el, path)
		if err != nil {
			return err
		}
		id, err := decode(obj, path)
		if err != nil {
			return err
		}
		if id == "" {
			missing = append(missing, i)
			continue
		}
		taken[id] = struct{}{}
		Observe(v.ids, id)
	}
	for _, i := range missing {
		id := FreshID(v.ids, prefix, func(s string) bool { _, ok := taken[s]; return ok })
		taken[id] = struct{}{}
		assign(i, id)
		report.add(fmt.Sprintf("%s[%d]", collection, i), "id", id)
	}
	return nil
}

func (v *Validator) decodeRooms(raw any, report *Report) ([]models.Room, error) {
	rooms := make([]models.Room, 0)
	err := v.elements(raw, "rooms", PrefixRoom, report, func(obj map[string]any, path string) (string, error) {
		var r models.Room
		var err error
		if r.ID, err = optionalID(obj, path); err != nil {
			return "", err
		}
		if r.Name, err = requiredString(obj, "name", path); err != nil {
			return "", err
		}
		val, ok := field(obj, "bounds")
		if !ok {
			return "", newError(KindMissingRequiredField, path+".bounds", "bounds are required")
		}
		if r.Bounds, err = asBounds(val, path+".bounds"); err != nil {
			return "", err
		}
		if r.Height, err = optionalNumber(obj, "height", path, models.DefaultRoomHeight, report); err != nil {
			return "", err
		}
		rooms = append(rooms, r)
		return r.ID, nil
	}, func(i int, id string) { rooms[i].ID = id })
	return rooms, err
}

func (v *Validator) decodeWalls(raw any, report *Report) ([]models.Wall, error) {
	walls := make([]models.Wall, 0)
	err := v.elements(raw, "walls", PrefixWall, report, func(obj map[string]any, path string) (string, error) {
		var w models.Wall
		var err error
		if w.ID, err = optionalID(obj, path); err != nil {
			return "", err
		}
		if w.From, err = requiredPoint2(obj, "from", path); err != nil {
			return "", err
		}
		if w.To, err = requiredPoint2(obj, "to", path); err != nil {
			return "", err
		}
		if w.Height, err = optionalNumber(obj, "height", path, models.DefaultWallHeight, report); err != nil {
			return "", err
		}
		if w.Thickness, err = optionalNumber(obj, "thickness", path, models.DefaultWallThickness, report); err != nil {
			return "", err
		}
		walls = append(walls, w)
		return w.ID, nil
	}, func(i int, id string) { walls[i].ID = id })
	return walls, err
}

func (v *Validator) decodeOpenings(raw any, report *Report) ([]models.Opening, error) {
	openings := make([]models.Opening, 0)
	err := v.elements(raw, "openings", PrefixOpening, report, func(obj map[string]any, path string) (string, error) {
		var o models.Opening
		var err error
		if o.ID, err = optionalID(obj, path); err != nil {
			return "", err
		}
		if o.WallID, err = requiredString(obj, "wallId", path); err != nil {
			return "", err
		}
		kind, err := requiredString(obj, "type", path)
		if err != nil {
			return "", err
		}
		o.Type = models.OpeningType(kind)
		if o.Position, err = requiredNumber(obj, "position", path); err != nil {
			return "", err
		}
		if o.Width, err = requiredNumber(obj, "width", path); err != nil {
			return "", err
		}
		openings = append(openings, o)
		return o.ID, nil
	}, func(i int, id string) { openings[i].ID = id })
	return openings, err
}

func (v *Validator) decodeObjects(raw any, report *Report) ([]models.PlacedObject, error) {
	objects := make([]models.PlacedObject, 0)
	err := v.elements(raw, "objects", PrefixObject, report, func(obj map[string]any, path string) (string, error) {
		var o models.PlacedObject
		var err error
		if o.ID, err = optionalID(obj, path); err != nil {
			return "", err
		}
		kind, err := requiredString(obj, "type", path)
		if err != nil {
			return "", err
		}
		o.Type = models.FurnitureType(kind)
		val, ok := field(obj, "position")
		if !ok {
			return "", newError(KindMissingRequiredField, path+".position", "position is required")
		}
		if o.Position, err = asPoint3(val, path+".position"); err != nil {
			return "", err
		}
		if o.Rotation, err = optionalNumber(obj, "rotation", path, models.DefaultRotation, report); err != nil {
			return "", err
		}
		objects = append(objects, o)
		return o.ID, nil
	}, func(i int, id string) { objects[i].ID = id })
	return objects, err
}

func decodeMaterials(raw any) (map[string]models.Material, error) {
	obj, err := asObject(raw, "materials")
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.Material, len(obj))
	for surface, val := range obj {
		m, err := DecodeMaterial(val, "materials."+surface)
		if err != nil {
			return nil, err
		}
		out[surface] = m
	}
	return out, nil
}

// DecodeMaterial reads one {type, color?, texture?} object.
func DecodeMaterial(raw any, path string) (models.Material, error) {
	obj, err := asObject(raw, path)
	if err != nil {
		return models.Material{}, err
	}
	var m models.Material
	kind, err := requiredString(obj, "type", path)
	if err != nil {
		return models.Material{}, err
	}
	m.Type = models.MaterialType(kind)
	if val, ok := field(obj, "color"); ok {
		if m.Color, err = asString(val, path+".color"); err != nil {
			return models.Material{}, err
		}
	}
	if val, ok := field(obj, "texture"); ok {
		if m.Texture, err = asString(val, path+".texture"); err != nil {
			return models.Material{}, err
		}
	}
	return m, nil
}

func optionalID(obj map[string]any, path string) (string, error) {
	val, ok := field(obj, "id")
	if !ok {
		return "", nil
	}
	return asString(val, path+".id")
}

func requiredString(obj map[string]any, key, path string) (string, error) {
	val, ok := field(obj, key)
	if !ok {
		return "", newError(KindMissingRequiredField, path+"."+key, "%s is required", key)
	}
	s, err := asString(val, path+"."+key)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", newError(KindMissingRequiredField, path+"."+key, "%s must not be empty", key)
	}
	return s, nil
}

func requiredNumber(obj map[string]any, key, path string) (float64, error) {
	val, ok := field(obj, key)
	if !ok {
		return 0, newError(KindMissingRequiredField, path+"."+key, "%s is required", key)
	}
	return asNumber(val, path+"."+key)
}

func requiredPoint2(obj map[string]any, key, path string) (models.Point2, error) {
	val, ok := field(obj, key)
	if !ok {
		return models.Point2{}, newError(KindMissingRequiredField, path+"."+key, "%s is required", key)
	}
	return asPoint2(val, path+"."+key)
}

func optionalNumber(obj map[string]any, key, path string, def float64, report *Report) (float64, error) {
	val, ok := field(obj, key)
	if !ok {
		report.add(path, key, def)
		return def, nil
	}
	return asNumber(val, path+"."+key)
}

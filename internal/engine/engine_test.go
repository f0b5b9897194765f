package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/home-designer/backend/internal/models"
	"github.com/home-designer/backend/internal/scene"
)

func newTestEngine() *Engine {
	return New(scene.NewSequenceGenerator())
}

func sofaAt(x float64) models.AddObject {
	return models.AddObject{Type: models.FurnitureSofa, Position: models.Point3{x, 0, 0}}
}

func TestApply_AddThenRemove(t *testing.T) {
	e := newTestEngine()

	doc, diags := e.Apply(nil, []models.Operation{sofaAt(1)})
	require.Empty(t, diags)
	require.Len(t, doc.Objects, 1)
	id := doc.Objects[0].ID

	// remove after add: gone
	out, _ := e.Apply(doc, []models.Operation{models.RemoveObject{ObjectID: id}})
	assert.Empty(t, out.Objects)

	// In a single batch, add then remove of the generated id needs the id up front;
	// removing an id before it exists is a no-op and the later add survives.
	res := e.Run(models.NewSceneDocument(), []models.Operation{
		models.RemoveObject{ObjectID: "obj_2"},
		sofaAt(2),
	})
	require.Len(t, res.Document.Objects, 1)
	assert.Equal(t, "obj_2", res.Document.Objects[0].ID)
	assert.Equal(t, []Added{{Index: 1, Action: models.ActionAddObject, ID: "obj_2"}}, res.Added)

	res = e.Run(res.Document, []models.Operation{
		sofaAt(3),
		models.RemoveObject{ObjectID: "obj_2"},
	})
	require.Len(t, res.Document.Objects, 1)
	assert.Equal(t, "obj_3", res.Document.Objects[0].ID)
}

func TestApply_RemoveMissingIsNoop(t *testing.T) {
	e := newTestEngine()

	empty, diags := e.Apply(models.NewSceneDocument(), []models.Operation{models.RemoveObject{ObjectID: "ghost"}})
	assert.Empty(t, diags)
	assert.Equal(t, models.NewSceneDocument(), empty)

	populated, _ := e.Apply(nil, []models.Operation{sofaAt(0), sofaAt(1)})
	out, diags := e.Apply(populated, []models.Operation{models.RemoveObject{ObjectID: "ghost"}})
	assert.Empty(t, diags)
	assert.Equal(t, populated, out)
}

func TestApply_UpdateMaterialOverwrites(t *testing.T) {
	e := newTestEngine()
	first := models.Material{Type: models.MaterialWood, Color: "#8B4513", Texture: "oak"}
	second := models.Material{Type: models.MaterialTile, Color: "#808080"}

	doc, diags := e.Apply(nil, []models.Operation{
		models.UpdateMaterial{SurfaceID: "floor", Material: first},
		models.UpdateMaterial{SurfaceID: "floor", Material: second},
	})
	require.Empty(t, diags)
	require.Len(t, doc.Materials, 1)
	// Full overwrite: the texture from the first material is not carried over.
	assert.Equal(t, second, doc.Materials["floor"])
}

func TestApply_ZeroLengthWallIsStored(t *testing.T) {
	// Apply does not check geometry; validation of the same wall fails.
	e := newTestEngine()
	doc, diags := e.Apply(nil, []models.Operation{models.AddWall{From: models.Point2{0, 0}, To: models.Point2{0, 0}}})
	require.Empty(t, diags)
	require.Len(t, doc.Walls, 1)
	assert.Equal(t, doc.Walls[0].From, doc.Walls[0].To)

	err := scene.ValidateDocument(doc)
	assert.Equal(t, scene.KindInvalidGeometry, scene.KindOf(err))
}

func TestApply_Defaults(t *testing.T) {
	e := newTestEngine()
	doc, _ := e.Apply(nil, []models.Operation{
		models.AddWall{From: models.Point2{0, 0}, To: models.Point2{10, 0}},
		models.AddWall{From: models.Point2{0, 0}, To: models.Point2{0, 10}, Height: models.Float(0), Thickness: models.Float(1)},
		models.AddRoom{Name: "Office", Bounds: models.Bounds{{0, 0}, {10, 10}}},
		models.AddRoom{Name: "Loft", Bounds: models.Bounds{{0, 0}, {5, 5}}, Height: models.Float(12)},
		models.AddObject{Type: models.FurnitureDesk, Position: models.Point3{1, 0, 1}, Rotation: models.Float(90)},
		models.AddObject{Type: models.FurnitureDesk, Position: models.Point3{2, 0, 1}},
	})

	assert.Equal(t, 9.0, doc.Walls[0].Height)
	assert.Equal(t, 0.5, doc.Walls[0].Thickness)
	assert.Equal(t, 9.0, doc.Walls[1].Height)
	assert.Equal(t, 1.0, doc.Walls[1].Thickness)
	assert.Equal(t, 9.0, doc.Rooms[0].Height)
	assert.Equal(t, 12.0, doc.Rooms[1].Height)
	assert.Equal(t, 90.0, doc.Objects[0].Rotation)
	assert.Equal(t, 0.0, doc.Objects[1].Rotation)

	assert.Equal(t, "wall_1", doc.Walls[0].ID)
	assert.Equal(t, "room_3", doc.Rooms[0].ID)
}

func TestApply_UnknownOperationContinues(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	e := New(scene.NewSequenceGenerator(), WithLogger(zap.New(core)))

	doc, diags := e.Apply(nil, []models.Operation{
		sofaAt(0),
		models.UnknownOperation{Name: "paint_ceiling", Raw: json.RawMessage(`{"action":"paint_ceiling"}`)},
		nil,
		sofaAt(1),
	})

	assert.Len(t, doc.Objects, 2)
	require.Len(t, diags, 2)
	assert.Equal(t, models.OperationDiagnostic{
		Index:   1,
		Action:  "paint_ceiling",
		Kind:    models.DiagnosticUnknownOperation,
		Message: `unknown action "paint_ceiling"`,
	}, diags[0])
	assert.Equal(t, 2, diags[1].Index)
	assert.Equal(t, models.DiagnosticMalformedOperation, diags[1].Kind)

	assert.Equal(t, 2, logs.FilterMessage("skipping operation").Len())
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	e := newTestEngine()
	base, _ := e.Apply(nil, []models.Operation{sofaAt(0), models.UpdateMaterial{SurfaceID: "floor", Material: models.Material{Type: models.MaterialWood}}})
	snapshot, err := json.Marshal(base)
	require.NoError(t, err)

	e.Apply(base, []models.Operation{
		models.RemoveObject{ObjectID: base.Objects[0].ID},
		models.UpdateMaterial{SurfaceID: "floor", Material: models.Material{Type: models.MaterialCarpet}},
		models.AddWall{From: models.Point2{0, 0}, To: models.Point2{1, 0}},
	})

	after, err := json.Marshal(base)
	require.NoError(t, err)
	assert.JSONEq(t, string(snapshot), string(after))
}

func TestApply_GeneratedIDsSkipLoadedOnes(t *testing.T) {
	doc := models.NewSceneDocument()
	doc.Objects = []models.PlacedObject{{ID: "obj_1", Type: models.FurnitureBookshelf}}

	out, _ := newTestEngine().Apply(doc, []models.Operation{sofaAt(0)})
	require.Len(t, out.Objects, 2)
	assert.Equal(t, "obj_2", out.Objects[1].ID)
}

func TestApply_RemovedIDsAreNotReissued(t *testing.T) {
	e := newTestEngine()
	doc := models.NewSceneDocument()
	doc.Objects = []models.PlacedObject{{ID: "obj_1", Type: models.FurnitureSofa}}
	doc.Materials["obj_1"] = models.Material{Type: models.MaterialPaint, Color: "#FF0000"}

	doc, _ = e.Apply(doc, []models.Operation{models.RemoveObject{ObjectID: "obj_1"}})
	require.Empty(t, doc.Objects)

	res := e.Run(doc, []models.Operation{sofaAt(0)})
	require.Len(t, res.Added, 1)
	assert.NotEqual(t, "obj_1", res.Added[0].ID)

	// A fresh generator that never saw obj_1 still skips it because the orphaned
	// material keeps the id in use.
	res = New(scene.NewSequenceGenerator()).Run(doc, []models.Operation{sofaAt(0)})
	assert.NotEqual(t, "obj_1", res.Added[0].ID)
}

func TestRun_ReportsChanges(t *testing.T) {
	e := newTestEngine()
	wood := models.Material{Type: models.MaterialWood}
	base, _ := e.Apply(nil, []models.Operation{sofaAt(0), models.UpdateMaterial{SurfaceID: "floor", Material: wood}})

	cases := []struct {
		name    string
		ops     []models.Operation
		changed bool
	}{
		{"empty batch", nil, false},
		{"unknown only", []models.Operation{models.UnknownOperation{Name: "spin"}}, false},
		{"remove missing", []models.Operation{models.RemoveObject{ObjectID: "ghost"}}, false},
		{"same material", []models.Operation{models.UpdateMaterial{SurfaceID: "floor", Material: wood}}, false},
		{"new material", []models.Operation{models.UpdateMaterial{SurfaceID: "floor", Material: models.Material{Type: models.MaterialTile}}}, true},
		{"remove existing", []models.Operation{models.RemoveObject{ObjectID: base.Objects[0].ID}}, true},
		{"add", []models.Operation{models.AddWall{From: models.Point2{0, 0}, To: models.Point2{1, 0}}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.changed, e.Run(base, tc.ops).Changed)
		})
	}
}

// Replaying a random batch of adds and removes against a simple model gives the
// same object list, and object ids stay unique and non-empty.
func TestApply_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		e := New(scene.NewSequenceGenerator())
		n := rapid.IntRange(0, 40).Draw(t, "n")

		var ops []models.Operation
		for i := 0; i < n; i++ {
			if rapid.Bool().Draw(t, "add") {
				ops = append(ops, sofaAt(float64(i)))
			} else {
				id := rapid.SampledFrom([]string{"obj_1", "obj_2", "obj_3", "obj_7", "missing"}).Draw(t, "target")
				ops = append(ops, models.RemoveObject{ObjectID: id})
			}
		}

		res := e.Run(nil, ops)
		if len(res.Diagnostics) != 0 {
			t.Fatalf("unexpected diagnostics: %v", res.Diagnostics)
		}

		var model []string
		added := 0
		for _, op := range ops {
			switch o := op.(type) {
			case models.AddObject:
				model = append(model, res.Added[added].ID)
				added++
			case models.RemoveObject:
				kept := model[:0:0]
				for _, id := range model {
					if id != o.ObjectID {
						kept = append(kept, id)
					}
				}
				model = kept
			}
		}

		got := make([]string, 0, len(res.Document.Objects))
		seen := make(map[string]bool)
		for _, obj := range res.Document.Objects {
			if obj.ID == "" || seen[obj.ID] {
				t.Fatalf("id %q empty or repeated", obj.ID)
			}
			seen[obj.ID] = true
			got = append(got, obj.ID)
		}
		if len(model) != len(got) {
			t.Fatalf("model %v, document %v", model, got)
		}
		for i := range model {
			if model[i] != got[i] {
				t.Fatalf("model %v, document %v", model, got)
			}
		}
	})
}

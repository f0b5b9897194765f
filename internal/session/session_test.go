package session

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/home-designer/backend/internal/models"
	"github.com/home-designer/backend/internal/scene"
)

func wallOp(x1, z1, x2, z2 float64) models.AddWall {
	return models.AddWall{From: models.Point2{x1, z1}, To: models.Point2{x2, z2}}
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := NewManager(Options{IDStyle: "sequence"}).Create()
	require.NoError(t, err)
	return s
}

func rawScene(t *testing.T, s string) any {
	t.Helper()
	var raw any
	require.NoError(t, json.Unmarshal([]byte(s), &raw))
	return raw
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

const previewScene = `{
	"rooms":[{"id":"r1","name":"Studio","bounds":[[0,0],[20,15]]}],
	"walls":[{"id":"w1","from":[0,0],"to":[20,0]}],
	"openings":[{"id":"d1","wallId":"w1","type":"door","position":0.5,"width":3}]
}`

func TestPreview_CancelRestoresCanonical(t *testing.T) {
	s := newTestSession(t)
	_, err := s.AddObject(models.AddObject{Type: models.FurnitureSofa, Position: models.Point3{1, 0, 1}})
	require.NoError(t, err)
	before := mustJSON(t, s.Scene())

	_, err = s.SetPreview(rawScene(t, previewScene))
	require.NoError(t, err)
	assert.Equal(t, models.PreviewStatePreviewing, s.State())

	assert.True(t, s.CancelPreview())
	assert.Equal(t, models.PreviewStateClean, s.State())
	assert.Equal(t, before, mustJSON(t, s.Scene()))

	_, ok := s.Preview()
	assert.False(t, ok)
}

func TestPreview_CommitInstallsPreview(t *testing.T) {
	s := newTestSession(t)
	rev := s.Revision()

	_, err := s.SetPreview(rawScene(t, previewScene))
	require.NoError(t, err)
	preview, ok := s.Preview()
	require.True(t, ok)

	assert.True(t, s.CommitPreview())
	assert.Equal(t, preview, s.Scene())
	assert.Equal(t, rev+1, s.Revision())

	// Committing again is a no-op.
	assert.False(t, s.CommitPreview())
	assert.False(t, s.CancelPreview())
	assert.Equal(t, rev+1, s.Revision())
}

func TestPreview_SetReplacesWholesale(t *testing.T) {
	s := newTestSession(t)
	_, err := s.SetPreview(rawScene(t, previewScene))
	require.NoError(t, err)
	_, err = s.SetPreview(rawScene(t, `{"walls":[{"id":"only","from":[0,0],"to":[1,0]}]}`))
	require.NoError(t, err)

	preview, _ := s.Preview()
	assert.Empty(t, preview.Rooms)
	require.Len(t, preview.Walls, 1)
	assert.Equal(t, "only", preview.Walls[0].ID)
}

func TestPreview_InvalidDSLLeavesStateAlone(t *testing.T) {
	s := newTestSession(t)
	_, err := s.SetPreview(rawScene(t, `{"walls":[{"from":[0,0],"to":[0,0]}]}`))
	assert.Equal(t, scene.KindInvalidGeometry, scene.KindOf(err))
	assert.Equal(t, models.PreviewStateClean, s.State())
}

func TestPreview_BlocksCanonicalMutations(t *testing.T) {
	s := newTestSession(t)
	_, err := s.SetPreview(rawScene(t, previewScene))
	require.NoError(t, err)

	_, err = s.AddWall(wallOp(0, 0, 1, 0))
	assert.ErrorIs(t, err, ErrPreviewPending)
	assert.ErrorIs(t, s.RemoveObject("x"), ErrPreviewPending)
	assert.ErrorIs(t, s.UpdateMaterial("floor", models.Material{Type: models.MaterialWood}), ErrPreviewPending)
	assert.Empty(t, s.Scene().Walls)
}

func TestLoadScene_DiscardsPreview(t *testing.T) {
	s := newTestSession(t)
	s.SetError("previous failure")
	_, err := s.SetPreview(rawScene(t, previewScene))
	require.NoError(t, err)

	report, err := s.LoadScene(rawScene(t, `{"rooms":[],"walls":[{"from":[0,0],"to":[10,0]}],"openings":[],"objects":[],"materials":{}}`))
	require.NoError(t, err)
	assert.NotEmpty(t, report.Defaults)

	assert.Equal(t, models.PreviewStateClean, s.State())
	assert.Empty(t, s.Status().Error)

	doc := s.Scene()
	require.Len(t, doc.Walls, 1)
	assert.Equal(t, 9.0, doc.Walls[0].Height)
	assert.Equal(t, 0.5, doc.Walls[0].Thickness)
	assert.NotEmpty(t, doc.Walls[0].ID)
}

func TestLoadScene_RejectsAndKeepsDocument(t *testing.T) {
	s := newTestSession(t)
	_, err := s.AddWall(wallOp(0, 0, 5, 0))
	require.NoError(t, err)
	rev := s.Revision()

	_, err = s.LoadScene(rawScene(t, `{"openings":[{"wallId":"ghost","type":"window","position":0.2,"width":2}]}`))
	assert.Equal(t, scene.KindInvalidReference, scene.KindOf(err))
	assert.Len(t, s.Scene().Walls, 1)
	assert.Equal(t, rev, s.Revision())
}

func TestClearScene(t *testing.T) {
	s := newTestSession(t)
	_, err := s.AddRoom(models.AddRoom{Name: "Hall", Bounds: models.Bounds{{0, 0}, {4, 4}}})
	require.NoError(t, err)
	s.PreviewOperations([]models.Operation{wallOp(0, 0, 1, 0)})

	s.ClearScene()
	assert.Equal(t, models.NewSceneDocument(), s.Scene())
	assert.Equal(t, models.PreviewStateClean, s.State())
}

func TestDirectMutations(t *testing.T) {
	s := newTestSession(t)

	room, err := s.AddRoom(models.AddRoom{Name: "Bedroom", Bounds: models.Bounds{{0, 0}, {12, 12}}})
	require.NoError(t, err)
	assert.Equal(t, "room_1", room.ID)
	assert.Equal(t, 9.0, room.Height)

	obj, err := s.AddObject(models.AddObject{Type: models.FurnitureQueenBed, Position: models.Point3{6, 0, 6}})
	require.NoError(t, err)
	assert.Equal(t, "obj_2", obj.ID)

	require.NoError(t, s.UpdateMaterial("floor", models.Material{Type: models.MaterialCarpet, Color: "#808080"}))
	require.NoError(t, s.RemoveObject(obj.ID))
	require.NoError(t, s.RemoveObject(obj.ID))

	doc := s.Scene()
	assert.Empty(t, doc.Objects)
	assert.Equal(t, models.MaterialCarpet, doc.Materials["floor"].Type)

	info := s.Info()
	assert.Equal(t, 1, info.RoomCount)
	// The second removal found nothing and did not count as a change.
	assert.Equal(t, int64(4), info.Revision)
}

func TestApply_NoopBatchKeepsRevision(t *testing.T) {
	s := newTestSession(t)
	paint := models.Material{Type: models.MaterialPaint, Color: "#FFFFFF"}
	require.NoError(t, s.UpdateMaterial("ceiling", paint))
	rev := s.Revision()

	events, cancel := s.Subscribe(8)
	defer cancel()

	res, err := s.Apply(nil)
	require.NoError(t, err)
	assert.False(t, res.Changed)

	res, err = s.Apply([]models.Operation{
		models.UnknownOperation{Name: "tilt_roof"},
		models.RemoveObject{ObjectID: "ghost"},
		models.UpdateMaterial{SurfaceID: "ceiling", Material: paint},
	})
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Len(t, res.Diagnostics, 1)
	assert.Equal(t, rev, res.Revision)

	require.NoError(t, s.RemoveObject("ghost"))
	assert.Equal(t, rev, s.Revision())

	select {
	case evt := <-events:
		t.Fatalf("unexpected %s event", evt.Type)
	default:
	}
}

func TestGeneratedIDsAreNotReissued(t *testing.T) {
	s := newTestSession(t)
	_, err := s.LoadScene(rawScene(t, `{"objects":[{"id":"obj_1","type":"sofa","position":[0,0,0]}]}`))
	require.NoError(t, err)

	red := models.Material{Type: models.MaterialPaint, Color: "#FF0000"}
	require.NoError(t, s.UpdateMaterial("obj_1", red))
	require.NoError(t, s.RemoveObject("obj_1"))

	obj, err := s.AddObject(models.AddObject{Type: models.FurnitureSofa})
	require.NoError(t, err)
	assert.NotEqual(t, "obj_1", obj.ID)

	doc := s.Scene()
	assert.Equal(t, []string{"obj_1"}, doc.OrphanedMaterials())
	_, painted := doc.Materials[obj.ID]
	assert.False(t, painted)
}

func TestGeneratedIDsSkipLoadedNumbers(t *testing.T) {
	s := newTestSession(t)
	_, err := s.LoadScene(rawScene(t, `{
		"walls":[{"id":"wall_9","from":[0,0],"to":[5,0]}],
		"materials":{"room_12":{"type":"wood"}}
	}`))
	require.NoError(t, err)

	wall, err := s.AddWall(wallOp(0, 0, 0, 5))
	require.NoError(t, err)
	assert.Equal(t, "wall_13", wall.ID)
}

func TestSnapshot(t *testing.T) {
	s := newTestSession(t)
	_, err := s.AddWall(wallOp(0, 0, 4, 0))
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, s.Revision(), snap.Revision)
	assert.Equal(t, models.PreviewStateClean, snap.State)
	assert.Len(t, snap.Scene.Walls, 1)
	assert.Nil(t, snap.Preview)

	s.PreviewOperations([]models.Operation{wallOp(0, 0, 0, 4)})
	snap = s.Snapshot()
	assert.Equal(t, models.PreviewStatePreviewing, snap.State)
	assert.Len(t, snap.Scene.Walls, 1)
	require.NotNil(t, snap.Preview)
	assert.Len(t, snap.Preview.Walls, 2)

	// Copies, not views.
	snap.Scene.Walls = nil
	assert.Len(t, s.Scene().Walls, 1)
}

func TestPreviewOperationsAt(t *testing.T) {
	s := newTestSession(t)
	rev := s.Revision()

	_, err := s.AddRoom(models.AddRoom{Name: "Den", Bounds: models.Bounds{{0, 0}, {8, 8}}})
	require.NoError(t, err)

	_, err = s.PreviewOperationsAt(rev, []models.Operation{wallOp(0, 0, 8, 0)})
	assert.ErrorIs(t, err, ErrSceneChanged)
	assert.Equal(t, models.PreviewStateClean, s.State())

	out, err := s.PreviewOperationsAt(s.Revision(), []models.Operation{wallOp(0, 0, 8, 0)})
	require.NoError(t, err)
	assert.Equal(t, models.PreviewStatePreviewing, out.State)
	assert.Len(t, out.Document.Walls, 1)
}

func TestPreviewOperations_ForksCanonical(t *testing.T) {
	s := newTestSession(t)
	_, err := s.AddWall(wallOp(0, 0, 10, 0))
	require.NoError(t, err)

	res := s.PreviewOperations([]models.Operation{
		models.UpdateMaterial{SurfaceID: "northWall", Material: models.Material{Type: models.MaterialPaint, Color: "#2C3E50"}},
		models.UnknownOperation{Name: "rotate_room"},
	})
	require.Len(t, res.Diagnostics, 1)
	assert.Len(t, res.Document.Walls, 1)

	assert.Empty(t, s.Scene().Materials)
	preview, ok := s.Preview()
	require.True(t, ok)
	assert.Equal(t, "#2C3E50", preview.Materials["northWall"].Color)

	require.True(t, s.CommitPreview())
	assert.Equal(t, "#2C3E50", s.Scene().Materials["northWall"].Color)
}

func TestStatus(t *testing.T) {
	s := newTestSession(t)

	s.SetLoading(true, "Analyzing floor plan...")
	assert.Equal(t, Status{IsLoading: true, LoadingMessage: "Analyzing floor plan..."}, s.Status())

	s.SetError("Failed to parse floor plan")
	assert.Equal(t, Status{Error: "Failed to parse floor plan"}, s.Status())

	s.ClearError()
	assert.Equal(t, Status{}, s.Status())

	s.SetLoading(false, "ignored")
	assert.Equal(t, Status{}, s.Status())
}

func TestSubscribe(t *testing.T) {
	s := newTestSession(t)
	events, cancel := s.Subscribe(8)

	_, err := s.AddWall(wallOp(0, 0, 3, 0))
	require.NoError(t, err)
	s.PreviewOperations(nil)
	s.CommitPreview()
	s.SetLoading(true, "Working")

	want := []EventType{EventSceneChanged, EventPreviewSet, EventPreviewCommitted, EventStatusChanged}
	for i, typ := range want {
		select {
		case evt := <-events:
			assert.Equal(t, typ, evt.Type, "event %d", i)
			assert.Equal(t, s.ID(), evt.SessionID)
		case <-time.After(time.Second):
			t.Fatalf("missing event %d (%s)", i, typ)
		}
	}

	cancel()
	_, open := <-events
	assert.False(t, open)
}

func TestSubscribe_SlowSubscriberDoesNotBlock(t *testing.T) {
	s := newTestSession(t)
	_, cancel := s.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			s.ClearScene()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("session blocked on a full subscriber")
	}
}

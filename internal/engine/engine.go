// Package engine applies operation batches to scene documents.
//
// Apply never mutates its input: it clones the document and applies each operation
// to the clone in order, so every operation sees the effects of the ones before it.
// Geometry is not checked here; a zero-length wall added through Apply is stored
// as-is and only rejected when the document is later passed through scene.Validate.
package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/home-designer/backend/internal/logging"
	"github.com/home-designer/backend/internal/metrics"
	"github.com/home-designer/backend/internal/models"
	"github.com/home-designer/backend/internal/scene"
)

// Engine applies operations using one id generator. It holds no document state
// and is safe for concurrent use as long as the generator is.
type Engine struct {
	ids     scene.IDGenerator
	logger  *zap.Logger
	metrics *metrics.Collector
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for skipped operations.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = logging.Component(l, "engine") }
}

// WithMetrics records applied operations and diagnostics.
func WithMetrics(m *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = m }
}

// New returns an engine drawing fresh ids from ids (UUIDs when nil).
func New(ids scene.IDGenerator, opts ...Option) *Engine {
	if ids == nil {
		ids = scene.UUIDGenerator{}
	}
	e := &Engine{ids: ids, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Added identifies an element created by an operation in a batch.
type Added struct {
	Index  int           `json:"index"`
	Action models.Action `json:"action"`
	ID     string        `json:"id"`
}

// Result is the outcome of one batch.
type Result struct {
	Document    *models.SceneDocument        `json:"document"`
	Diagnostics []models.OperationDiagnostic `json:"diagnostics"`
	Added       []Added                      `json:"added"`
	// Changed is false when no operation altered the document.
	Changed     bool                         `json:"changed"`
}

// Apply runs ops against a copy of doc and returns the copy plus a diagnostic for
// every skipped operation. A nil doc is treated as empty.
func (e *Engine) Apply(doc *models.SceneDocument, ops []models.Operation) (*models.SceneDocument, []models.OperationDiagnostic) {
	res := e.Run(doc, ops)
	return res.Document, res.Diagnostics
}

// Run is Apply that also reports the ids handed out to new elements.
func (e *Engine) Run(doc *models.SceneDocument, ops []models.Operation) Result {
	res := Result{
		Document:    doc.Clone(),
		Diagnostics: make([]models.OperationDiagnostic, 0),
		Added:       make([]Added, 0),
	}
	scene.ObserveDocument(e.ids, res.Document)
	for i, op := range ops {
		id, changed, diag := e.applyOne(res.Document, op)
		if diag != nil {
			diag.Index = i
			e.logger.Warn("skipping operation",
				zap.Int("index", i),
				zap.String("action", diag.Action),
				zap.String("kind", string(diag.Kind)),
				zap.String("reason", diag.Message))
			e.metrics.RecordDiagnostic(string(diag.Kind))
			res.Diagnostics = append(res.Diagnostics, *diag)
			continue
		}
		e.metrics.RecordOperation(string(op.Action()))
		res.Changed = res.Changed || changed
		if id != "" {
			res.Added = append(res.Added, Added{Index: i, Action: op.Action(), ID: id})
		}
	}
	return res
}

// applyOne mutates doc in place and reports whether it did. Each arm builds the new
// element completely before touching doc, so an operation is either fully applied
// or not at all.
func (e *Engine) applyOne(doc *models.SceneDocument, op models.Operation) (string, bool, *models.OperationDiagnostic) {
	switch o := op.(type) {
	case models.AddObject:
		obj := models.PlacedObject{
			ID:       e.freshID(scene.PrefixObject, objectTaken(doc)),
			Type:     o.Type,
			Position: o.Position,
			Rotation: orDefault(o.Rotation, models.DefaultRotation),
		}
		doc.Objects = append(doc.Objects, obj)
		return obj.ID, true, nil

	case models.RemoveObject:
		kept := doc.Objects[:0:0]
		for _, obj := range doc.Objects {
			if obj.ID != o.ObjectID {
				kept = append(kept, obj)
			}
		}
		removed := len(kept) != len(doc.Objects)
		doc.Objects = kept
		return "", removed, nil

	case models.UpdateMaterial:
		if doc.Materials == nil {
			doc.Materials = make(map[string]models.Material)
		}
		if cur, ok := doc.Materials[o.SurfaceID]; ok && cur == o.Material {
			return "", false, nil
		}
		doc.Materials[o.SurfaceID] = o.Material
		return "", true, nil

	case models.AddWall:
		wall := models.Wall{
			ID:        e.freshID(scene.PrefixWall, wallTaken(doc)),
			From:      o.From,
			To:        o.To,
			Height:    orDefault(o.Height, models.DefaultWallHeight),
			Thickness: orDefault(o.Thickness, models.DefaultWallThickness),
		}
		doc.Walls = append(doc.Walls, wall)
		return wall.ID, true, nil

	case models.AddRoom:
		room := models.Room{
			ID:     e.freshID(scene.PrefixRoom, roomTaken(doc)),
			Name:   o.Name,
			Bounds: o.Bounds,
			Height: orDefault(o.Height, models.DefaultRoomHeight),
		}
		doc.Rooms = append(doc.Rooms, room)
		return room.ID, true, nil

	case nil:
		return "", false, &models.OperationDiagnostic{
			Kind:    models.DiagnosticMalformedOperation,
			Message: "operation is nil",
		}

	default:
		return "", false, &models.OperationDiagnostic{
			Action:  string(op.Action()),
			Kind:    models.DiagnosticUnknownOperation,
			Message: fmt.Sprintf("unknown action %q", op.Action()),
		}
	}
}

func (e *Engine) freshID(prefix string, taken func(string) bool) string {
	return scene.FreshID(e.ids, prefix, taken)
}

// orDefault treats a missing or zero value as "use the default".
func orDefault(v *float64, def float64) float64 {
	if v == nil || *v == 0 {
		return def
	}
	return *v
}

func objectTaken(doc *models.SceneDocument) func(string) bool {
	return func(id string) bool {
		_, ok := doc.FindObject(id)
		return ok
	}
}

func wallTaken(doc *models.SceneDocument) func(string) bool {
	return func(id string) bool {
		_, ok := doc.FindWall(id)
		return ok
	}
}

func roomTaken(doc *models.SceneDocument) func(string) bool {
	return func(id string) bool {
		for _, r := range doc.Rooms {
			if r.ID == id {
				return true
			}
		}
		return false
	}
}

package testutil

import (
	"context"
	"sync"

	"github.com/home-designer/backend/internal/models"
	"github.com/home-designer/backend/internal/parser"
)

// FakeVision answers the three model tasks with canned replies. Reply strings are
// run through the real response parsers, so tests exercise the same decoding as
// production. An Err field short-circuits its task.
type FakeVision struct {
	mu sync.Mutex

	ClassifyReply  string
	ClassifyErr    error
	FloorPlanReply string
	FloorPlanErr   error
	CommandReply   string
	CommandErr     error

	// Block, when set, is waited on before any reply.
	Block chan struct{}

	Calls        []string
	LastCommand  string
	LastScene    *models.SceneDocument
	LastImage    string
	LastRefImage string
}

// NewFakeVision returns a fake that classifies everything as a floor plan and
// parses it into the given scene DSL.
func NewFakeVision(floorPlanReply string) *FakeVision {
	return &FakeVision{
		ClassifyReply:  `{"type": "floor_plan", "confidence": 0.95, "details": "floor plan"}`,
		FloorPlanReply: floorPlanReply,
		CommandReply:   `{"explanation": "", "operations": []}`,
	}
}

func (f *FakeVision) record(call, image string) {
	f.mu.Lock()
	f.Calls = append(f.Calls, call)
	f.LastImage = image
	block := f.Block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
}

// CallCount returns how many calls were made.
func (f *FakeVision) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

func (f *FakeVision) ClassifyImage(ctx context.Context, image string) (*models.Classification, error) {
	f.record("classify", image)
	if f.ClassifyErr != nil {
		return nil, f.ClassifyErr
	}
	return parser.ParseClassification([]byte(f.ClassifyReply))
}

func (f *FakeVision) ParseFloorPlan(ctx context.Context, image string) (*models.FloorPlanResult, error) {
	f.record("floorplan", image)
	if f.FloorPlanErr != nil {
		return nil, f.FloorPlanErr
	}
	return parser.ParseFloorPlanResult([]byte(f.FloorPlanReply))
}

func (f *FakeVision) InterpretCommand(ctx context.Context, command string, current *models.SceneDocument, referenceImage string) (*models.CommandResponse, []models.OperationDiagnostic, error) {
	f.record("command", referenceImage)
	f.mu.Lock()
	f.LastCommand = command
	f.LastScene = current
	f.LastRefImage = referenceImage
	f.mu.Unlock()
	if f.CommandErr != nil {
		return nil, nil, f.CommandErr
	}
	return parser.ParseCommandResponse([]byte(f.CommandReply))
}

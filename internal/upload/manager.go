// Package upload runs floor-plan imports: an uploaded image is classified, parsed
// into a scene and, when valid, installed as the session's preview.
package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/home-designer/backend/internal/metrics"
	"github.com/home-designer/backend/internal/models"
	"github.com/home-designer/backend/internal/scene"
)

// Status represents the import processing status.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusClassifying Status = "classifying"
	StatusParsing     Status = "parsing"
	StatusValidating  Status = "validating"
	StatusComplete    Status = "complete"
	StatusRejected    Status = "rejected"
	StatusError       Status = "failed"
)

// Finished reports whether s is terminal.
func (s Status) Finished() bool {
	return s == StatusComplete || s == StatusRejected || s == StatusError
}

// DefaultJobTimeout bounds one import end to end.
const DefaultJobTimeout = 3 * time.Minute

// Job represents an async floor-plan import.
type Job struct {
	ID             string                   `json:"id"`
	SessionID      string                   `json:"sessionId"`
	AssetID        string                   `json:"assetId,omitempty"`
	Status         Status                   `json:"status"`
	Progress       float64                  `json:"progress"`
	Stage          string                   `json:"stage"`
	Classification *models.Classification   `json:"classification,omitempty"`
	Preview        *models.FloorPlanPreview `json:"preview,omitempty"`
	Defaulted      int                      `json:"defaulted"`
	Error          string                   `json:"error,omitempty"`
	ErrorKind      string                   `json:"errorKind,omitempty"`
	CreatedAt      time.Time                `json:"createdAt"`
	CompletedAt    *time.Time               `json:"completedAt,omitempty"`
}

// Vision is the part of the model client an import needs.
type Vision interface {
	ClassifyImage(ctx context.Context, image string) (*models.Classification, error)
	ParseFloorPlan(ctx context.Context, image string) (*models.FloorPlanResult, error)
}

// Target is the editing session receiving the imported scene as its preview.
type Target interface {
	ID() string
	SetLoading(loading bool, message string)
	SetError(message string)
	ClearError()
	SetPreview(raw any) (*scene.Report, error)
}

// Options configures a Manager.
type Options struct {
	JobTimeout time.Duration
	Logger     *zap.Logger
	Metrics    *metrics.Collector
}

// Manager handles async import processing.
type Manager struct {
	jobs    map[string]*Job
	mu      sync.RWMutex
	vision  Vision
	timeout time.Duration
	logger  *zap.Logger
	metrics *metrics.Collector

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a new import manager.
func NewManager(vision Vision, opts Options) *Manager {
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = DefaultJobTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		jobs:    make(map[string]*Job),
		vision:  vision,
		timeout: opts.JobTimeout,
		logger:  opts.Logger.With(zap.String("component", "import")),
		metrics: opts.Metrics,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// StartJob begins async processing of image (base64 or data URL) for target.
func (m *Manager) StartJob(target Target, assetID, image string) *Job {
	job := &Job{
		ID:        uuid.New().String(),
		SessionID: target.ID(),
		AssetID:   assetID,
		Status:    StatusQueued,
		Stage:     "queued",
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	snapshot := *job
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.processJob(job, target, image)
	}()

	return &snapshot
}

// GetJob returns a snapshot of a job.
func (m *Manager) GetJob(id string) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, false
	}
	snapshot := *job
	return &snapshot, true
}

// Shutdown cancels running jobs and waits for them to finish.
func (m *Manager) Shutdown() {
	m.cancel()
	m.wg.Wait()
}

// Wait blocks until every started job has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) processJob(job *Job, target Target, image string) {
	ctx, cancel := context.WithTimeout(m.ctx, m.timeout)
	defer cancel()

	log := m.logger.With(zap.String("job", shortID(job.ID)), zap.String("session", shortID(job.SessionID)))
	log.Info("starting import")
	defer target.SetLoading(false, "")

	// Stage 1: classify
	target.ClearError()
	m.updateJobStatus(job, StatusClassifying, "classifying image")
	target.SetLoading(true, "Analyzing image...")
	classification, err := m.vision.ClassifyImage(ctx, image)
	if err != nil {
		m.fail(log, job, target, "classification failed", err)
		return
	}
	m.mu.Lock()
	job.Classification = classification
	m.mu.Unlock()

	if !classification.IsFloorPlan() {
		msg := fmt.Sprintf("image was classified as %s, not a floor plan", classification.Type)
		m.finish(job, StatusRejected, msg, "")
		target.SetError(msg)
		log.Info("import rejected", zap.String("type", string(classification.Type)), zap.Float64("confidence", classification.Confidence))
		return
	}

	// Stage 2: parse
	m.updateJobStatus(job, StatusParsing, "parsing floor plan")
	target.SetLoading(true, "Parsing floor plan...")
	result, err := m.vision.ParseFloorPlan(ctx, image)
	if err != nil {
		m.fail(log, job, target, "floor plan parsing failed", err)
		return
	}

	// Stage 3: validate and install as preview
	m.updateJobStatus(job, StatusValidating, "validating scene")
	report, err := target.SetPreview(result.SceneDSL)
	if err != nil {
		m.fail(log, job, target, "parsed scene is invalid", err)
		return
	}

	m.mu.Lock()
	preview := result.Preview
	job.Preview = &preview
	if report != nil {
		job.Defaulted = len(report.Defaults)
	}
	m.mu.Unlock()

	m.finish(job, StatusComplete, "", "")
	log.Info("import complete", zap.Int("rooms", preview.RoomCount))
}

// fail marks the job failed and mirrors the message into the session status.
func (m *Manager) fail(log *zap.Logger, job *Job, target Target, what string, err error) {
	msg := fmt.Sprintf("%s: %v", what, err)
	kind := ""
	var verr *scene.ValidationError
	if errors.As(err, &verr) {
		kind = string(verr.Kind)
	}
	m.finish(job, StatusError, msg, kind)
	target.SetError(msg)
	log.Warn("import failed", zap.String("stage", what), zap.Error(err))
}

// updateJobStatus updates job progress (thread-safe).
// Classifying: 0-30%, Parsing: 30-80%, Validating: 80-100%.
func (m *Manager) updateJobStatus(job *Job, status Status, stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job.Status = status
	job.Stage = stage
	switch status {
	case StatusClassifying:
		job.Progress = 0
	case StatusParsing:
		job.Progress = 30
	case StatusValidating:
		job.Progress = 80
	}
}

// finish marks the job terminal (thread-safe).
func (m *Manager) finish(job *Job, status Status, errMsg, errKind string) {
	m.mu.Lock()
	job.Status = status
	job.Stage = string(status)
	job.Progress = 100
	job.Error = errMsg
	job.ErrorKind = errKind
	now := time.Now()
	job.CompletedAt = &now
	m.mu.Unlock()

	m.metrics.RecordImportJob(string(status))
}

// CleanupOldJobs removes finished jobs older than maxAge and returns how many
// were removed.
func (m *Manager) CleanupOldJobs(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for id, job := range m.jobs {
		if job.Status.Finished() && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(m.jobs, id)
			removed++
		}
	}
	return removed
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

package session

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/home-designer/backend/internal/engine"
	"github.com/home-designer/backend/internal/metrics"
	"github.com/home-designer/backend/internal/models"
	"github.com/home-designer/backend/internal/scene"
)

// ErrPreviewPending is returned by canonical mutations while a preview is held.
// Commit or cancel the preview first.
var ErrPreviewPending = errors.New("a preview is pending; commit or cancel it first")

// ErrSceneChanged is returned when operations were prepared against a revision
// that is no longer current.
var ErrSceneChanged = errors.New("scene changed since the operations were prepared")

// EventType names a change notification.
type EventType string

const (
	EventSceneLoaded      EventType = "scene_loaded"
	EventSceneCleared     EventType = "scene_cleared"
	EventSceneChanged     EventType = "scene_changed"
	EventPreviewSet       EventType = "preview_set"
	EventPreviewCommitted EventType = "preview_committed"
	EventPreviewCancelled EventType = "preview_cancelled"
	EventStatusChanged    EventType = "status_changed"
)

// Event tells subscribers that the canonical document, the preview or the status
// changed. Renderers re-read the session on receipt.
type Event struct {
	Type        EventType                    `json:"type" msgpack:"type"`
	SessionID   string                       `json:"sessionId" msgpack:"sessionId"`
	Revision    int64                        `json:"revision" msgpack:"revision"`
	State       models.PreviewState          `json:"state" msgpack:"state"`
	Diagnostics []models.OperationDiagnostic `json:"diagnostics,omitempty" msgpack:"diagnostics,omitempty"`
	Status      *Status                      `json:"status,omitempty" msgpack:"status,omitempty"`
	At          time.Time                    `json:"at" msgpack:"at"`
}

// Status is the loading/error banner state shown by the editor.
type Status struct {
	IsLoading      bool   `json:"isLoading" msgpack:"isLoading"`
	LoadingMessage string `json:"loadingMessage,omitempty" msgpack:"loadingMessage,omitempty"`
	Error          string `json:"error,omitempty" msgpack:"error,omitempty"`
}

// Session owns one canonical scene document and at most one preview fork.
// All methods are serialised by a per-session mutex.
type Session struct {
	id        string
	createdAt time.Time

	mu           sync.Mutex
	doc          *models.SceneDocument
	preview      *models.SceneDocument
	revision     int64
	status       Status
	lastAccessed time.Time
	closed       bool

	subs    map[int]chan Event
	nextSub int

	engine    *engine.Engine
	validator *scene.Validator
	logger    *zap.Logger
	metrics   *metrics.Collector
}

func newSession(id string, ids scene.IDGenerator, logger *zap.Logger, m *metrics.Collector) *Session {
	now := time.Now()
	return &Session{
		id:           id,
		createdAt:    now,
		lastAccessed: now,
		doc:          models.NewSceneDocument(),
		subs:         make(map[int]chan Event),
		engine:       engine.New(ids, engine.WithLogger(logger), engine.WithMetrics(m)),
		validator:    scene.NewValidator(ids),
		logger:       logger.With(zap.String("session", shortID(id))),
		metrics:      m,
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Scene returns a copy of the canonical document.
func (s *Session) Scene() *models.SceneDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Preview returns a copy of the preview fork, if one is held.
func (s *Session) Preview() (*models.SceneDocument, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.preview == nil {
		return nil, false
	}
	return s.preview.Clone(), true
}

// State reports whether a preview is held.
func (s *Session) State() models.PreviewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Revision counts canonical document changes.
func (s *Session) Revision() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Snapshot is a consistent view of the session taken under one lock.
type Snapshot struct {
	Revision int64
	State    models.PreviewState
	Scene    *models.SceneDocument
	Preview  *models.SceneDocument
}

// Snapshot returns copies of the canonical document and preview together with
// the revision and state they belong to.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Revision: s.revision,
		State:    s.stateLocked(),
		Scene:    s.doc.Clone(),
	}
	if s.preview != nil {
		snap.Preview = s.preview.Clone()
	}
	return snap
}

// Outcome is a batch result together with the revision and state the session was
// left in.
type Outcome struct {
	engine.Result
	Revision int64
	State    models.PreviewState
}

func (s *Session) outcomeLocked(res engine.Result) Outcome {
	return Outcome{Result: res, Revision: s.revision, State: s.stateLocked()}
}

// Info summarises the session.
func (s *Session) Info() models.EditingSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.EditingSession{
		ID:             s.id,
		State:          s.stateLocked(),
		Revision:       s.revision,
		IsLoading:      s.status.IsLoading,
		LoadingMessage: s.status.LoadingMessage,
		Error:          s.status.Error,
		RoomCount:      len(s.doc.Rooms),
		WallCount:      len(s.doc.Walls),
		ObjectCount:    len(s.doc.Objects),
		CreatedAt:      s.createdAt,
		LastAccessed:   s.lastAccessed,
	}
}

// LoadScene validates raw and makes it the canonical document. Any preview is
// discarded and the error banner cleared. On error nothing changes.
func (s *Session) LoadScene(raw any) (*scene.Report, error) {
	doc, report, err := s.validator.ValidateWithReport(nil, raw)
	if err != nil {
		s.metrics.RecordValidationFailure(string(scene.KindOf(err)))
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(doc, EventSceneLoaded)
	s.logger.Info("scene loaded",
		zap.Int("rooms", len(doc.Rooms)),
		zap.Int("walls", len(doc.Walls)),
		zap.Int("objects", len(doc.Objects)),
		zap.Int("defaults", len(report.Defaults)))
	return report, nil
}

// ClearScene resets the canonical document to empty and discards any preview.
func (s *Session) ClearScene() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(models.NewSceneDocument(), EventSceneCleared)
}

func (s *Session) replaceLocked(doc *models.SceneDocument, evt EventType) {
	if s.preview != nil {
		s.metrics.RecordPreviewTransition("discard")
	}
	s.doc = doc
	s.preview = nil
	s.status.Error = ""
	s.revision++
	s.emitLocked(Event{Type: evt})
}

// Apply runs a batch of operations against the canonical document. A batch that
// changes nothing leaves the revision alone and emits no event.
func (s *Session) Apply(ops []models.Operation) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.preview != nil {
		return Outcome{}, ErrPreviewPending
	}
	res := s.engine.Run(s.doc, ops)
	if res.Changed {
		s.doc = res.Document
		s.revision++
		s.emitLocked(Event{Type: EventSceneChanged, Diagnostics: res.Diagnostics})
	}
	res.Document = s.doc.Clone()
	return s.outcomeLocked(res), nil
}

// applySingle runs one operation and returns the resulting document with the id
// of any element it created.
func (s *Session) applySingle(op models.Operation) (*models.SceneDocument, string, error) {
	res, err := s.Apply([]models.Operation{op})
	if err != nil {
		return nil, "", err
	}
	if len(res.Added) == 0 {
		return res.Document, "", nil
	}
	return res.Document, res.Added[0].ID, nil
}

// AddRoom appends a room and returns it with its generated id.
func (s *Session) AddRoom(op models.AddRoom) (models.Room, error) {
	doc, id, err := s.applySingle(op)
	if err != nil {
		return models.Room{}, err
	}
	for _, r := range doc.Rooms {
		if r.ID == id {
			return r, nil
		}
	}
	return models.Room{}, nil
}

// AddWall appends a wall and returns it with its generated id.
func (s *Session) AddWall(op models.AddWall) (models.Wall, error) {
	doc, id, err := s.applySingle(op)
	if err != nil {
		return models.Wall{}, err
	}
	w, _ := doc.FindWall(id)
	return w, nil
}

// AddObject places furniture and returns it with its generated id.
func (s *Session) AddObject(op models.AddObject) (models.PlacedObject, error) {
	doc, id, err := s.applySingle(op)
	if err != nil {
		return models.PlacedObject{}, err
	}
	o, _ := doc.FindObject(id)
	return o, nil
}

// RemoveObject drops an object. Unknown ids are not an error.
func (s *Session) RemoveObject(objectID string) error {
	_, _, err := s.applySingle(models.RemoveObject{ObjectID: objectID})
	return err
}

// UpdateMaterial overwrites the material of one surface.
func (s *Session) UpdateMaterial(surfaceID string, m models.Material) error {
	_, _, err := s.applySingle(models.UpdateMaterial{SurfaceID: surfaceID, Material: m})
	return err
}

// SetPreview validates raw and installs it as the preview, replacing any
// existing preview wholesale. The canonical document is untouched.
func (s *Session) SetPreview(raw any) (*scene.Report, error) {
	doc, report, err := s.validator.ValidateWithReport(nil, raw)
	if err != nil {
		s.metrics.RecordValidationFailure(string(scene.KindOf(err)))
		return nil, err
	}
	s.SetPreviewDocument(doc)
	return report, nil
}

// SetPreviewDocument installs an already validated document as the preview.
func (s *Session) SetPreviewDocument(doc *models.SceneDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preview = doc.Clone()
	s.metrics.RecordPreviewTransition("set")
	s.emitLocked(Event{Type: EventPreviewSet})
}

// PreviewOperations forks the current canonical document, applies ops to the fork
// and installs the fork as the preview.
func (s *Session) PreviewOperations(ops []models.Operation) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previewLocked(ops)
}

// PreviewOperationsAt is PreviewOperations for a batch prepared against revision
// rev. It fails with ErrSceneChanged when the canonical document moved on since.
func (s *Session) PreviewOperationsAt(rev int64, ops []models.Operation) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revision != rev {
		return Outcome{}, ErrSceneChanged
	}
	return s.previewLocked(ops), nil
}

func (s *Session) previewLocked(ops []models.Operation) Outcome {
	res := s.engine.Run(s.doc, ops)
	s.preview = res.Document
	s.metrics.RecordPreviewTransition("set")
	s.emitLocked(Event{Type: EventPreviewSet, Diagnostics: res.Diagnostics})
	res.Document = s.preview.Clone()
	return s.outcomeLocked(res)
}

// CommitPreview makes the preview canonical. It reports false, and does nothing,
// when no preview is held.
func (s *Session) CommitPreview() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.preview == nil {
		return false
	}
	s.doc = s.preview
	s.preview = nil
	s.revision++
	s.metrics.RecordPreviewTransition("commit")
	s.emitLocked(Event{Type: EventPreviewCommitted})
	return true
}

// CancelPreview discards the preview. It reports false when none was held.
func (s *Session) CancelPreview() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.preview == nil {
		return false
	}
	s.preview = nil
	s.metrics.RecordPreviewTransition("cancel")
	s.emitLocked(Event{Type: EventPreviewCancelled})
	return true
}

// SetLoading toggles the loading banner. The message is dropped when loading ends.
func (s *Session) SetLoading(loading bool, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.IsLoading = loading
	s.status.LoadingMessage = ""
	if loading {
		s.status.LoadingMessage = message
	}
	s.emitStatusLocked()
}

// SetError shows an error banner and ends any loading state.
func (s *Session) SetError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = Status{Error: message}
	s.emitStatusLocked()
}

// ClearError hides the error banner.
func (s *Session) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Error == "" {
		return
	}
	s.status.Error = ""
	s.emitStatusLocked()
}

// Status returns the current banner state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) emitStatusLocked() {
	st := s.status
	s.emitLocked(Event{Type: EventStatusChanged, Status: &st})
}

// Subscribe returns a channel of change events and a function that ends the
// subscription. Slow subscribers miss events rather than block the session.
func (s *Session) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	key := s.nextSub
	s.nextSub++
	s.subs[key] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[key]; ok {
				delete(s.subs, key)
				close(c)
			}
		})
	}
}

func (s *Session) subscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Session) emitLocked(evt Event) {
	evt.SessionID = s.id
	evt.Revision = s.revision
	evt.State = s.stateLocked()
	evt.At = time.Now()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			s.logger.Debug("dropping event for slow subscriber", zap.String("event", string(evt.Type)))
		}
	}
}

func (s *Session) stateLocked() models.PreviewState {
	if s.preview != nil {
		return models.PreviewStatePreviewing
	}
	return models.PreviewStateClean
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastAccessed = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessed, len(s.subs) == 0 && !s.status.IsLoading
}

// close ends every subscription. Later events go nowhere.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for key, ch := range s.subs {
		delete(s.subs, key)
		close(ch)
	}
}

// shortID safely truncates an ID for logging (handles short IDs gracefully)
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

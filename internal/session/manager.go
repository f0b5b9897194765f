// Package session keeps the editing sessions of one backend process. Each session
// owns a canonical scene document plus an optional preview fork.
package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/home-designer/backend/internal/logging"
	"github.com/home-designer/backend/internal/metrics"
	"github.com/home-designer/backend/internal/models"
	"github.com/home-designer/backend/internal/scene"
)

// DefaultMaxSessions limits concurrent sessions to prevent memory exhaustion
const DefaultMaxSessions = 50

// SessionKeepAliveWindow protects recently used sessions from cleanup and eviction
const SessionKeepAliveWindow = 5 * time.Minute

// ErrTooManySessions is returned by Create when the registry is full of sessions
// that are in use.
var ErrTooManySessions = errors.New("too many active editing sessions")

// Options configures a Manager.
type Options struct {
	MaxSessions int
	// IDStyle selects element ids: "sequence" gives each session its own counter
	// (obj_1, obj_2, ...); anything else uses UUIDs.
	IDStyle string
	Logger  *zap.Logger
	Metrics *metrics.Collector
}

// Manager is the process-wide registry of editing sessions.
type Manager struct {
	sessions    map[string]*Session
	mu          sync.RWMutex
	maxSessions int
	idStyle     string
	logger      *zap.Logger
	metrics     *metrics.Collector
}

// NewManager creates a session manager.
func NewManager(opts Options) *Manager {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	return &Manager{
		sessions:    make(map[string]*Session),
		maxSessions: opts.MaxSessions,
		idStyle:     opts.IDStyle,
		logger:      logging.Component(opts.Logger, "session"),
		metrics:     opts.Metrics,
	}
}

func (m *Manager) newIDGenerator() scene.IDGenerator {
	if m.idStyle == "sequence" {
		return scene.NewSequenceGenerator()
	}
	return scene.UUIDGenerator{}
}

// Create starts a new session with an empty scene. When the registry is full the
// least recently used idle session is evicted first.
func (m *Manager) Create() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.maxSessions && !m.evictLocked() {
		return nil, ErrTooManySessions
	}

	id := uuid.New().String()
	s := newSession(id, m.newIDGenerator(), m.logger, m.metrics)
	m.sessions[id] = s
	m.metrics.SetActiveSessions(len(m.sessions))
	m.logger.Info("session created", zap.String("session", shortID(id)))
	return s, nil
}

// evictLocked removes the least recently used idle session outside the keep-alive
// window. It reports whether one was removed.
func (m *Manager) evictLocked() bool {
	keepAliveCutoff := time.Now().Add(-SessionKeepAliveWindow)
	var victim *Session
	var victimTime time.Time
	for _, s := range m.sessions {
		last, idle := s.idleSince()
		if !idle || last.After(keepAliveCutoff) {
			continue
		}
		if victim == nil || last.Before(victimTime) {
			victim, victimTime = s, last
		}
	}
	if victim == nil {
		return false
	}
	m.removeLocked(victim.id)
	m.logger.Info("evicted idle session to free a slot",
		zap.String("session", shortID(victim.id)),
		zap.Duration("idle", time.Since(victimTime).Round(time.Second)))
	return true
}

// Get returns a session by id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// List returns summaries of all sessions, oldest first.
func (m *Manager) List() []models.EditingSession {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	out := make([]models.EditingSession, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Info())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Touch updates the last-access time of a session.
// Returns false if the session does not exist.
func (m *Manager) Touch(id string) bool {
	s, ok := m.Get(id)
	if !ok {
		return false
	}
	s.touch()
	return true
}

// Delete removes a session and ends its subscriptions.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	m.removeLocked(id)
	return true
}

func (m *Manager) removeLocked(id string) {
	if s, ok := m.sessions[id]; ok {
		s.close()
		delete(m.sessions, id)
	}
	m.metrics.SetActiveSessions(len(m.sessions))
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupIdleSessions removes idle sessions not accessed within maxAge and returns
// how many were removed. Sessions with subscribers or a running load are kept.
func (m *Manager) CleanupIdleSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, s := range m.sessions {
		last, idle := s.idleSince()
		if !idle || !last.Before(cutoff) {
			continue
		}
		m.removeLocked(id)
		removed++
		m.logger.Info("cleaned up idle session",
			zap.String("session", shortID(id)),
			zap.Duration("idle", time.Since(last).Round(time.Second)))
	}
	return removed
}

// RunCleanup calls CleanupIdleSessions every interval until ctx is done.
func (m *Manager) RunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CleanupIdleSessions(maxAge)
		}
	}
}

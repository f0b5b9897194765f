package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionManager(t *testing.T) {
	m := NewManager(Options{MaxSessions: 3, IDStyle: "sequence"})

	sess, err := m.Create()
	require.NoError(t, err)

	got, ok := m.Get(sess.ID())
	require.True(t, ok)
	assert.Same(t, sess, got)
	assert.Equal(t, 1, m.Len())

	_, err = sess.AddWall(wallOp(0, 0, 10, 0))
	require.NoError(t, err)

	list := m.List()
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].WallCount)

	assert.True(t, m.Delete(sess.ID()))
	assert.False(t, m.Delete(sess.ID()))
	_, ok = m.Get(sess.ID())
	assert.False(t, ok)
}

func TestManager_SequenceIDsArePerSession(t *testing.T) {
	m := NewManager(Options{IDStyle: "sequence"})
	a, _ := m.Create()
	b, _ := m.Create()

	wa, err := a.AddWall(wallOp(0, 0, 1, 0))
	require.NoError(t, err)
	wb, err := b.AddWall(wallOp(0, 0, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, "wall_1", wa.ID)
	assert.Equal(t, "wall_1", wb.ID)
}

func TestManager_Touch(t *testing.T) {
	m := NewManager(Options{})
	s, _ := m.Create()
	s.lastAccessed = time.Now().Add(-time.Hour)

	assert.True(t, m.Touch(s.ID()))
	assert.WithinDuration(t, time.Now(), s.Info().LastAccessed, time.Second)
	assert.False(t, m.Touch("missing"))
}

func TestManager_CleanupIdleSessions(t *testing.T) {
	m := NewManager(Options{})

	stale, _ := m.Create()
	stale.lastAccessed = time.Now().Add(-2 * time.Hour)

	watched, _ := m.Create()
	watched.lastAccessed = time.Now().Add(-2 * time.Hour)
	_, cancel := watched.Subscribe(1)
	defer cancel()

	loading, _ := m.Create()
	loading.lastAccessed = time.Now().Add(-2 * time.Hour)
	loading.SetLoading(true, "Analyzing floor plan...")

	fresh, _ := m.Create()

	removed := m.CleanupIdleSessions(time.Hour)
	assert.Equal(t, 1, removed)

	_, ok := m.Get(stale.ID())
	assert.False(t, ok)
	for _, s := range []*Session{watched, loading, fresh} {
		_, ok := m.Get(s.ID())
		assert.True(t, ok)
	}
}

func TestManager_EvictsLeastRecentlyUsed(t *testing.T) {
	m := NewManager(Options{MaxSessions: 2})

	older, _ := m.Create()
	older.lastAccessed = time.Now().Add(-time.Hour)
	newer, _ := m.Create()
	newer.lastAccessed = time.Now().Add(-30 * time.Minute)

	third, err := m.Create()
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())

	_, ok := m.Get(older.ID())
	assert.False(t, ok, "oldest idle session should be evicted")
	_, ok = m.Get(newer.ID())
	assert.True(t, ok)
	_, ok = m.Get(third.ID())
	assert.True(t, ok)
}

func TestManager_FullOfActiveSessions(t *testing.T) {
	m := NewManager(Options{MaxSessions: 1})
	_, err := m.Create()
	require.NoError(t, err)

	// The only session is inside the keep-alive window.
	_, err = m.Create()
	assert.ErrorIs(t, err, ErrTooManySessions)
}

func TestManager_DeleteClosesSubscriptions(t *testing.T) {
	m := NewManager(Options{})
	s, _ := m.Create()
	events, cancel := s.Subscribe(1)

	m.Delete(s.ID())
	_, open := <-events
	assert.False(t, open)

	// Cancelling after close is harmless, as is emitting on a deleted session.
	cancel()
	s.ClearScene()
}

func TestManager_RunCleanupStopsWithContext(t *testing.T) {
	m := NewManager(Options{})
	s, _ := m.Create()
	s.lastAccessed = time.Now().Add(-time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.RunCleanup(ctx, 10*time.Millisecond, time.Minute)
		close(done)
	}()

	assert.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup loop did not stop")
	}
}

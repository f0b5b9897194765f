package upload

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/home-designer/backend/internal/models"
	"github.com/home-designer/backend/internal/session"
	"github.com/home-designer/backend/internal/testutil"
	"github.com/home-designer/backend/internal/vision"
)

const twoRoomPlan = `{
	"preview": {"roomCount": 2, "totalSqFt": 300, "rooms": ["Kitchen", "Living"]},
	"sceneDsl": {
		"rooms": [
			{"name": "Kitchen", "bounds": [[0,0],[10,10]]},
			{"name": "Living", "bounds": [[10,0],[30,10]]}
		],
		"walls": [{"id": "w1", "from": [0,0], "to": [30,0]}],
		"openings": [{"wallId": "w1", "type": "door", "position": 0.5, "width": 3}]
	}
}`

func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	sess, err := session.NewManager(session.Options{IDStyle: "sequence"}).Create()
	require.NoError(t, err)
	return sess
}

func runJob(t *testing.T, m *Manager, sess *session.Session) *Job {
	t.Helper()
	started := m.StartJob(sess, "asset-1", "aW1hZ2U=")
	m.Wait()
	job, ok := m.GetJob(started.ID)
	require.True(t, ok)
	return job
}

func TestImport_Complete(t *testing.T) {
	fake := testutil.NewFakeVision(twoRoomPlan)
	m := NewManager(fake, Options{})
	sess := newTestSession(t)

	job := runJob(t, m, sess)
	assert.Equal(t, StatusComplete, job.Status)
	assert.Equal(t, 100.0, job.Progress)
	assert.Equal(t, sess.ID(), job.SessionID)
	assert.Equal(t, "asset-1", job.AssetID)
	require.NotNil(t, job.Preview)
	assert.Equal(t, []string{"Kitchen", "Living"}, job.Preview.Rooms)
	assert.True(t, job.Classification.IsFloorPlan())
	assert.Positive(t, job.Defaulted)
	assert.NotNil(t, job.CompletedAt)

	assert.Equal(t, []string{"classify", "floorplan"}, fake.Calls)
	assert.Equal(t, "aW1hZ2U=", fake.LastImage)

	// The import lands in the preview; canonical is untouched until commit.
	assert.Equal(t, models.PreviewStatePreviewing, sess.State())
	assert.Empty(t, sess.Scene().Rooms)
	preview, ok := sess.Preview()
	require.True(t, ok)
	assert.Len(t, preview.Rooms, 2)
	assert.Equal(t, "w1", preview.Openings[0].WallID)

	st := sess.Status()
	assert.False(t, st.IsLoading)
	assert.Empty(t, st.Error)

	require.True(t, sess.CommitPreview())
	assert.Len(t, sess.Scene().Rooms, 2)
}

func TestImport_RejectedWhenNotAFloorPlan(t *testing.T) {
	fake := testutil.NewFakeVision(twoRoomPlan)
	fake.ClassifyReply = `{"type": "furniture", "confidence": 0.8, "details": "a chair"}`
	m := NewManager(fake, Options{})
	sess := newTestSession(t)

	job := runJob(t, m, sess)
	assert.Equal(t, StatusRejected, job.Status)
	assert.Contains(t, job.Error, "furniture")
	assert.Equal(t, []string{"classify"}, fake.Calls)
	assert.Equal(t, models.PreviewStateClean, sess.State())
	assert.Contains(t, sess.Status().Error, "not a floor plan")
}

func TestImport_RemoteFailure(t *testing.T) {
	fake := testutil.NewFakeVision(twoRoomPlan)
	fake.FloorPlanErr = &vision.RemoteServiceFailure{Task: vision.TaskFloorPlan, StatusCode: 500, Message: "boom"}
	m := NewManager(fake, Options{})
	sess := newTestSession(t)

	job := runJob(t, m, sess)
	assert.Equal(t, StatusError, job.Status)
	assert.Contains(t, job.Error, "floor plan parsing failed")
	assert.Empty(t, job.ErrorKind)
	assert.Equal(t, models.PreviewStateClean, sess.State())

	st := sess.Status()
	assert.False(t, st.IsLoading)
	assert.NotEmpty(t, st.Error)
}

func TestImport_InvalidScene(t *testing.T) {
	fake := testutil.NewFakeVision(`{"sceneDsl": {"walls": [{"id": "w1", "from": [0,0], "to": [0,0]}]}}`)
	m := NewManager(fake, Options{})
	sess := newTestSession(t)

	job := runJob(t, m, sess)
	assert.Equal(t, StatusError, job.Status)
	assert.Equal(t, "InvalidGeometry", job.ErrorKind)
	_, ok := sess.Preview()
	assert.False(t, ok)
}

func TestImport_ClearsPreviousError(t *testing.T) {
	fake := testutil.NewFakeVision(twoRoomPlan)
	fake.ClassifyErr = errors.New("offline")
	m := NewManager(fake, Options{})
	sess := newTestSession(t)

	runJob(t, m, sess)
	require.NotEmpty(t, sess.Status().Error)

	fake.ClassifyErr = nil
	job := runJob(t, m, sess)
	assert.Equal(t, StatusComplete, job.Status)
	assert.Empty(t, sess.Status().Error)
}

func TestImport_LoadingWhileRunning(t *testing.T) {
	fake := testutil.NewFakeVision(twoRoomPlan)
	fake.Block = make(chan struct{})
	m := NewManager(fake, Options{})
	sess := newTestSession(t)

	started := m.StartJob(sess, "", "x")
	assert.Equal(t, StatusQueued, started.Status)

	require.Eventually(t, func() bool {
		return sess.Status().IsLoading
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Analyzing image...", sess.Status().LoadingMessage)

	job, _ := m.GetJob(started.ID)
	assert.Equal(t, StatusClassifying, job.Status)

	close(fake.Block)
	m.Wait()
	job, _ = m.GetJob(started.ID)
	assert.Equal(t, StatusComplete, job.Status)
	assert.False(t, sess.Status().IsLoading)
}

func TestCleanupOldJobs(t *testing.T) {
	m := NewManager(testutil.NewFakeVision(twoRoomPlan), Options{})
	sess := newTestSession(t)
	job := runJob(t, m, sess)

	assert.Zero(t, m.CleanupOldJobs(time.Hour))
	_, ok := m.GetJob(job.ID)
	assert.True(t, ok)

	assert.Equal(t, 1, m.CleanupOldJobs(-time.Second))
	_, ok = m.GetJob(job.ID)
	assert.False(t, ok)
}

func TestGetJob_Missing(t *testing.T) {
	m := NewManager(testutil.NewFakeVision(""), Options{})
	_, ok := m.GetJob("nope")
	assert.False(t, ok)
}

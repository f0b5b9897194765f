package api

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/home-designer/backend/internal/config"
	"github.com/home-designer/backend/internal/metrics"
	"github.com/home-designer/backend/internal/parser"
	"github.com/home-designer/backend/internal/session"
	"github.com/home-designer/backend/internal/testutil"
	"github.com/home-designer/backend/internal/upload"
)

const twoRoomScene = `{
	"rooms": [
		{"name": "Kitchen", "bounds": [[0,0],[10,10]]},
		{"name": "Living", "bounds": [[10,0],[30,10]]}
	],
	"walls": [{"id": "w1", "from": [0,0], "to": [30,0]}],
	"openings": [{"wallId": "w1", "type": "door", "position": 0.5, "width": 3}]
}`

const twoRoomPlan = `{
	"preview": {"roomCount": 2, "totalSqFt": 300, "rooms": ["Kitchen", "Living"]},
	"sceneDsl": ` + twoRoomScene + `
}`

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

func pngBase64() string {
	return base64.StdEncoding.EncodeToString(pngBytes)
}

type testEnv struct {
	e        *echo.Echo
	sessions *session.Manager
	store    *testutil.MockStorage
	vision   *testutil.FakeVision
	imports  *upload.Manager
	metrics  *metrics.Collector
}

func newTestEnv(t *testing.T, cfg config.ServerConfig) *testEnv {
	t.Helper()
	env := &testEnv{
		sessions: session.NewManager(session.Options{IDStyle: "sequence"}),
		store:    testutil.NewMockStorage(),
		vision:   testutil.NewFakeVision(twoRoomPlan),
		metrics:  metrics.NewCollector("test", nil),
	}
	env.imports = upload.NewManager(env.vision, upload.Options{})
	t.Cleanup(env.imports.Shutdown)

	env.e = echo.New()
	limiter := SetupMiddleware(env.e, cfg, zap.NewNop(), env.metrics)
	handlers := NewHandlers(&Dependencies{
		Store:            env.store,
		Sessions:         env.sessions,
		Imports:          env.imports,
		Interpreter:      env.vision,
		VisionConfigured: true,
		Catalog:          parser.DefaultCatalog(),
		Metrics:          env.metrics,
		Version:          "test",
	})
	RegisterRoutes(env.e, handlers, env.metrics, limiter)
	return env
}

func defaultServerConfig() config.ServerConfig {
	return config.ServerConfig{BodyLimit: "2M"}
}

func (env *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) createSession(t *testing.T) *session.Session {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var info struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	sess, ok := env.sessions.Get(info.ID)
	require.True(t, ok)
	return sess
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func sessionPath(sess *session.Session, suffix string) string {
	return "/api/sessions/" + sess.ID() + suffix
}

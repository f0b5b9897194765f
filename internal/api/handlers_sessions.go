// handlers_sessions.go - Editing session lifecycle handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/home-designer/backend/internal/session"
)

// SessionHandlerImpl implements the SessionHandler interface
type SessionHandlerImpl struct {
	sessions *session.Manager
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *session.Manager) SessionHandler {
	return &SessionHandlerImpl{sessions: sessions}
}

// lookupSession resolves the :id path parameter and marks the session as used.
func lookupSession(c echo.Context, sessions *session.Manager) (*session.Session, error) {
	id := c.Param("id")
	sess, ok := sessions.Get(id)
	if !ok {
		return nil, NewNotFoundError("session", id)
	}
	sessions.Touch(id)
	return sess, nil
}

// HandleCreateSession opens a new editing session with an empty scene
func (h *SessionHandlerImpl) HandleCreateSession(c echo.Context) error {
	sess, err := h.sessions.Create()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sess.Info())
}

// HandleListSessions returns all open editing sessions
func (h *SessionHandlerImpl) HandleListSessions(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"sessions": h.sessions.List(),
	})
}

// HandleGetSession returns one session's summary and status banner
func (h *SessionHandlerImpl) HandleGetSession(c echo.Context) error {
	sess, err := lookupSession(c, h.sessions)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess.Info())
}

// HandleDeleteSession closes a session and its event subscriptions
func (h *SessionHandlerImpl) HandleDeleteSession(c echo.Context) error {
	id := c.Param("id")
	if !h.sessions.Delete(id) {
		return NewNotFoundError("session", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleSessionKeepAlive updates the session's last access time
func (h *SessionHandlerImpl) HandleSessionKeepAlive(c echo.Context) error {
	id := c.Param("id")
	if !h.sessions.Touch(id) {
		return NewNotFoundError("session", id)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/home-designer/backend/internal/session"
)

// WebSocket message types for the session event feed
const (
	// Client -> Server messages
	MsgTypePing = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeEvent     = "event"
	MsgTypeClosed    = "closed"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

const eventBuffer = 32

// WSMessage is one frame on the event feed. Payload is a session.Event for
// "event" frames and the session summary for "connected".
type WSMessage struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// WSErrorResponse is the payload of an "error" frame
type WSErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// EventHandlerImpl streams session change notifications over WebSocket
type EventHandlerImpl struct {
	sessions *session.Manager
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewEventHandler creates a new WebSocket event handler
func NewEventHandler(sessions *session.Manager, logger *zap.Logger) EventHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventHandlerImpl{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Editors are served from other origins in development
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
		},
		logger: logger.With(zap.String("component", "events")),
	}
}

// wsConn serialises writes; gorilla allows one concurrent writer.
type wsConn struct {
	ws     *websocket.Conn
	binary bool
	mu     sync.Mutex
}

func (c *wsConn) send(msg WSMessage) error {
	msg.Timestamp = time.Now().UnixMilli()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.binary {
		return c.ws.WriteJSON(msg)
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(msg); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.BinaryMessage, buf.Bytes())
}

func (c *wsConn) read() (WSMessage, error) {
	var msg WSMessage
	kind, data, err := c.ws.ReadMessage()
	if err != nil {
		return msg, err
	}
	if kind == websocket.BinaryMessage {
		dec := msgpack.NewDecoder(bytes.NewReader(data))
		dec.SetCustomStructTag("json")
		err = dec.Decode(&msg)
	} else {
		err = json.Unmarshal(data, &msg)
	}
	return msg, err
}

// HandleEvents upgrades the connection and forwards the session's change events
// until the client disconnects or the session is deleted. ?format=msgpack selects
// binary frames.
func (h *EventHandlerImpl) HandleEvents(c echo.Context) error {
	sess, err := lookupSession(c, h.sessions)
	if err != nil {
		return err
	}
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	conn := &wsConn{ws: ws, binary: c.QueryParam("format") == "msgpack"}
	log := h.logger.With(zap.String("session", sess.ID()))
	log.Debug("event subscriber connected")

	events, cancel := sess.Subscribe(eventBuffer)
	defer cancel()

	if err := conn.send(WSMessage{Type: MsgTypeConnected, Payload: sess.Info()}); err != nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			msg, err := conn.read()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn("event connection error", zap.Error(err))
				}
				return
			}
			switch msg.Type {
			case MsgTypePing:
				// Respond with pong to keep connection alive
				_ = conn.send(WSMessage{Type: MsgTypePong})
			default:
				_ = conn.send(WSMessage{
					Type:    MsgTypeError,
					Payload: WSErrorResponse{Message: "Unknown message type: " + msg.Type, Code: "INVALID_TYPE"},
				})
			}
		}
	}()

	for {
		select {
		case evt, ok := <-events:
			if !ok {
				// Session deleted or evicted
				_ = conn.send(WSMessage{Type: MsgTypeClosed})
				log.Debug("session closed, ending event feed")
				return nil
			}
			if err := conn.send(WSMessage{Type: MsgTypeEvent, Payload: evt}); err != nil {
				log.Debug("failed to send event", zap.Error(err))
				return nil
			}
		case <-done:
			log.Debug("event subscriber disconnected")
			return nil
		}
	}
}

package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// One slow client must not stall notifications to the rest, so every send
// carries its own write deadline.
const writeWait = 5 * time.Second

// ErrMeetingFull is returned when a meeting already holds the maximum
// number of live viewer connections.
var ErrMeetingFull = errors.New("meeting connection limit reached")

// Notification is the ephemeral frame pushed to viewers. It is never
// persisted; delivery is best-effort per connection.
type Notification struct {
	Type      string            `json:"type"`
	Status    string            `json:"status"`
	Message   string            `json:"message"`
	Timestamp string            `json:"timestamp"`
	Data      *NotificationData `json:"data,omitempty"`
}

// NotificationData carries transcription text on completion frames.
type NotificationData struct {
	TextSnippet string `json:"text_snippet,omitempty"`
	FullText    string `json:"full_text,omitempty"`
}

// session wraps one live socket. Writes on a gorilla connection must be
// serialized, so each session carries its own write lock.
type session struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *session) send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub is the per-meeting registry of live viewer connections. All methods
// are safe for concurrent use.
type Hub struct {
	mu       sync.RWMutex
	meetings map[string]map[string]*session
	maxConns int
	logger   *zap.Logger
}

func NewHub(maxConns int, logger *zap.Logger) *Hub {
	return &Hub{
		meetings: make(map[string]map[string]*session),
		maxConns: maxConns,
		logger:   logger,
	}
}

// Register admits an already-upgraded connection into a meeting and returns
// its connection id plus the meeting's connection count after admission. The
// count is computed under the registry lock so callers can act on "this was
// the first connection" without racing a concurrent Register. When the
// meeting is at capacity the connection is told why on the open socket and
// then closed with a policy-violation frame; rejecting after the handshake
// is deliberate so the client can always decode the rejection message.
func (h *Hub) Register(conn *websocket.Conn, meetingID string) (string, int, error) {
	h.mu.Lock()
	conns, ok := h.meetings[meetingID]
	if ok && len(conns) >= h.maxConns {
		h.mu.Unlock()
		h.reject(conn, meetingID)
		return "", 0, ErrMeetingFull
	}
	if !ok {
		conns = make(map[string]*session)
		h.meetings[meetingID] = conns
	}
	connID := uuid.New().String()
	conns[connID] = &session{conn: conn}
	count := len(conns)
	h.mu.Unlock()

	h.logger.Info("Viewer connected",
		zap.String("meeting_id", meetingID),
		zap.String("connection_id", connID),
		zap.Int("connections", count),
	)
	return connID, count, nil
}

func (h *Hub) reject(conn *websocket.Conn, meetingID string) {
	frame := Notification{
		Type:      "connection_error",
		Status:    "rejected",
		Message:   "Connection limit reached for this meeting",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if payload, err := json.Marshal(frame); err == nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteMessage(websocket.TextMessage, payload)
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "meeting connection limit reached"))
	conn.Close()

	h.logger.Warn("Viewer rejected, meeting at capacity",
		zap.String("meeting_id", meetingID),
		zap.Int("limit", h.maxConns),
	)
}

// Unregister removes a connection and returns the meeting's remaining
// connection count, computed under the registry lock so callers can act on
// "this was the last connection" without racing a concurrent Unregister. It
// is idempotent; removing the last connection drops the meeting's registry
// entry entirely.
func (h *Hub) Unregister(meetingID, connID string) int {
	h.mu.Lock()
	conns, ok := h.meetings[meetingID]
	if !ok {
		h.mu.Unlock()
		return 0
	}
	sess, ok := conns[connID]
	if !ok {
		remaining := len(conns)
		h.mu.Unlock()
		return remaining
	}
	delete(conns, connID)
	remaining := len(conns)
	if remaining == 0 {
		delete(h.meetings, meetingID)
	}
	h.mu.Unlock()

	sess.conn.Close()
	h.logger.Info("Viewer disconnected",
		zap.String("meeting_id", meetingID),
		zap.String("connection_id", connID),
	)
	return remaining
}

// Count reports the current number of live connections for a meeting.
func (h *Hub) Count(meetingID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.meetings[meetingID])
}

// Broadcast fans one notification out to every live connection of a meeting.
// A failed send marks that connection dead; dead connections are pruned only
// after the full pass, so one bad socket never blocks the rest.
func (h *Hub) Broadcast(meetingID, notificationType, status, message string, data *NotificationData) {
	payload, err := json.Marshal(Notification{
		Type:      notificationType,
		Status:    status,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	})
	if err != nil {
		h.logger.Error("Failed to encode notification", zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make(map[string]*session, len(h.meetings[meetingID]))
	for connID, sess := range h.meetings[meetingID] {
		targets[connID] = sess
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	var failed []string
	for connID, sess := range targets {
		if err := sess.send(payload); err != nil {
			h.logger.Error("Failed to send notification",
				zap.String("meeting_id", meetingID),
				zap.String("connection_id", connID),
				zap.Error(err),
			)
			failed = append(failed, connID)
		}
	}

	for _, connID := range failed {
		h.Unregister(meetingID, connID)
	}

	h.logger.Info("Broadcast sent",
		zap.String("meeting_id", meetingID),
		zap.String("message", message),
		zap.Int("delivered", len(targets)-len(failed)),
		zap.Int("failed", len(failed)),
	)
}

// SendTo delivers a notification to a single connection, used for
// per-uploader acknowledgments that the other viewers should not see. A
// failed send removes only that connection.
func (h *Hub) SendTo(meetingID, connID, notificationType, status, message string, data *NotificationData) error {
	h.mu.RLock()
	sess, ok := h.meetings[meetingID][connID]
	h.mu.RUnlock()
	if !ok {
		return errors.New("connection not found")
	}

	payload, err := json.Marshal(Notification{
		Type:      notificationType,
		Status:    status,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	})
	if err != nil {
		return err
	}

	if err := sess.send(payload); err != nil {
		h.logger.Error("Failed to send to connection",
			zap.String("meeting_id", meetingID),
			zap.String("connection_id", connID),
			zap.Error(err),
		)
		h.Unregister(meetingID, connID)
		return err
	}
	return nil
}

package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"meetscribe/api/audio"
	"meetscribe/api/models"
	"meetscribe/api/repository"
	"meetscribe/api/ws"
)

// JobSubmitter queues one stored chunk for transcription.
type JobSubmitter interface {
	Submit(ctx context.Context, meetingID, filename string) (string, error)
}

// StreamHandler owns the websocket audio endpoint: it admits viewers through
// the hub, stores incoming binary frames as chunk files and queues each
// chunk for transcription.
type StreamHandler struct {
	repo     repository.Repository
	hub      *ws.Hub
	chunks   *audio.ChunkStore
	jobs     JobSubmitter
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewStreamHandler(repo repository.Repository, hub *ws.Hub, chunks *audio.ChunkStore, jobs JobSubmitter, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{
		repo:   repo,
		hub:    hub,
		chunks: chunks,
		jobs:   jobs,
		upgrader: websocket.Upgrader{
			// Browser clients come from another origin in development.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

func (h *StreamHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/meetings/{id}/audio", h.Stream)
}

func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	meetingID := r.PathValue("id")

	// Reject unknown meetings before the handshake; capacity rejection
	// happens after it so the client can decode the reason.
	if _, err := h.repo.GetMeeting(r.Context(), meetingID); err != nil {
		if errors.Is(err, repository.ErrMeetingNotFound) {
			respondError(w, r, h.logger, "Meeting not found", err, http.StatusNotFound)
			return
		}
		respondError(w, r, h.logger, "Failed to load meeting", err, http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Websocket upgrade failed",
			zap.String("meeting_id", meetingID),
			zap.Error(err),
		)
		return
	}

	connID, active, err := h.hub.Register(conn, meetingID)
	if err != nil {
		// The hub already told the client why and closed the socket.
		return
	}

	sessionID := uuid.New().String()
	ctx := context.Background()

	// The counts come from Register/Unregister themselves, so exactly one
	// connection observes each transition even under concurrent joins.
	if active == 1 {
		if err := h.repo.UpdateStatus(ctx, meetingID, models.StatusTranscribing); err != nil {
			h.logger.Error("Failed to mark meeting transcribing",
				zap.String("meeting_id", meetingID),
				zap.Error(err),
			)
		}
	}

	defer func() {
		remaining := h.hub.Unregister(meetingID, connID)
		h.chunks.CleanupSession(sessionID)

		if remaining == 0 {
			if err := h.repo.UpdateStatus(ctx, meetingID, models.StatusCreated); err != nil {
				h.logger.Error("Failed to reset meeting status",
					zap.String("meeting_id", meetingID),
					zap.Error(err),
				)
			}
		}
	}()

	h.hub.SendTo(meetingID, connID, "connection", "ready", "Connected: ready to receive audio", nil)

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("Websocket closed unexpectedly",
					zap.String("meeting_id", meetingID),
					zap.String("connection_id", connID),
					zap.Error(err),
				)
			}
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}

		h.handleChunk(ctx, meetingID, connID, sessionID, data)
	}
}

func (h *StreamHandler) handleChunk(ctx context.Context, meetingID, connID, sessionID string, data []byte) {
	info, err := h.chunks.Save(meetingID, sessionID, data)
	if err != nil {
		h.logger.Error("Failed to save audio chunk",
			zap.String("meeting_id", meetingID),
			zap.Error(err),
		)
		h.hub.SendTo(meetingID, connID, "chunk_error", "error",
			"Error saving audio chunk: "+err.Error(), nil)
		return
	}

	// Only the uploader cares about per-chunk acknowledgments.
	h.hub.SendTo(meetingID, connID, "chunk_received", "saved",
		"Audio chunk saved: "+info.Filename, nil)

	jobID, err := h.jobs.Submit(ctx, meetingID, info.Filename)
	if err != nil {
		// The chunk is on disk; transcription for it is simply lost.
		h.logger.Error("Failed to queue transcription job",
			zap.String("meeting_id", meetingID),
			zap.String("filename", info.Filename),
			zap.Error(err),
		)
		h.hub.SendTo(meetingID, connID, "transcription_status", "warning",
			"Transcription could not be queued for "+info.Filename, nil)
		return
	}

	h.logger.Info("Chunk queued for transcription",
		zap.String("meeting_id", meetingID),
		zap.String("job_id", jobID),
		zap.String("filename", info.Filename),
	)
}

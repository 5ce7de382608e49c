package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"meetscribe/api/dto"
	"meetscribe/api/repository"
	"meetscribe/api/ws"
)

const snippetLength = 100

// Broadcaster is the slice of the connection hub the webhook path needs.
type Broadcaster interface {
	Broadcast(meetingID, notificationType, status, message string, data *ws.NotificationData)
}

// WebhookHandler receives terminal job results from the transcription
// service, folds completed text into the meeting transcript and relays the
// outcome to every live viewer.
type WebhookHandler struct {
	repo   repository.Repository
	hub    Broadcaster
	logger *zap.Logger
}

func NewWebhookHandler(repo repository.Repository, hub Broadcaster, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{repo: repo, hub: hub, logger: logger}
}

func (h *WebhookHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhook/transcription-completed", h.TranscriptionCompleted)
}

func (h *WebhookHandler) TranscriptionCompleted(w http.ResponseWriter, r *http.Request) {
	var result dto.TranscriptionResult
	if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
		respondError(w, r, h.logger, "Invalid webhook payload", err, http.StatusBadRequest)
		return
	}
	if result.MeetingID == "" {
		respondError(w, r, h.logger, "Missing meeting ID in webhook", nil, http.StatusBadRequest)
		return
	}

	h.logger.Info("Received transcription webhook",
		zap.String("job_id", result.JobID),
		zap.String("meeting_id", result.MeetingID),
		zap.String("filename", result.Filename),
		zap.String("status", result.Status),
	)

	if _, err := h.repo.GetMeeting(r.Context(), result.MeetingID); err != nil {
		if errors.Is(err, repository.ErrMeetingNotFound) {
			respondError(w, r, h.logger, "Meeting not found", err, http.StatusNotFound)
			return
		}
		respondError(w, r, h.logger, "Failed to load meeting", err, http.StatusInternalServerError)
		return
	}

	switch result.Status {
	case "completed":
		h.handleCompleted(w, r, &result)
	case "failed":
		h.handleFailed(w, r, &result)
	default:
		respondError(w, r, h.logger, "Unknown result status: "+result.Status, nil, http.StatusBadRequest)
	}
}

func (h *WebhookHandler) handleCompleted(w http.ResponseWriter, r *http.Request, result *dto.TranscriptionResult) {
	if result.TranscriptionText == "" {
		h.logger.Warn("Completed job carried no transcription text",
			zap.String("job_id", result.JobID),
			zap.String("filename", result.Filename),
		)
		h.hub.Broadcast(result.MeetingID, "transcription_status", "warning",
			"No transcription text received for "+result.Filename, nil)
		respondJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Webhook processed"})
		return
	}

	if err := h.repo.AppendTranscription(r.Context(), result.MeetingID, result.TranscriptionText); err != nil {
		respondError(w, r, h.logger, "Failed to update transcription", err, http.StatusInternalServerError)
		return
	}

	// Truncate on rune boundaries; a byte slice could cut a multi-byte
	// character in half and emit an invalid-UTF-8 frame.
	snippet := result.TranscriptionText
	if runes := []rune(snippet); len(runes) > snippetLength {
		snippet = string(runes[:snippetLength]) + "..."
	}

	h.hub.Broadcast(result.MeetingID, "transcription_status", "completed",
		"Transcription completed for audio chunk ("+result.Filename+")",
		&ws.NotificationData{
			TextSnippet: snippet,
			FullText:    result.TranscriptionText,
		})

	respondJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Webhook processed"})
}

func (h *WebhookHandler) handleFailed(w http.ResponseWriter, r *http.Request, result *dto.TranscriptionResult) {
	reason := result.ErrorMessage
	if reason == "" {
		reason = "Unknown error"
	}

	h.logger.Error("Transcription failed",
		zap.String("job_id", result.JobID),
		zap.String("meeting_id", result.MeetingID),
		zap.String("filename", result.Filename),
		zap.String("error_message", reason),
	)

	// Viewers get the verbatim reason rather than silence.
	h.hub.Broadcast(result.MeetingID, "transcription_status", "failed",
		"Transcription failed for "+result.Filename+": "+reason, nil)

	respondJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Webhook processed"})
}

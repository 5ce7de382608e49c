package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"meetscribe/worker/jobs"
)

// JobStore is the slice of the job store the HTTP surface needs.
type JobStore interface {
	Create(ctx context.Context, meetingID, filename, webhookURL string) (string, error)
	Get(ctx context.Context, jobID string) (*jobs.Job, error)
	Stats(ctx context.Context) (*jobs.Stats, error)
	QueueSize(ctx context.Context) (int64, error)
}

type TranscribeRequest struct {
	MeetingID  string `json:"meeting_id"`
	Filename   string `json:"filename"`
	WebhookURL string `json:"webhook_url"`
}

type TranscribeResponse struct {
	JobID         string `json:"job_id"`
	Status        string `json:"status"`
	Message       string `json:"message"`
	QueuePosition int64  `json:"queue_position"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type TranscribeHandler struct {
	store    JobStore
	audioDir string
	logger   *zap.Logger
}

func NewTranscribeHandler(store JobStore, audioDir string, logger *zap.Logger) *TranscribeHandler {
	return &TranscribeHandler{
		store:    store,
		audioDir: audioDir,
		logger:   logger,
	}
}

func (h *TranscribeHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /transcribe", h.Transcribe)
	mux.HandleFunc("GET /jobs/{id}", h.JobStatus)
	mux.HandleFunc("GET /stats", h.Stats)
	mux.HandleFunc("GET /health", h.Health)
}

// Transcribe accepts one audio file reference for processing. The referenced
// file must already exist on shared storage; the queue itself never checks.
func (h *TranscribeHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	var req TranscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleError(w, "Invalid request body", err, http.StatusBadRequest)
		return
	}
	if req.MeetingID == "" || req.Filename == "" || req.WebhookURL == "" {
		h.handleError(w, "meeting_id, filename and webhook_url are required", nil, http.StatusBadRequest)
		return
	}

	audioPath := filepath.Join(h.audioDir, req.MeetingID, "audio", req.Filename)
	if _, err := os.Stat(audioPath); err != nil {
		h.handleError(w, "Audio file not found: "+req.Filename, err, http.StatusNotFound)
		return
	}

	jobID, err := h.store.Create(r.Context(), req.MeetingID, req.Filename, req.WebhookURL)
	if err != nil {
		h.handleError(w, "Failed to queue transcription job", err, http.StatusInternalServerError)
		return
	}

	queueSize, err := h.store.QueueSize(r.Context())
	if err != nil {
		queueSize = 0
	}

	h.respondJSON(w, http.StatusOK, TranscribeResponse{
		JobID:         jobID,
		Status:        string(jobs.StatusQueued),
		Message:       "Audio file " + req.Filename + " queued for transcription",
		QueuePosition: queueSize,
	})
}

func (h *TranscribeHandler) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		h.handleError(w, "Job ID is required", nil, http.StatusBadRequest)
		return
	}

	job, err := h.store.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			h.handleError(w, "Job not found", err, http.StatusNotFound)
			return
		}
		h.handleError(w, "Failed to get job status", err, http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, http.StatusOK, job)
}

func (h *TranscribeHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.handleError(w, "Failed to collect stats", err, http.StatusInternalServerError)
		return
	}
	h.respondJSON(w, http.StatusOK, stats)
}

func (h *TranscribeHandler) Health(w http.ResponseWriter, r *http.Request) {
	size, err := h.store.QueueSize(r.Context())
	if err != nil {
		h.handleError(w, "Job store unreachable", err, http.StatusServiceUnavailable)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"status":     "healthy",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"queue_size": size,
	})
}

func (h *TranscribeHandler) handleError(w http.ResponseWriter, message string, err error, status int) {
	h.logger.Error(message, zap.Error(err))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

func (h *TranscribeHandler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"meetscribe/api/dto"
	"meetscribe/api/models"
	"meetscribe/api/repository"
)

type MeetingHandler struct {
	repo   repository.Repository
	logger *zap.Logger
}

func NewMeetingHandler(repo repository.Repository, logger *zap.Logger) *MeetingHandler {
	return &MeetingHandler{repo: repo, logger: logger}
}

func (h *MeetingHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /meetings", h.Create)
	mux.HandleFunc("GET /meetings", h.List)
	mux.HandleFunc("GET /meetings/{id}", h.Get)
	mux.HandleFunc("PUT /meetings/{id}", h.Update)
	mux.HandleFunc("DELETE /meetings/{id}", h.Delete)
	mux.HandleFunc("PUT /meetings/{id}/keywords", h.UpdateKeywords)
	mux.HandleFunc("GET /health", h.Health)
}

func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, h.logger, "Invalid request body", err, http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		respondError(w, r, h.logger, "Title is required", nil, http.StatusBadRequest)
		return
	}

	meeting := &models.Meeting{
		Title:       req.Title,
		Description: req.Description,
		Keywords:    req.Keywords,
	}
	if err := h.repo.CreateMeeting(r.Context(), meeting); err != nil {
		respondError(w, r, h.logger, "Failed to create meeting", err, http.StatusInternalServerError)
		return
	}

	h.logger.Info("Meeting created",
		zap.String("meeting_id", meeting.ID),
		zap.String("title", meeting.Title),
	)
	respondJSON(w, http.StatusCreated, meetingResponse(meeting))
}

func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	meetings, err := h.repo.ListMeetings(r.Context())
	if err != nil {
		respondError(w, r, h.logger, "Failed to list meetings", err, http.StatusInternalServerError)
		return
	}

	out := make([]*dto.MeetingResponse, 0, len(meetings))
	for _, m := range meetings {
		out = append(out, meetingResponse(m))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
	meeting, err := h.repo.GetMeeting(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repository.ErrMeetingNotFound) {
			respondError(w, r, h.logger, "Meeting not found", err, http.StatusNotFound)
			return
		}
		respondError(w, r, h.logger, "Failed to get meeting", err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, meetingResponse(meeting))
}

func (h *MeetingHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, h.logger, "Invalid request body", err, http.StatusBadRequest)
		return
	}
	if req.Title == nil && req.Description == nil && req.Keywords == nil {
		respondError(w, r, h.logger, "No valid update data provided", nil, http.StatusBadRequest)
		return
	}

	meeting, err := h.repo.UpdateMeeting(r.Context(), r.PathValue("id"), req.Title, req.Description, req.Keywords)
	if err != nil {
		if errors.Is(err, repository.ErrMeetingNotFound) {
			respondError(w, r, h.logger, "Meeting not found", err, http.StatusNotFound)
			return
		}
		respondError(w, r, h.logger, "Failed to update meeting", err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, meetingResponse(meeting))
}

func (h *MeetingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.DeleteMeeting(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, repository.ErrMeetingNotFound) {
			respondError(w, r, h.logger, "Meeting not found", err, http.StatusNotFound)
			return
		}
		respondError(w, r, h.logger, "Failed to delete meeting", err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Meeting deleted successfully"})
}

func (h *MeetingHandler) UpdateKeywords(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateKeywordsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, h.logger, "Invalid request body", err, http.StatusBadRequest)
		return
	}

	meeting, err := h.repo.UpdateKeywords(r.Context(), r.PathValue("id"), req.Keywords)
	if err != nil {
		if errors.Is(err, repository.ErrMeetingNotFound) {
			respondError(w, r, h.logger, "Meeting not found", err, http.StatusNotFound)
			return
		}
		respondError(w, r, h.logger, "Failed to update keywords", err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, meetingResponse(meeting))
}

func (h *MeetingHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

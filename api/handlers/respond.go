package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"meetscribe/api/dto"
	"meetscribe/middleware"
	"meetscribe/api/models"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, message string, err error, status int) {
	requestID := middleware.GetRequestID(r.Context())
	logger.Error(message,
		zap.String("request_id", requestID),
		zap.Error(err),
	)

	respondJSON(w, status, dto.ErrorResponse{
		Error:     message,
		RequestID: requestID,
	})
}

func meetingResponse(m *models.Meeting) *dto.MeetingResponse {
	keywords := m.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return &dto.MeetingResponse{
		ID:                m.ID,
		Title:             m.Title,
		Description:       m.Description,
		Keywords:          keywords,
		Status:            string(m.Status),
		FullTranscription: m.FullTranscription,
		CreatedAt:         m.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         m.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

package dto

type CreateMeetingRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

type UpdateMeetingRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Keywords    []string `json:"keywords"`
}

type UpdateKeywordsRequest struct {
	Keywords []string `json:"keywords"`
}

type MeetingResponse struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Keywords          []string `json:"keywords"`
	Status            string   `json:"status"`
	FullTranscription *string  `json:"full_transcription"`
	CreatedAt         string   `json:"created_at"`
	UpdatedAt         string   `json:"updated_at"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// TranscriptionResult is the webhook payload delivered by the transcription
// service when a job reaches a terminal state.
type TranscriptionResult struct {
	JobID             string  `json:"job_id"`
	MeetingID         string  `json:"meeting_id"`
	Filename          string  `json:"filename"`
	TranscriptionText string  `json:"transcription_text,omitempty"`
	Confidence        float64 `json:"confidence,omitempty"`
	ProcessingTime    float64 `json:"processing_time"`
	Status            string  `json:"status"`
	ErrorMessage      string  `json:"error_message,omitempty"`
	ProcessedAt       string  `json:"processed_at"`
}

package models

import "time"

type MeetingStatus string

const (
	// StatusCreated is the resting state: no live audio session.
	StatusCreated MeetingStatus = "created"
	// StatusTranscribing is set while at least one viewer connection is live.
	StatusTranscribing MeetingStatus = "transcribing"
)

type Meeting struct {
	ID                string
	Title             string
	Description       string
	Keywords          []string
	Status            MeetingStatus
	FullTranscription *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

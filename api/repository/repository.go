package repository

import (
	"context"
	"errors"

	"meetscribe/api/models"
)

var ErrMeetingNotFound = errors.New("meeting not found")

type Repository interface {
	CreateMeeting(ctx context.Context, meeting *models.Meeting) error
	ListMeetings(ctx context.Context) ([]*models.Meeting, error)
	GetMeeting(ctx context.Context, id string) (*models.Meeting, error)
	UpdateMeeting(ctx context.Context, id string, title, description *string, keywords []string) (*models.Meeting, error)
	DeleteMeeting(ctx context.Context, id string) error
	UpdateKeywords(ctx context.Context, id string, keywords []string) (*models.Meeting, error)
	UpdateStatus(ctx context.Context, id string, status models.MeetingStatus) error
	AppendTranscription(ctx context.Context, id string, text string) error
}

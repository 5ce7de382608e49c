package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"meetscribe/api/database"
	"meetscribe/api/models"
)

type PostgresRepo struct {
	db *database.DB
}

func NewPostgresRepo(db *database.DB) Repository {
	return &PostgresRepo{db: db}
}

const meetingColumns = `id, title, description, keywords, status, full_transcription, created_at, updated_at`

func scanMeeting(row pgx.Row) (*models.Meeting, error) {
	var m models.Meeting
	err := row.Scan(
		&m.ID,
		&m.Title,
		&m.Description,
		&m.Keywords,
		&m.Status,
		&m.FullTranscription,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMeetingNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *PostgresRepo) CreateMeeting(ctx context.Context, meeting *models.Meeting) error {
	query := `
		INSERT INTO meetings (title, description, keywords, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		meeting.Title,
		meeting.Description,
		meeting.Keywords,
		models.StatusCreated,
	).Scan(&meeting.ID, &meeting.CreatedAt, &meeting.UpdatedAt)
	if err != nil {
		return err
	}

	meeting.Status = models.StatusCreated
	return nil
}

func (r *PostgresRepo) ListMeetings(ctx context.Context) ([]*models.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings ORDER BY created_at DESC`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meetings []*models.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, m)
	}
	return meetings, rows.Err()
}

func (r *PostgresRepo) GetMeeting(ctx context.Context, id string) (*models.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings WHERE id = $1`
	return scanMeeting(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *PostgresRepo) UpdateMeeting(ctx context.Context, id string, title, description *string, keywords []string) (*models.Meeting, error) {
	query := `
		UPDATE meetings
		SET title = COALESCE($2, title),
		    description = COALESCE($3, description),
		    keywords = COALESCE($4, keywords),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + meetingColumns

	return scanMeeting(r.db.Pool.QueryRow(ctx, query, id, title, description, keywords))
}

func (r *PostgresRepo) DeleteMeeting(ctx context.Context, id string) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM meetings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrMeetingNotFound
	}
	return nil
}

func (r *PostgresRepo) UpdateKeywords(ctx context.Context, id string, keywords []string) (*models.Meeting, error) {
	query := `
		UPDATE meetings
		SET keywords = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + meetingColumns

	return scanMeeting(r.db.Pool.QueryRow(ctx, query, id, keywords))
}

// UpdateStatus is best-effort telemetry on the meeting record; an unknown id
// is not an error.
func (r *PostgresRepo) UpdateStatus(ctx context.Context, id string, status models.MeetingStatus) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE meetings SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, status,
	)
	return err
}

// AppendTranscription joins the new chunk text onto the running transcript
// inside a single UPDATE, so concurrent webhook deliveries for the same
// meeting cannot lose each other's append.
func (r *PostgresRepo) AppendTranscription(ctx context.Context, id string, text string) error {
	query := `
		UPDATE meetings
		SET full_transcription = CASE
		        WHEN full_transcription IS NULL OR full_transcription = '' THEN $2
		        ELSE full_transcription || ' ' || $2
		    END,
		    updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Pool.Exec(ctx, query, id, text)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrMeetingNotFound
	}
	return nil
}

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	statusKeyPrefix = "transcription:job:"
	queueKey        = "transcription:job_queue"

	// Status records expire whether or not the job reached a terminal
	// state; callers that need the result longer must copy it out.
	statusTTL = 24 * time.Hour

	statusUpdateRetries = 100
)

var ErrJobNotFound = errors.New("job not found")

type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is the observable status record kept under transcription:job:<id>.
type Job struct {
	JobID        string     `json:"job_id"`
	MeetingID    string     `json:"meeting_id"`
	Filename     string     `json:"filename"`
	Status       Status     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// QueuedJob is the dispatch record pushed onto the work queue.
type QueuedJob struct {
	JobID      string `json:"job_id"`
	MeetingID  string `json:"meeting_id"`
	Filename   string `json:"filename"`
	WebhookURL string `json:"webhook_url"`
}

type Stats struct {
	TotalJobs      int   `json:"total_jobs"`
	CompletedJobs  int   `json:"completed_jobs"`
	FailedJobs     int   `json:"failed_jobs"`
	ProcessingJobs int   `json:"processing_jobs"`
	QueuedJobs     int   `json:"queued_jobs"`
	QueueSize      int64 `json:"queue_size"`
}

// Store keeps job status records and the FIFO dispatch queue in Redis.
type Store struct {
	client *redis.Client
	logger *zap.Logger
}

func NewStore(client *redis.Client, logger *zap.Logger) *Store {
	return &Store{client: client, logger: logger}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Create writes the queued status record and enqueues the dispatch record in
// one MULTI/EXEC pipeline, so no half-created job is ever observable.
func (s *Store) Create(ctx context.Context, meetingID, filename, webhookURL string) (string, error) {
	jobID := uuid.New().String()

	record, err := json.Marshal(Job{
		JobID:     jobID,
		MeetingID: meetingID,
		Filename:  filename,
		Status:    StatusQueued,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("marshal job record: %w", err)
	}

	dispatch, err := json.Marshal(QueuedJob{
		JobID:      jobID,
		MeetingID:  meetingID,
		Filename:   filename,
		WebhookURL: webhookURL,
	})
	if err != nil {
		return "", fmt.Errorf("marshal dispatch record: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetEx(ctx, statusKeyPrefix+jobID, record, statusTTL)
		pipe.RPush(ctx, queueKey, dispatch)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("enqueue job: %w", err)
	}

	s.logger.Info("Job queued",
		zap.String("job_id", jobID),
		zap.String("meeting_id", meetingID),
		zap.String("filename", filename),
	)
	return jobID, nil
}

func (s *Store) Get(ctx context.Context, jobID string) (*Job, error) {
	data, err := s.client.Get(ctx, statusKeyPrefix+jobID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}

	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", jobID, err)
	}
	return &job, nil
}

// UpdateStatus mutates a job's status record. An unknown or expired job id is
// a logged no-op, and a job already in a terminal state is never moved out of
// it. CompletedAt is set once, at the terminal transition. The read-modify-
// write runs under WATCH, so a write that raced another mutation of the same
// key is discarded and retried against the fresh record.
func (s *Store) UpdateStatus(ctx context.Context, jobID string, status Status, errorMessage string) error {
	key := statusKeyPrefix + jobID

	mutate := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Result()
		if err != nil {
			return err
		}

		var job Job
		if err := json.Unmarshal([]byte(data), &job); err != nil {
			return fmt.Errorf("decode job %s: %w", jobID, err)
		}

		if job.Status.Terminal() {
			s.logger.Debug("Status update for terminal job skipped",
				zap.String("job_id", jobID),
				zap.String("status", string(job.Status)),
			)
			return nil
		}

		job.Status = status
		if errorMessage != "" {
			job.ErrorMessage = errorMessage
		}
		if status.Terminal() && job.CompletedAt == nil {
			now := time.Now().UTC()
			job.CompletedAt = &now
		}

		record, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("marshal job record: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetEx(ctx, key, record, statusTTL)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < statusUpdateRetries; attempt++ {
		err := s.client.Watch(ctx, mutate, key)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, redis.Nil):
			s.logger.Debug("Status update for unknown job skipped", zap.String("job_id", jobID))
			return nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		default:
			return fmt.Errorf("update job %s: %w", jobID, err)
		}
	}
	return fmt.Errorf("update job %s: %w", jobID, redis.TxFailedErr)
}

// Dequeue pops the next dispatch record, blocking up to timeout. Returns
// (nil, nil) when the queue stays empty for the whole window.
func (s *Store) Dequeue(ctx context.Context, timeout time.Duration) (*QueuedJob, error) {
	result, err := s.client.BLPop(ctx, timeout, queueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("dequeue: %w", err)
	}

	// BLPOP returns [key, value].
	var job QueuedJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("decode dispatch record: %w", err)
	}
	return &job, nil
}

func (s *Store) QueueSize(ctx context.Context) (int64, error) {
	return s.client.LLen(ctx, queueKey).Result()
}

// Stats scans the live status records and counts them by status. The scan is
// a point-in-time snapshot, not linearizable with concurrent writers.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats

	iter := s.client.Scan(ctx, 0, statusKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Result()
		if err != nil {
			// Key may have expired between SCAN and GET.
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(data), &job); err != nil {
			continue
		}

		stats.TotalJobs++
		switch job.Status {
		case StatusCompleted:
			stats.CompletedJobs++
		case StatusFailed:
			stats.FailedJobs++
		case StatusProcessing:
			stats.ProcessingJobs++
		case StatusQueued:
			stats.QueuedJobs++
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan jobs: %w", err)
	}

	size, err := s.QueueSize(ctx)
	if err != nil {
		return nil, err
	}
	stats.QueueSize = size

	return &stats, nil
}

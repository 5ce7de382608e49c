package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	submitTimeout = 30 * time.Second
	statusTimeout = 10 * time.Second
)

// Client talks to the transcription service. Results come back out of band
// through the webhook URL, never on these calls.
type Client struct {
	baseURL    string
	webhookURL string
	client     *http.Client
	logger     *zap.Logger
}

func NewClient(serviceURL, webhookURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    serviceURL,
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: submitTimeout},
		logger:     logger,
	}
}

type submitRequest struct {
	MeetingID  string `json:"meeting_id"`
	Filename   string `json:"filename"`
	WebhookURL string `json:"webhook_url"`
}

type submitResponse struct {
	JobID         string `json:"job_id"`
	Status        string `json:"status"`
	QueuePosition int64  `json:"queue_position"`
}

// JobStatus mirrors the transcription service's job record.
type JobStatus struct {
	JobID        string  `json:"job_id"`
	Status       string  `json:"status"`
	CreatedAt    string  `json:"created_at"`
	CompletedAt  *string `json:"completed_at"`
	ErrorMessage string  `json:"error_message,omitempty"`
}

// Submit queues a transcription job for an already-stored chunk and returns
// the job id.
func (c *Client) Submit(ctx context.Context, meetingID, filename string) (string, error) {
	body, err := json.Marshal(submitRequest{
		MeetingID:  meetingID,
		Filename:   filename,
		WebhookURL: c.webhookURL,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit transcription job: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("transcription service http %d: %s", resp.StatusCode, string(respBody))
	}

	var sr submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}

	c.logger.Info("Transcription job queued",
		zap.String("job_id", sr.JobID),
		zap.String("meeting_id", meetingID),
		zap.String("filename", filename),
		zap.Int64("queue_position", sr.QueuePosition),
	)
	return sr.JobID, nil
}

func (c *Client) GetJobStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/jobs/"+jobID, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get job status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("job %s not found", jobID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transcription service http %d", resp.StatusCode)
	}

	var status JobStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode job status: %w", err)
	}
	return &status, nil
}

// Healthy reports whether the transcription service answers its health check.
func (c *Client) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("Transcription service health check failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const deliveryTimeout = 30 * time.Second

// Result is the payload POSTed back to the submitter once a job reaches a
// terminal state.
type Result struct {
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

// Notifier delivers job results at most once. There is no retry and no
// queueing of failed deliveries; callers proceed regardless of the outcome.
type Notifier struct {
	client *http.Client
	logger *zap.Logger
}

func NewNotifier(logger *zap.Logger) *Notifier {
	return &Notifier{
		client: &http.Client{Timeout: deliveryTimeout},
		logger: logger,
	}
}

// Deliver POSTs the result to url. Success is strictly HTTP 200; anything
// else is logged and reported as false.
func (n *Notifier) Deliver(ctx context.Context, url string, result *Result) bool {
	body, err := json.Marshal(result)
	if err != nil {
		n.logger.Error("Failed to encode webhook payload",
			zap.String("job_id", result.JobID),
			zap.Error(err),
		)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		n.logger.Error("Failed to build webhook request",
			zap.String("job_id", result.JobID),
			zap.String("url", url),
			zap.Error(err),
		)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Error("Webhook delivery failed",
			zap.String("job_id", result.JobID),
			zap.String("url", url),
			zap.Error(err),
		)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		n.logger.Error("Webhook rejected",
			zap.String("job_id", result.JobID),
			zap.String("url", url),
			zap.Int("status_code", resp.StatusCode),
			zap.ByteString("body", respBody),
		)
		return false
	}

	n.logger.Info("Webhook delivered",
		zap.String("job_id", result.JobID),
		zap.String("url", url),
	)
	return true
}

package pool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"meetscribe/worker/jobs"
	"meetscribe/worker/transcribe"
	"meetscribe/worker/webhook"
)

const (
	dequeueTimeout = time.Second
	retryBackoff   = 2 * time.Second
)

// JobSource is the slice of the job store the pool consumes.
type JobSource interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*jobs.QueuedJob, error)
	UpdateStatus(ctx context.Context, jobID string, status jobs.Status, errorMessage string) error
}

// Deliverer hands a terminal job result to the submitter.
type Deliverer interface {
	Deliver(ctx context.Context, url string, result *webhook.Result) bool
}

// Pool runs a fixed number of workers, each looping dequeue -> transcribe ->
// webhook. A worker never exits on a job failure; only context cancellation
// stops it.
type Pool struct {
	source      JobSource
	transcriber transcribe.Transcriber
	notifier    Deliverer
	audioDir    string
	workers     int
	logger      *zap.Logger
	wg          sync.WaitGroup
}

func New(source JobSource, transcriber transcribe.Transcriber, notifier Deliverer, audioDir string, workers int, logger *zap.Logger) *Pool {
	return &Pool{
		source:      source,
		transcriber: transcriber,
		notifier:    notifier,
		audioDir:    audioDir,
		workers:     workers,
		logger:      logger,
	}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 1; i <= p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	p.logger.Info("Worker pool started", zap.Int("workers", p.workers))
}

func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, workerID int) {
	defer p.wg.Done()
	logger := p.logger.With(zap.Int("worker_id", workerID))
	logger.Info("Worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Worker shutting down")
			return
		default:
		}

		job, err := p.source.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			// Transient store errors degrade to "no job available".
			logger.Error("Failed to dequeue job", zap.Error(err))
			time.Sleep(retryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.process(ctx, logger, job)
	}
}

// process runs one job to a terminal state. Panics are contained here so a
// single bad job cannot kill the worker.
func (p *Pool) process(ctx context.Context, logger *zap.Logger, job *jobs.QueuedJob) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic while processing job",
				zap.String("job_id", job.JobID),
				zap.Any("panic", r),
			)
			p.finish(ctx, logger, job, start, fmt.Errorf("panic: %v", r))
		}
	}()

	logger.Info("Starting transcription job",
		zap.String("job_id", job.JobID),
		zap.String("meeting_id", job.MeetingID),
		zap.String("filename", job.Filename),
	)

	if err := p.source.UpdateStatus(ctx, job.JobID, jobs.StatusProcessing, ""); err != nil {
		logger.Error("Failed to mark job processing", zap.String("job_id", job.JobID), zap.Error(err))
	}

	audioPath := filepath.Join(p.audioDir, job.MeetingID, "audio", job.Filename)
	if _, err := os.Stat(audioPath); err != nil {
		p.finish(ctx, logger, job, start, fmt.Errorf("audio file not found: %s", audioPath))
		return
	}

	result, err := p.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		p.finish(ctx, logger, job, start, err)
		return
	}

	processingTime := time.Since(start).Seconds()
	if err := p.source.UpdateStatus(ctx, job.JobID, jobs.StatusCompleted, ""); err != nil {
		logger.Error("Failed to mark job completed", zap.String("job_id", job.JobID), zap.Error(err))
	}

	payload := &webhook.Result{
		JobID:             job.JobID,
		MeetingID:         job.MeetingID,
		Filename:          job.Filename,
		TranscriptionText: result.Text,
		Confidence:        result.Confidence,
		ProcessingTime:    processingTime,
		Status:            string(jobs.StatusCompleted),
		ProcessedAt:       time.Now().UTC().Format(time.RFC3339),
	}

	// Delivery outcome never changes the job status: transcription success
	// and notification delivery are independent facts.
	if !p.notifier.Deliver(ctx, job.WebhookURL, payload) {
		logger.Warn("Job completed but webhook delivery failed",
			zap.String("job_id", job.JobID),
			zap.String("url", job.WebhookURL),
		)
	}

	logger.Info("Transcription job completed",
		zap.String("job_id", job.JobID),
		zap.Float64("processing_time", processingTime),
	)
}

// finish marks a job failed and sends the failure webhook. The error text is
// delivered verbatim so viewers see the actual reason.
func (p *Pool) finish(ctx context.Context, logger *zap.Logger, job *jobs.QueuedJob, start time.Time, jobErr error) {
	logger.Error("Transcription job failed",
		zap.String("job_id", job.JobID),
		zap.String("filename", job.Filename),
		zap.Error(jobErr),
	)

	if err := p.source.UpdateStatus(ctx, job.JobID, jobs.StatusFailed, jobErr.Error()); err != nil {
		logger.Error("Failed to mark job failed", zap.String("job_id", job.JobID), zap.Error(err))
	}

	payload := &webhook.Result{
		JobID:          job.JobID,
		MeetingID:      job.MeetingID,
		Filename:       job.Filename,
		ProcessingTime: time.Since(start).Seconds(),
		Status:         string(jobs.StatusFailed),
		ErrorMessage:   jobErr.Error(),
		ProcessedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	p.notifier.Deliver(ctx, job.WebhookURL, payload)
}

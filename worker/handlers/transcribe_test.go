package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"meetscribe/worker/jobs"
)

type mockJobStore struct {
	createFunc func(ctx context.Context, meetingID, filename, webhookURL string) (string, error)
	getFunc    func(ctx context.Context, jobID string) (*jobs.Job, error)
	statsFunc  func(ctx context.Context) (*jobs.Stats, error)
}

func (m *mockJobStore) Create(ctx context.Context, meetingID, filename, webhookURL string) (string, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, meetingID, filename, webhookURL)
	}
	return "job-1", nil
}

func (m *mockJobStore) Get(ctx context.Context, jobID string) (*jobs.Job, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, jobID)
	}
	return &jobs.Job{JobID: jobID, Status: jobs.StatusQueued, CreatedAt: time.Now().UTC()}, nil
}

func (m *mockJobStore) Stats(ctx context.Context) (*jobs.Stats, error) {
	if m.statsFunc != nil {
		return m.statsFunc(ctx)
	}
	return &jobs.Stats{TotalJobs: 2, QueuedJobs: 2, QueueSize: 2}, nil
}

func (m *mockJobStore) QueueSize(ctx context.Context) (int64, error) {
	return 2, nil
}

func newTestMux(t *testing.T, store JobStore, audioDir string) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	NewTranscribeHandler(store, audioDir, zaptest.NewLogger(t)).Register(mux)
	return mux
}

func seedAudioFile(t *testing.T, audioDir, meetingID, filename string) {
	t.Helper()
	dir := filepath.Join(audioDir, meetingID, "audio")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, filename), []byte("audio"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestTranscribe_Success(t *testing.T) {
	audioDir := t.TempDir()
	seedAudioFile(t, audioDir, "m1", "chunk1.webm")

	mux := newTestMux(t, &mockJobStore{}, audioDir)

	body, _ := json.Marshal(TranscribeRequest{
		MeetingID:  "m1",
		Filename:   "chunk1.webm",
		WebhookURL: "http://cb/x",
	})
	req := httptest.NewRequest("POST", "/transcribe", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp TranscribeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Bad response body: %v", err)
	}
	if resp.JobID != "job-1" || resp.Status != "queued" {
		t.Errorf("Unexpected response: %+v", resp)
	}
	if resp.QueuePosition != 2 {
		t.Errorf("Expected queue position 2, got %d", resp.QueuePosition)
	}
}

func TestTranscribe_MissingAudioFile(t *testing.T) {
	mux := newTestMux(t, &mockJobStore{}, t.TempDir())

	body, _ := json.Marshal(TranscribeRequest{
		MeetingID:  "m1",
		Filename:   "gone.webm",
		WebhookURL: "http://cb/x",
	})
	req := httptest.NewRequest("POST", "/transcribe", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestTranscribe_MissingFields(t *testing.T) {
	mux := newTestMux(t, &mockJobStore{}, t.TempDir())

	req := httptest.NewRequest("POST", "/transcribe", bytes.NewReader([]byte(`{"meeting_id":"m1"}`)))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestTranscribe_MalformedBody(t *testing.T) {
	mux := newTestMux(t, &mockJobStore{}, t.TempDir())

	req := httptest.NewRequest("POST", "/transcribe", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestJobStatus_Found(t *testing.T) {
	now := time.Now().UTC()
	store := &mockJobStore{
		getFunc: func(ctx context.Context, jobID string) (*jobs.Job, error) {
			return &jobs.Job{
				JobID:       jobID,
				Status:      jobs.StatusCompleted,
				CreatedAt:   now,
				CompletedAt: &now,
			}, nil
		},
	}
	mux := newTestMux(t, store, t.TempDir())

	req := httptest.NewRequest("GET", "/jobs/job-9", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var job jobs.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("Bad response body: %v", err)
	}
	if job.JobID != "job-9" || job.Status != jobs.StatusCompleted {
		t.Errorf("Unexpected job: %+v", job)
	}
	if job.CompletedAt == nil {
		t.Error("Expected completed_at in response")
	}
}

func TestJobStatus_NotFound(t *testing.T) {
	store := &mockJobStore{
		getFunc: func(ctx context.Context, jobID string) (*jobs.Job, error) {
			return nil, jobs.ErrJobNotFound
		},
	}
	mux := newTestMux(t, store, t.TempDir())

	req := httptest.NewRequest("GET", "/jobs/missing", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestStats(t *testing.T) {
	mux := newTestMux(t, &mockJobStore{}, t.TempDir())

	req := httptest.NewRequest("GET", "/stats", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var stats jobs.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("Bad response body: %v", err)
	}
	if stats.TotalJobs != 2 || stats.QueueSize != 2 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestHealth(t *testing.T) {
	mux := newTestMux(t, &mockJobStore{}, t.TempDir())

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
}

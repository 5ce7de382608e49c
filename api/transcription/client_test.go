package transcription

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestClient_Submit_Success(t *testing.T) {
	var received submitRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcribe" || r.Method != http.MethodPost {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&received)
		json.NewEncoder(w).Encode(submitResponse{JobID: "job-1", Status: "queued", QueuePosition: 1})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "http://web/webhook/transcription-completed", zaptest.NewLogger(t))

	jobID, err := c.Submit(context.Background(), "m1", "chunk1.webm")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if jobID != "job-1" {
		t.Errorf("Expected job-1, got %s", jobID)
	}
	if received.WebhookURL != "http://web/webhook/transcription-completed" {
		t.Errorf("Webhook url not forwarded: %q", received.WebhookURL)
	}
	if received.MeetingID != "m1" || received.Filename != "chunk1.webm" {
		t.Errorf("Unexpected submit payload: %+v", received)
	}
}

func TestClient_Submit_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"audio file not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "http://web/hook", zaptest.NewLogger(t))

	if _, err := c.Submit(context.Background(), "m1", "gone.webm"); err == nil {
		t.Error("Expected error on service failure")
	}
}

func TestClient_Submit_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, "http://web/hook", zaptest.NewLogger(t))

	if _, err := c.Submit(context.Background(), "m1", "chunk1.webm"); err == nil {
		t.Error("Expected error when service is unreachable")
	}
}

func TestClient_GetJobStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/jobs/job-7" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(JobStatus{JobID: "job-7", Status: "completed"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "http://web/hook", zaptest.NewLogger(t))

	status, err := c.GetJobStatus(context.Background(), "job-7")
	if err != nil {
		t.Fatalf("GetJobStatus failed: %v", err)
	}
	if status.Status != "completed" {
		t.Errorf("Unexpected status: %+v", status)
	}
}

func TestClient_Healthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "http://web/hook", zaptest.NewLogger(t))
	if !c.Healthy(context.Background()) {
		t.Error("Expected healthy service")
	}

	srv.Close()
	if c.Healthy(context.Background()) {
		t.Error("Expected unhealthy after shutdown")
	}
}

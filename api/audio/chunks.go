package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ChunkInfo describes one saved audio chunk.
type ChunkInfo struct {
	Filename    string    `json:"filename"`
	Path        string    `json:"file_path"`
	Size        int64     `json:"file_size"`
	ChunkNumber int       `json:"chunk_number"`
	SavedAt     time.Time `json:"saved_at"`
}

// ChunkStore persists streamed audio chunks on the shared volume under
// <base>/<meeting_id>/audio/, the layout the transcription workers read.
type ChunkStore struct {
	basePath string
	logger   *zap.Logger

	mu       sync.Mutex
	counters map[string]int
}

func NewChunkStore(basePath string, logger *zap.Logger) (*ChunkStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("create audio base path: %w", err)
	}
	return &ChunkStore{
		basePath: basePath,
		logger:   logger,
		counters: make(map[string]int),
	}, nil
}

// Save writes one chunk and returns its generated filename. Chunk numbers
// count up per session so a meeting's files sort in arrival order.
func (s *ChunkStore) Save(meetingID, sessionID string, data []byte) (*ChunkInfo, error) {
	s.mu.Lock()
	chunkNumber := s.counters[sessionID]
	s.counters[sessionID]++
	s.mu.Unlock()

	now := time.Now().UTC()
	timestamp := fmt.Sprintf("%s_%06d", now.Format("20060102_150405"), now.Nanosecond()/1000)
	filename := fmt.Sprintf("audio_chunk_%s_%d_%s.webm", sessionID, chunkNumber, timestamp)

	dir := filepath.Join(s.basePath, meetingID, "audio")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create meeting audio dir: %w", err)
	}

	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("write chunk: %w", err)
	}

	s.logger.Info("Saved audio chunk",
		zap.String("meeting_id", meetingID),
		zap.String("session_id", sessionID),
		zap.Int("chunk_number", chunkNumber),
		zap.Int("bytes", len(data)),
	)

	return &ChunkInfo{
		Filename:    filename,
		Path:        path,
		Size:        int64(len(data)),
		ChunkNumber: chunkNumber,
		SavedAt:     time.Now().UTC(),
	}, nil
}

// CleanupSession drops the chunk counter once the session's socket is gone.
func (s *ChunkStore) CleanupSession(sessionID string) {
	s.mu.Lock()
	delete(s.counters, sessionID)
	s.mu.Unlock()
}

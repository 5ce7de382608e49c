package audio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestChunkStore_SaveNumbersChunksPerSession(t *testing.T) {
	store, err := NewChunkStore(t.TempDir(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewChunkStore failed: %v", err)
	}

	first, err := store.Save("m1", "sess-a", []byte("chunk-one"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	second, err := store.Save("m1", "sess-a", []byte("chunk-two"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	other, err := store.Save("m1", "sess-b", []byte("chunk-three"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if first.ChunkNumber != 0 || second.ChunkNumber != 1 {
		t.Errorf("Session counter wrong: %d, %d", first.ChunkNumber, second.ChunkNumber)
	}
	if other.ChunkNumber != 0 {
		t.Errorf("Counters leaked across sessions: %d", other.ChunkNumber)
	}

	data, err := os.ReadFile(first.Path)
	if err != nil {
		t.Fatalf("Saved chunk unreadable: %v", err)
	}
	if string(data) != "chunk-one" {
		t.Errorf("Chunk content mangled: %q", data)
	}

	if !strings.HasPrefix(first.Filename, "audio_chunk_sess-a_0_") || !strings.HasSuffix(first.Filename, ".webm") {
		t.Errorf("Unexpected filename: %s", first.Filename)
	}
	if filepath.Dir(first.Path) != filepath.Join(filepath.Dir(filepath.Dir(first.Path)), "audio") {
		t.Errorf("Chunk not under the meeting audio dir: %s", first.Path)
	}
}

func TestChunkStore_CleanupSessionResetsCounter(t *testing.T) {
	store, err := NewChunkStore(t.TempDir(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewChunkStore failed: %v", err)
	}

	store.Save("m1", "sess-a", []byte("x"))
	store.Save("m1", "sess-a", []byte("y"))
	store.CleanupSession("sess-a")

	info, err := store.Save("m1", "sess-a", []byte("z"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if info.ChunkNumber != 0 {
		t.Errorf("Counter survived cleanup: %d", info.ChunkNumber)
	}
}

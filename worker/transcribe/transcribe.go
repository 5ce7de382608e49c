package transcribe

import "context"

// Result is what the speech-to-text backend produced for one audio file.
type Result struct {
	Text       string
	Confidence float64
}

// Transcriber turns an audio file on disk into text. Implementations block
// for the duration of the call; the worker pool gives each call its own
// goroutine.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (Result, error)
}

package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Submission is one incoming recording or text payload. Exactly one of
// Audio or Text is expected to be set; Text short-circuits transcription.
type Submission struct {
	Audio      []byte
	Format     string
	SampleRate int
	Text       string
}

// Adapter turns a Submission into transcript text. Engine failures never
// escape its boundary: the returned text flags the failure instead, so the
// ingestion pipeline can still produce a best-effort record.
type Adapter struct {
	engine Engine
}

// NewAdapter creates an Adapter over the given transcription engine.
func NewAdapter(engine Engine) *Adapter {
	return &Adapter{engine: engine}
}

// Transcribe returns the transcript for sub. Already-transcribed text passes
// through untouched. Audio is staged to a temporary file (removed on every
// exit path) and fed to the engine; any engine failure yields a
// "transcription error: ..." text rather than an error.
func (a *Adapter) Transcribe(ctx context.Context, sub Submission) string {
	if sub.Text != "" {
		return sub.Text
	}
	if len(sub.Audio) == 0 {
		return "transcription error: no audio data"
	}

	slog.Debug("transcribing audio",
		"bytes", len(sub.Audio),
		"format", sub.Format,
		"sample_rate", sub.SampleRate,
	)

	path, err := stageAudio(sub.Audio, sub.Format)
	if err != nil {
		slog.Warn("staging audio failed", "error", err)
		return "transcription error: " + err.Error()
	}
	defer os.Remove(path)

	text, err := a.engine.Transcribe(ctx, path)
	if err != nil {
		slog.Warn("transcription failed", "error", err)
		return "transcription error: " + err.Error()
	}
	return text
}

// stageAudio writes audio bytes to a uniquely named temporary file and
// returns its path. The caller removes the file.
func stageAudio(audio []byte, format string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(format, "."))
	if ext == "" {
		ext = "wav"
	}

	f, err := os.CreateTemp("", "voicelog-audio-*."+ext)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := f.Write(audio); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing audio: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	return f.Name(), nil
}

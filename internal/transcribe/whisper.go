package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Engine converts an audio file into text. Implementations wrap external
// speech-to-text programs; all failures surface as plain errors for the
// Adapter to absorb.
type Engine interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// CLIEngine runs a whisper-style transcription binary as a subprocess.
// The binary writes a JSON transcript to a file; the engine reads its
// text field. Matches the insanely-fast-whisper CLI contract.
type CLIEngine struct {
	binary  string
	model   string
	device  string
	timeout time.Duration
}

// NewCLIEngine creates a CLIEngine. Empty binary/model/device fall back to
// insanely-fast-whisper with a distil model on CPU. A timeout <= 0 defaults
// to 2 minutes so a hung subprocess can never block a request forever.
func NewCLIEngine(binary, model, device string, timeout time.Duration) *CLIEngine {
	if binary == "" {
		binary = "insanely-fast-whisper"
	}
	if model == "" {
		model = "distil-whisper/large-v2"
	}
	if device == "" {
		device = "cpu"
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &CLIEngine{binary: binary, model: model, device: device, timeout: timeout}
}

// transcript mirrors the JSON file the whisper CLI writes.
type transcript struct {
	Text string `json:"text"`
}

// Transcribe runs the whisper binary on audioPath and returns the transcript
// text. The JSON output file gets a unique name per call and is removed on
// every path.
func (e *CLIEngine) Transcribe(ctx context.Context, audioPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	transcriptPath := filepath.Join(os.TempDir(), "voicelog-transcript-"+uuid.New().String()+".json")
	defer os.Remove(transcriptPath)

	cmd := exec.CommandContext(ctx, e.binary,
		"--file-name", audioPath,
		"--model-name", e.model,
		"--device-id", e.device,
		"--batch-size", "4",
		"--transcript-path", transcriptPath,
	)
	if _, err := cmd.Output(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("transcription timed out after %s", e.timeout)
		}
		if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
			return "", fmt.Errorf("whisper failed: %s", strings.TrimSpace(string(ee.Stderr)))
		}
		return "", fmt.Errorf("running whisper: %w", err)
	}

	data, err := os.ReadFile(transcriptPath)
	if err != nil {
		return "", fmt.Errorf("reading transcript: %w", err)
	}

	var parsed transcript
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("parsing transcript: %w", err)
	}
	return parsed.Text, nil
}

package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/mattn/go-shellwords"
	"github.com/phonalabs/phona-core/internal/acoustic"
	"github.com/phonalabs/phona-core/internal/ctc"
)

type execRecognizer struct {
	cmd       []string
	modelPath string
	mu        sync.Mutex
}

type execSegments struct {
	Segments []ctc.Segment `json:"segments"`
}

// NewExecRecognizer wraps an external phone recognizer that reads a
// WAV file and prints timed segments as JSON. Used for backends that
// do their own decoding end to end.
func NewExecRecognizer(command, modelPath string) (Recognizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse recognizer command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("recognizer command is empty")
	}
	return &execRecognizer{cmd: args, modelPath: modelPath}, nil
}

func (r *execRecognizer) Recognize(ctx context.Context, pcm []byte, sampleRate int, channels int) ([]ctc.Segment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := os.CreateTemp(os.TempDir(), "phona_rec_*.wav")
	if err != nil {
		return nil, fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(file.Name())
	defer file.Close()

	if err := acoustic.WritePCMToWav(file, pcm, sampleRate, channels); err != nil {
		return nil, err
	}

	base := r.cmd[0]
	cmdArgs := append([]string{}, r.cmd[1:]...)
	cmdArgs = append(cmdArgs, "--audio", file.Name())
	if r.modelPath != "" {
		cmdArgs = append(cmdArgs, "--model", r.modelPath)
	}

	command := exec.CommandContext(ctx, base, cmdArgs...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return nil, fmt.Errorf("recognizer command failed: %w: %s", err, stderr.String())
	}

	var resp execSegments
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("decode recognizer response: %w", err)
	}
	return resp.Segments, nil
}

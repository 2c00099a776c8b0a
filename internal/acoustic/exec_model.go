package acoustic

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mattn/go-shellwords"
	"github.com/phonalabs/phona-core/internal/ctc"
	"github.com/phonalabs/phona-core/internal/phoneme"
)

type execModel struct {
	cmd       []string
	modelPath string
	mu        sync.Mutex
}

// execInference is the JSON contract external acoustic models print to
// stdout: the phone inventory, its blank index, the per-frame duration,
// the silence-trim offset, and the T×V log-probability matrix.
type execInference struct {
	Vocab    []string    `json:"vocab"`
	Blank    int         `json:"blank"`
	FrameMS  float64     `json:"frame_ms"`
	OffsetMS int         `json:"offset_ms"`
	LogProbs [][]float64 `json:"log_probs"`
}

// NewExecModel wraps an external acoustic-model command that reads a
// WAV file and emits frame log-probabilities as JSON.
func NewExecModel(command, modelPath string) (Model, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse acoustic model command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("acoustic model command is empty")
	}
	return &execModel{cmd: args, modelPath: modelPath}, nil
}

func (m *execModel) Infer(ctx context.Context, pcm []byte, sampleRate int, channels int) (Inference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, err := os.CreateTemp(os.TempDir(), "phona_am_*.wav")
	if err != nil {
		return Inference{}, fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(file.Name())
	defer file.Close()

	if err := WritePCMToWav(file, pcm, sampleRate, channels); err != nil {
		return Inference{}, err
	}

	base := m.cmd[0]
	cmdArgs := append([]string{}, m.cmd[1:]...)
	cmdArgs = append(cmdArgs, "--audio", file.Name())
	if m.modelPath != "" {
		cmdArgs = append(cmdArgs, "--model", m.modelPath)
	}

	command := exec.CommandContext(ctx, base, cmdArgs...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return Inference{}, fmt.Errorf("acoustic model command failed: %w: %s", err, stderr.String())
	}

	var resp execInference
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return Inference{}, fmt.Errorf("decode acoustic model response: %w", err)
	}
	vocab, err := phoneme.NewVocabulary(resp.Vocab, resp.Blank)
	if err != nil {
		return Inference{}, fmt.Errorf("acoustic model vocabulary: %w", err)
	}
	frames := ctc.FrameLogProbs{
		Rows:     resp.LogProbs,
		FrameMS:  resp.FrameMS,
		OffsetMS: resp.OffsetMS,
	}
	if err := frames.Validate(vocab.Size()); err != nil {
		return Inference{}, err
	}
	return Inference{Frames: frames, Vocab: vocab}, nil
}

func WritePCMToWav(file *os.File, pcm []byte, sampleRate int, channels int) error {
	if len(pcm)%2 != 0 {
		return fmt.Errorf("pcm payload not aligned")
	}
	buffer := &audio.IntBuffer{Format: &audio.Format{NumChannels: channels, SampleRate: sampleRate}}
	samples := make([]int, len(pcm)/2)
	for i := 0; i < len(samples); i++ {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	buffer.Data = samples

	enc := wav.NewEncoder(file, sampleRate, 16, channels, 1)
	if err := enc.Write(buffer); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}

package g2p

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"

	"github.com/mattn/go-shellwords"
)

type execConverter struct {
	cmd []string
	mu  sync.Mutex
}

type execRequest struct {
	Text string `json:"text"`
}

type execResponse struct {
	Phonemes []string `json:"phonemes"`
}

// NewExecConverter wraps an external grapheme-to-phoneme command that
// reads {"text": ...} on stdin and prints {"phonemes": [...]}.
func NewExecConverter(command string) (Converter, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse g2p command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("g2p command is empty")
	}
	return &execConverter{cmd: args}, nil
}

func (c *execConverter) Convert(ctx context.Context, text string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	payload, err := json.Marshal(execRequest{Text: text})
	if err != nil {
		return nil, err
	}

	base := c.cmd[0]
	args := append([]string{}, c.cmd[1:]...)
	command := exec.CommandContext(ctx, base, args...)
	command.Stdin = bytes.NewReader(payload)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return nil, fmt.Errorf("g2p command failed: %w: %s", err, stderr.String())
	}

	var resp execResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("decode g2p response: %w", err)
	}
	return resp.Phonemes, nil
}

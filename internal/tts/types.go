package tts

import "context"

// SynthRequest contains parameters to synthesize reference audio for a
// practice text. Rate slows or speeds delivery ("-25%" reads slower,
// which suits learners shadowing the reference).
type SynthRequest struct {
	SessionID string
	Text      string
	Voice     string
	Rate      string
}

// SynthChunk contains PCM data.
type SynthChunk struct {
	SessionID  string
	Sequence   int
	SampleRate int
	Channels   int
	PCM        []byte
	Final      bool
}

// Synthesizer is the contract for producing reference audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthRequest) (<-chan SynthChunk, <-chan error)
}

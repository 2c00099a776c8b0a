package protocol

import (
	"time"

	"github.com/phonalabs/phona-core/internal/align"
	"github.com/phonalabs/phona-core/internal/ctc"
)

// AudioFrame represents PCM audio data streamed from edge devices
// during a pronunciation attempt.
type AudioFrame struct {
	SessionID  string `json:"session_id"`
	AttemptID  string `json:"attempt_id"`
	Sequence   int    `json:"sequence"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	PCM        []byte `json:"pcm"`
	Final      bool   `json:"final"`
}

// PracticeInit opens a practice session for a piece of text.
type PracticeInit struct {
	SessionID string    `json:"session_id"`
	Text      string    `json:"text"`
	Voice     string    `json:"voice,omitempty"`
	WantAudio bool      `json:"want_audio,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PracticeReady confirms the reference phonemes for a session. Clients
// display the IPA string and then start streaming attempt audio.
type PracticeReady struct {
	SessionID string    `json:"session_id"`
	Text      string    `json:"text"`
	Phonemes  []string  `json:"phonemes"`
	IPA       string    `json:"ipa"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ScoreReport carries the alignment verdict for one finished attempt.
type ScoreReport struct {
	SessionID string        `json:"session_id"`
	AttemptID string        `json:"attempt_id"`
	Score     int           `json:"score"`
	Segments  []ctc.Segment `json:"segments"`
	Details   []align.Op    `json:"details"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// TTSRequest asks for reference audio of the practice text.
type TTSRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	Voice     string `json:"voice,omitempty"`
	Target    string `json:"target,omitempty"`
}

// AudioChunk is one PCM chunk of synthesized reference audio.
type AudioChunk struct {
	SessionID  string `json:"session_id"`
	Target     string `json:"target,omitempty"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Sequence   int    `json:"sequence"`
	PCM        []byte `json:"pcm"`
	Final      bool   `json:"final"`
}

// TTSStatus signals the end of a reference audio stream.
type TTSStatus struct {
	SessionID string    `json:"session_id"`
	Target    string    `json:"target,omitempty"`
	Completed bool      `json:"completed"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	SubjectAudioAttemptPrefix = "audio.attempt"
	SubjectPracticeInit       = "practice.init"
	SubjectPracticeReady      = "practice.ready"
	SubjectScoreResult        = "score.result"
	SubjectTTSRequest         = "tts.request"
	SubjectTTSAudio           = "tts.audio"
	SubjectTTSDone            = "tts.done"
)

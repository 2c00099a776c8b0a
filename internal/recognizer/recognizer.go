package recognizer

import (
	"context"

	"github.com/phonalabs/phona-core/internal/ctc"
)

// Recognizer turns captured audio into a timed, confidence-scored
// phoneme segment sequence. Implementations are interchangeable
// strategies selected by configuration; only this contract is carried
// through the pipeline because the scorer depends on the confidence
// and timing fields.
type Recognizer interface {
	Recognize(ctx context.Context, pcm []byte, sampleRate int, channels int) ([]ctc.Segment, error)
}

// ExpectedBiaser is implemented by recognizers that can bias decoding
// toward an attempt's reference phonemes. Callers that hold the
// reference sequence derive a per-attempt recognizer from it.
type ExpectedBiaser interface {
	WithExpected(phonemes []string) Recognizer
}

package recognizer

import (
	"context"
	"fmt"

	"github.com/phonalabs/phona-core/internal/acoustic"
	"github.com/phonalabs/phona-core/internal/ctc"
)

// Options carries the decode parameters shared by the probability
// refiner, the beam search and the segment extractor.
type Options struct {
	BeamWidth           int
	ConfidenceThreshold float64
	PhonemeBoost        float64
	Temperature         float64
	MinDurationMS       int
	MaxFrames           int
	// ExpectedPhonemes bias the refiner toward the practice text's
	// phonemes. Hints only; they never gate validity.
	ExpectedPhonemes []string
}

type beamRecognizer struct {
	model acoustic.Model
	opts  Options
}

// NewBeamRecognizer builds the full decode pipeline: acoustic
// inference, temperature scaling, per-frame refinement, prefix beam
// search, and segment extraction against the unrefined probabilities.
func NewBeamRecognizer(model acoustic.Model, opts Options) Recognizer {
	return &beamRecognizer{model: model, opts: opts}
}

// WithExpected returns a recognizer biased toward the given reference
// phonemes. The receiver is unchanged.
func (r *beamRecognizer) WithExpected(phonemes []string) Recognizer {
	opts := r.opts
	opts.ExpectedPhonemes = append([]string(nil), phonemes...)
	return &beamRecognizer{model: r.model, opts: opts}
}

func (r *beamRecognizer) Recognize(ctx context.Context, pcm []byte, sampleRate int, channels int) ([]ctc.Segment, error) {
	inf, err := r.model.Infer(ctx, pcm, sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("acoustic inference: %w", err)
	}

	expected := make(map[int]bool, len(r.opts.ExpectedPhonemes))
	for _, sym := range r.opts.ExpectedPhonemes {
		if idx, ok := inf.Vocab.Index(sym); ok {
			expected[idx] = true
		}
	}

	frames := inf.Frames.WithTemperature(r.opts.Temperature)
	decoder := ctc.NewDecoder(inf.Vocab, ctc.DecoderConfig{
		BeamWidth: r.opts.BeamWidth,
		MaxFrames: r.opts.MaxFrames,
		Refine: ctc.RefineConfig{
			ConfidenceThreshold: r.opts.ConfidenceThreshold,
			PhonemeBoost:        r.opts.PhonemeBoost,
			Expected:            expected,
		},
	})

	result, err := decoder.Decode(ctx, frames)
	if err != nil {
		return nil, fmt.Errorf("beam decode: %w", err)
	}
	return ctc.ExtractSegments(result.Trace, frames, inf.Vocab, r.opts.MinDurationMS), nil
}

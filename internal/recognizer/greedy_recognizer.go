package recognizer

import (
	"context"
	"fmt"

	"github.com/phonalabs/phona-core/internal/acoustic"
	"github.com/phonalabs/phona-core/internal/ctc"
	"github.com/phonalabs/phona-core/internal/logmath"
)

type greedyRecognizer struct {
	model acoustic.Model
	opts  Options
}

// NewGreedyRecognizer decodes by per-frame argmax with CTC collapsing.
// Much cheaper than beam search and usually close on clean audio; it
// shares the segment contract so callers cannot tell the strategies
// apart.
func NewGreedyRecognizer(model acoustic.Model, opts Options) Recognizer {
	return &greedyRecognizer{model: model, opts: opts}
}

func (r *greedyRecognizer) Recognize(ctx context.Context, pcm []byte, sampleRate int, channels int) ([]ctc.Segment, error) {
	inf, err := r.model.Infer(ctx, pcm, sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("acoustic inference: %w", err)
	}
	frames := inf.Frames.WithTemperature(r.opts.Temperature)
	if err := frames.Validate(inf.Vocab.Size()); err != nil {
		return nil, err
	}

	blank := inf.Vocab.Blank()
	var trace []ctc.SegmentTrace
	prev := -1
	for t, row := range frames.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		idx := logmath.Argmax(row)
		if idx == blank {
			prev = -1
			continue
		}
		if idx == prev {
			trace[len(trace)-1].End = t
			continue
		}
		trace = append(trace, ctc.SegmentTrace{Symbol: idx, Start: t, End: t})
		prev = idx
	}

	return ctc.ExtractSegments(trace, frames, inf.Vocab, r.opts.MinDurationMS), nil
}

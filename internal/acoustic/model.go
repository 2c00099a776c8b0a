package acoustic

import (
	"context"

	"github.com/phonalabs/phona-core/internal/ctc"
	"github.com/phonalabs/phona-core/internal/phoneme"
)

// Inference is the raw acoustic-model output for one utterance: the
// frame log-probability matrix plus the vocabulary it is indexed by.
type Inference struct {
	Frames ctc.FrameLogProbs
	Vocab  *phoneme.Vocabulary
}

// Model abstracts acoustic-model backends. The model owns the
// vocabulary; callers treat it as immutable.
type Model interface {
	Infer(ctx context.Context, pcm []byte, sampleRate int, channels int) (Inference, error)
}

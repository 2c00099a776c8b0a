package acoustic

import (
	"context"

	"github.com/phonalabs/phona-core/internal/ctc"
	"github.com/phonalabs/phona-core/internal/phoneme"
)

type mockModel struct {
	vocab  *phoneme.Vocabulary
	frames ctc.FrameLogProbs
}

// NewMockModel returns a model that always emits the given matrix,
// for tests and development without a real acoustic backend.
func NewMockModel(vocab *phoneme.Vocabulary, frames ctc.FrameLogProbs) Model {
	return &mockModel{vocab: vocab, frames: frames}
}

func (m *mockModel) Infer(_ context.Context, _ []byte, _ int, _ int) (Inference, error) {
	return Inference{Frames: m.frames, Vocab: m.vocab}, nil
}

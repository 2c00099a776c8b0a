package recognizer

import (
	"context"

	"github.com/phonalabs/phona-core/internal/ctc"
)

type mockRecognizer struct {
	segments []ctc.Segment
}

// NewMockRecognizer returns fixed segments regardless of input.
func NewMockRecognizer(segments []ctc.Segment) Recognizer {
	return &mockRecognizer{segments: segments}
}

func (m *mockRecognizer) Recognize(_ context.Context, _ []byte, _ int, _ int) ([]ctc.Segment, error) {
	return m.segments, nil
}

package ctc

import (
	"errors"
	"fmt"

	"github.com/phonalabs/phona-core/internal/logmath"
)

// ErrInvalidInput marks structural input violations: matrix/vocabulary
// shape mismatch, empty vocabulary, non-finite frame duration.
// Probability-space edge cases never surface as errors.
var ErrInvalidInput = errors.New("invalid input")

// FrameLogProbs is the T×V matrix of per-frame log-probabilities
// emitted by the acoustic model, one row per time frame, each row a
// log-softmax over the vocabulary. FrameMS converts frame indices to
// wall-clock milliseconds and OffsetMS re-anchors reported times to
// the original, untrimmed audio.
type FrameLogProbs struct {
	Rows     [][]float64
	FrameMS  float64
	OffsetMS int
}

// Validate checks the matrix shape against the vocabulary size. A
// zero-frame matrix is valid; decoding it yields an empty segment list.
func (f FrameLogProbs) Validate(vocabSize int) error {
	if vocabSize <= 0 {
		return fmt.Errorf("%w: vocabulary is empty", ErrInvalidInput)
	}
	if f.FrameMS <= 0 {
		return fmt.Errorf("%w: frame duration %vms must be positive", ErrInvalidInput, f.FrameMS)
	}
	for t, row := range f.Rows {
		if len(row) != vocabSize {
			return fmt.Errorf("%w: frame %d has width %d, want vocabulary size %d", ErrInvalidInput, t, len(row), vocabSize)
		}
	}
	return nil
}

// NumFrames returns T.
func (f FrameLogProbs) NumFrames() int { return len(f.Rows) }

// WithTemperature returns a copy of the matrix with every row divided
// by temperature and renormalized. Temperature 1 (or anything
// non-positive, treated as unset) returns the receiver unchanged;
// values above 1 flatten the distribution. Rows whose renormalization
// underflows are carried over unmodified.
func (f FrameLogProbs) WithTemperature(temperature float64) FrameLogProbs {
	if temperature <= 0 || temperature == 1 {
		return f
	}
	scaled := FrameLogProbs{
		Rows:     make([][]float64, len(f.Rows)),
		FrameMS:  f.FrameMS,
		OffsetMS: f.OffsetMS,
	}
	for t, row := range f.Rows {
		tmp := make([]float64, len(row))
		for i, v := range row {
			if v <= logmath.LogZero {
				tmp[i] = logmath.LogZero
				continue
			}
			tmp[i] = v / temperature
		}
		if norm, ok := logmath.LogSoftmax(tmp); ok {
			scaled.Rows[t] = norm
		} else {
			scaled.Rows[t] = append([]float64(nil), row...)
		}
	}
	return scaled
}

package ctc

import (
	"math"
	"sort"

	"github.com/phonalabs/phona-core/internal/phoneme"
)

// logConfidenceFloor avoids log(0) for segments whose median
// probability is zero.
const logConfidenceFloor = 1e-10

// Segment is one decoded phoneme with wall-clock timing and a robust
// confidence estimate.
type Segment struct {
	Phoneme       string  `json:"phoneme"`
	StartMS       int     `json:"start_ms"`
	EndMS         int     `json:"end_ms"`
	Confidence    float64 `json:"confidence"`
	LogConfidence float64 `json:"log_confidence"`
	NumFrames     int     `json:"num_frames"`
}

// ExtractSegments materializes the winning beam's trace into segments.
// Confidence is the median of the original (pre-refinement) per-frame
// probabilities for the segment's symbol; the median resists
// single-frame spikes and dips that would skew a mean. Segments
// shorter than minDurationMS are dropped. Timestamps include the
// matrix's trim offset so they refer to the untrimmed audio.
func ExtractSegments(trace []SegmentTrace, original FrameLogProbs, vocab *phoneme.Vocabulary, minDurationMS int) []Segment {
	segments := make([]Segment, 0, len(trace))
	for _, tr := range trace {
		numFrames := tr.End - tr.Start + 1
		if numFrames <= 0 {
			continue
		}
		durationMS := float64(numFrames) * original.FrameMS
		if durationMS < float64(minDurationMS) {
			continue
		}

		probs := make([]float64, 0, numFrames)
		for f := tr.Start; f <= tr.End; f++ {
			if f < 0 || f >= len(original.Rows) || tr.Symbol >= len(original.Rows[f]) {
				continue
			}
			probs = append(probs, math.Exp(original.Rows[f][tr.Symbol]))
		}
		confidence := median(probs)

		segments = append(segments, Segment{
			Phoneme:       vocab.Symbol(tr.Symbol),
			StartMS:       original.OffsetMS + int(math.Round(float64(tr.Start)*original.FrameMS)),
			EndMS:         original.OffsetMS + int(math.Round(float64(tr.End+1)*original.FrameMS)),
			Confidence:    confidence,
			LogConfidence: math.Log(confidence + logConfidenceFloor),
			NumFrames:     numFrames,
		})
	}
	return segments
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

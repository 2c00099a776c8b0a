package ctc

import (
	"math"
	"sort"

	"github.com/phonalabs/phona-core/internal/logmath"
)

// RefineConfig controls the per-frame probability refinement applied
// before beam expansion.
type RefineConfig struct {
	// ConfidenceThreshold gates candidate suppression: when the top
	// probability of a frame falls below it, the frame is restricted to
	// its top-2 candidates plus blank. Zero disables suppression.
	ConfidenceThreshold float64
	// PhonemeBoost is added (in log-prob units) to expected symbols
	// that are already acoustically plausible for the frame.
	PhonemeBoost float64
	// Expected holds vocabulary indices of the phonemes the caller
	// anticipates. Biasing hints only; validity is never gated on them.
	Expected map[int]bool
}

// topIndices returns the indices of the k largest row entries, ordered
// by value descending with index ascending as the deterministic
// tie-break.
func topIndices(row []float64, k int) []int {
	idx := make([]int, len(row))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if row[idx[a]] != row[idx[b]] {
			return row[idx[a]] > row[idx[b]]
		}
		return idx[a] < idx[b]
	})
	if k > len(idx) {
		k = len(idx)
	}
	return idx[:k]
}

// RefineFrame returns an adjusted copy of one frame's log-probability
// row. Low-confidence frames are narrowed to their two strongest
// candidates plus blank and renormalized; expected phonemes already in
// the frame's top-3 receive an additive boost. The input row is never
// mutated. If the suppression renormalization underflows the row is
// returned unchanged rather than propagating NaN.
func RefineFrame(row []float64, blank int, cfg RefineConfig) []float64 {
	out := append([]float64(nil), row...)
	if len(row) == 0 {
		return out
	}

	top := topIndices(row, 5)

	if cfg.ConfidenceThreshold > 0 && math.Exp(row[top[0]]) < cfg.ConfidenceThreshold {
		keep := map[int]bool{blank: true}
		for i := 0; i < 2 && i < len(top); i++ {
			keep[top[i]] = true
		}
		restricted := make([]float64, len(out))
		for i := range out {
			if keep[i] {
				restricted[i] = out[i]
			} else {
				restricted[i] = logmath.LogZero
			}
		}
		if norm, ok := logmath.LogSoftmax(restricted); ok {
			out = norm
		}
		// underflow: keep the unsuppressed row
	}

	if cfg.PhonemeBoost != 0 && len(cfg.Expected) > 0 {
		// Boost gating uses the pre-suppression top-3 so suppression
		// cannot manufacture plausibility.
		for i := 0; i < 3 && i < len(top); i++ {
			sym := top[i]
			if cfg.Expected[sym] && out[sym] > logmath.LogZero {
				out[sym] += cfg.PhonemeBoost
			}
		}
	}

	return out
}

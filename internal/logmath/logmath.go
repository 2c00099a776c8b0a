package logmath

import "math"

// LogZero represents log(0), used as negative infinity in log-domain arithmetic.
const LogZero = -1e30

// LogAdd returns log(exp(a) + exp(b)) in a numerically stable way.
// Uses threshold-based early exit to skip expensive exp/log1p when the
// smaller value contributes less than float64 precision (exp(-36) ≈ 2.3e-16).
func LogAdd(a, b float64) float64 {
	if a > b {
		if b <= LogZero {
			return a
		}
		d := b - a
		if d < -36.0 {
			return a
		}
		return a + math.Log1p(math.Exp(d))
	}
	if a <= LogZero {
		return b
	}
	d := a - b
	if d < -36.0 {
		return b
	}
	return b + math.Log1p(math.Exp(d))
}

// LogSumExp folds LogAdd over a slice. Returns LogZero for an empty slice.
func LogSumExp(values []float64) float64 {
	total := math.Inf(-1)
	max := math.Inf(-1)
	for _, v := range values {
		if v > max {
			max = v
		}
	}
	if math.IsInf(max, -1) || max <= LogZero {
		return LogZero
	}
	var sum float64
	for _, v := range values {
		if v <= LogZero {
			continue
		}
		sum += math.Exp(v - max)
	}
	if sum == 0 {
		return LogZero
	}
	total = max + math.Log(sum)
	return total
}

// LogSoftmax renormalizes a log-probability row in place-free fashion:
// the returned slice is a fresh allocation, entries at or below LogZero
// stay excluded from the support. Returns false when the denominator
// underflows to zero and no valid distribution exists.
func LogSoftmax(row []float64) ([]float64, bool) {
	denom := LogSumExp(row)
	if denom <= LogZero {
		return nil, false
	}
	out := make([]float64, len(row))
	for i, v := range row {
		if v <= LogZero {
			out[i] = LogZero
			continue
		}
		out[i] = v - denom
	}
	return out, true
}

// Argmax returns the index of the maximum value, -1 for an empty slice.
func Argmax(row []float64) int {
	if len(row) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(row); i++ {
		if row[i] > row[best] {
			best = i
		}
	}
	return best
}

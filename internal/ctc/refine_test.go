package ctc

import (
	"math"
	"testing"

	"github.com/phonalabs/phona-core/internal/logmath"
)

func TestRefineFrameNoopWhenConfident(t *testing.T) {
	row := logRow(0.05, 0.80, 0.10, 0.05)
	out := RefineFrame(row, 0, RefineConfig{ConfidenceThreshold: 0.5})
	for i := range row {
		if out[i] != row[i] {
			t.Fatalf("confident frame should pass through unchanged at %d", i)
		}
	}
}

func TestRefineFrameSuppresssLowConfidence(t *testing.T) {
	// Top probability 0.35 < threshold 0.5: restrict to top-2 + blank.
	row := logRow(0.05, 0.35, 0.30, 0.30)
	out := RefineFrame(row, 0, RefineConfig{ConfidenceThreshold: 0.5})

	if out[3] > logmath.LogZero {
		t.Fatal("index 3 should be suppressed")
	}
	// Blank survives suppression even though it is not in the top-2.
	if out[0] <= logmath.LogZero {
		t.Fatal("blank must never be excluded")
	}
	var sum float64
	for _, v := range out {
		if v <= logmath.LogZero {
			continue
		}
		sum += math.Exp(v)
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Fatalf("restricted row not renormalized: sum=%f", sum)
	}
}

func TestRefineFrameDoesNotMutateInput(t *testing.T) {
	row := logRow(0.05, 0.35, 0.30, 0.30)
	snapshot := append([]float64(nil), row...)
	RefineFrame(row, 0, RefineConfig{ConfidenceThreshold: 0.9, PhonemeBoost: 1, Expected: map[int]bool{1: true}})
	for i := range row {
		if row[i] != snapshot[i] {
			t.Fatal("RefineFrame mutated its input row")
		}
	}
}

func TestRefineFrameBoostGatedOnTop3(t *testing.T) {
	row := logRow(0.40, 0.30, 0.15, 0.15)
	cfg := RefineConfig{PhonemeBoost: 1.0, Expected: map[int]bool{1: true, 3: true}}
	out := RefineFrame(row, 0, cfg)

	if math.Abs(out[1]-(row[1]+1.0)) > 1e-12 {
		t.Fatalf("expected symbol in top-3 should be boosted: got %f want %f", out[1], row[1]+1.0)
	}
	// Index 3 ties with 2 on probability but loses the index tie-break,
	// so it sits outside the top-3 and must not be boosted.
	if out[3] != row[3] {
		t.Fatalf("symbol outside top-3 must not be boosted: got %f want %f", out[3], row[3])
	}
}

func TestRefineFrameUnderflowFallback(t *testing.T) {
	// All mass at or below LogZero: renormalization has no support, the
	// row must come back unmodified instead of NaN.
	row := []float64{logmath.LogZero, logmath.LogZero, logmath.LogZero, logmath.LogZero}
	out := RefineFrame(row, 0, RefineConfig{ConfidenceThreshold: 0.9})
	for i := range row {
		if out[i] != row[i] {
			t.Fatal("underflow should leave the row unmodified")
		}
		if math.IsNaN(out[i]) {
			t.Fatal("refined row contains NaN")
		}
	}
}

func TestWithTemperatureFlattens(t *testing.T) {
	f := frames(logRow(0.7, 0.1, 0.1, 0.1))
	flat := f.WithTemperature(2.0)

	spreadBefore := f.Rows[0][0] - f.Rows[0][1]
	spreadAfter := flat.Rows[0][0] - flat.Rows[0][1]
	if spreadAfter >= spreadBefore {
		t.Fatalf("temperature > 1 should flatten: %f vs %f", spreadAfter, spreadBefore)
	}
	var sum float64
	for _, v := range flat.Rows[0] {
		sum += math.Exp(v)
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Fatalf("scaled row not renormalized: %f", sum)
	}
}

func TestWithTemperatureIdentity(t *testing.T) {
	f := frames(logRow(0.7, 0.1, 0.1, 0.1))
	same := f.WithTemperature(1.0)
	if &same.Rows[0][0] != &f.Rows[0][0] {
		t.Fatal("temperature 1 should return the input unchanged")
	}
}

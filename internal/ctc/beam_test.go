package ctc

import (
	"context"
	"math"
	"reflect"
	"testing"

	"github.com/phonalabs/phona-core/internal/phoneme"
)

func testVocab(t *testing.T) *phoneme.Vocabulary {
	t.Helper()
	v, err := phoneme.NewVocabulary([]string{"<blk>", "a", "b", "c"}, 0)
	if err != nil {
		t.Fatalf("vocabulary: %v", err)
	}
	return v
}

// logRow converts linear probabilities to a log-softmax row.
func logRow(probs ...float64) []float64 {
	row := make([]float64, len(probs))
	var sum float64
	for _, p := range probs {
		sum += p
	}
	for i, p := range probs {
		row[i] = math.Log(p / sum)
	}
	return row
}

func frames(rows ...[]float64) FrameLogProbs {
	return FrameLogProbs{Rows: rows, FrameMS: 20}
}

func TestDecodeRejectsShapeMismatch(t *testing.T) {
	vocab := testVocab(t)
	dec := NewDecoder(vocab, DecoderConfig{BeamWidth: 4})
	bad := frames(logRow(0.5, 0.5))
	if _, err := dec.Decode(context.Background(), bad); err == nil {
		t.Fatal("expected shape mismatch error")
	}
}

func TestDecodeZeroFrames(t *testing.T) {
	vocab := testVocab(t)
	dec := NewDecoder(vocab, DecoderConfig{BeamWidth: 4})
	res, err := dec.Decode(context.Background(), frames())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Prefix) != 0 || len(res.Trace) != 0 {
		t.Fatalf("expected empty decode, got %+v", res)
	}
	if res.Score != 0 {
		t.Fatalf("expected log(1)=0 score for empty decode, got %f", res.Score)
	}
}

func TestDecodeSimpleSequence(t *testing.T) {
	vocab := testVocab(t)
	dec := NewDecoder(vocab, DecoderConfig{BeamWidth: 4})
	// a a <blk> b
	input := frames(
		logRow(0.05, 0.90, 0.03, 0.02),
		logRow(0.05, 0.90, 0.03, 0.02),
		logRow(0.90, 0.04, 0.04, 0.02),
		logRow(0.05, 0.03, 0.90, 0.02),
	)
	res, err := dec.Decode(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(res.Prefix, []int{1, 2}) {
		t.Fatalf("expected prefix [a b], got %v", res.Prefix)
	}
	want := []SegmentTrace{{Symbol: 1, Start: 0, End: 1}, {Symbol: 2, Start: 3, End: 3}}
	if !reflect.DeepEqual(res.Trace, want) {
		t.Fatalf("expected trace %v, got %v", want, res.Trace)
	}
}

func TestDecodeCollapsesRepeatsWithoutBlank(t *testing.T) {
	vocab := testVocab(t)
	dec := NewDecoder(vocab, DecoderConfig{BeamWidth: 4})
	input := frames(
		logRow(0.02, 0.95, 0.02, 0.01),
		logRow(0.02, 0.95, 0.02, 0.01),
		logRow(0.02, 0.95, 0.02, 0.01),
	)
	res, err := dec.Decode(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(res.Prefix, []int{1}) {
		t.Fatalf("expected single collapsed a, got %v", res.Prefix)
	}
}

func TestDecodeRepeatAcrossBlank(t *testing.T) {
	vocab := testVocab(t)
	dec := NewDecoder(vocab, DecoderConfig{BeamWidth: 8})
	input := frames(
		logRow(0.02, 0.95, 0.02, 0.01),
		logRow(0.95, 0.02, 0.02, 0.01),
		logRow(0.02, 0.95, 0.02, 0.01),
	)
	res, err := dec.Decode(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(res.Prefix, []int{1, 1}) {
		t.Fatalf("expected a blank a -> [a a], got %v", res.Prefix)
	}
	if len(res.Trace) != 2 {
		t.Fatalf("expected two segments, got %v", res.Trace)
	}
}

func TestDecodeDeterministic(t *testing.T) {
	vocab := testVocab(t)
	dec := NewDecoder(vocab, DecoderConfig{BeamWidth: 4})
	input := frames(
		logRow(0.30, 0.30, 0.25, 0.15),
		logRow(0.25, 0.25, 0.25, 0.25),
		logRow(0.20, 0.35, 0.25, 0.20),
		logRow(0.40, 0.10, 0.30, 0.20),
	)
	first, err := dec.Decode(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := dec.Decode(context.Background(), input)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("decode not deterministic: %+v vs %+v", first, again)
		}
	}
}

func TestDecodeBeamWidthMonotonic(t *testing.T) {
	vocab := testVocab(t)
	input := frames(
		logRow(0.30, 0.28, 0.22, 0.20),
		logRow(0.25, 0.20, 0.35, 0.20),
		logRow(0.22, 0.38, 0.20, 0.20),
		logRow(0.40, 0.20, 0.20, 0.20),
		logRow(0.20, 0.20, 0.25, 0.35),
	)
	var prev float64 = math.Inf(-1)
	for _, width := range []int{1, 2, 4, 8, 16} {
		dec := NewDecoder(vocab, DecoderConfig{BeamWidth: width})
		res, err := dec.Decode(context.Background(), input)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Score < prev-1e-12 {
			t.Fatalf("beam width %d decreased best score: %f < %f", width, res.Score, prev)
		}
		prev = res.Score
	}
}

func TestDecodeCancellation(t *testing.T) {
	vocab := testVocab(t)
	dec := NewDecoder(vocab, DecoderConfig{BeamWidth: 4})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	input := frames(logRow(0.25, 0.25, 0.25, 0.25))
	if _, err := dec.Decode(ctx, input); err == nil {
		t.Fatal("expected context error")
	}
}

func TestDecodeMaxFramesBudget(t *testing.T) {
	vocab := testVocab(t)
	dec := NewDecoder(vocab, DecoderConfig{BeamWidth: 4, MaxFrames: 2})
	input := frames(
		logRow(0.05, 0.90, 0.03, 0.02),
		logRow(0.90, 0.04, 0.04, 0.02),
		logRow(0.05, 0.03, 0.90, 0.02), // beyond budget, ignored
	)
	res, err := dec.Decode(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(res.Prefix, []int{1}) {
		t.Fatalf("expected decode truncated to [a], got %v", res.Prefix)
	}
}

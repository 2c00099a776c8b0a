package ctc

import (
	"math"
	"testing"
)

func TestExtractSegments(t *testing.T) {
	vocab := testVocab(t)
	original := FrameLogProbs{
		Rows: [][]float64{
			logRow(0.05, 0.90, 0.03, 0.02),
			logRow(0.05, 0.60, 0.30, 0.05), // dip, median should resist it
			logRow(0.05, 0.90, 0.03, 0.02),
			logRow(0.05, 0.03, 0.90, 0.02),
		},
		FrameMS:  20,
		OffsetMS: 100,
	}
	trace := []SegmentTrace{
		{Symbol: 1, Start: 0, End: 2},
		{Symbol: 2, Start: 3, End: 3},
	}

	segs := ExtractSegments(trace, original, vocab, 0)
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}

	a := segs[0]
	if a.Phoneme != "a" || a.NumFrames != 3 {
		t.Fatalf("unexpected first segment: %+v", a)
	}
	if a.StartMS != 100 || a.EndMS != 160 {
		t.Fatalf("expected offset timestamps [100,160], got [%d,%d]", a.StartMS, a.EndMS)
	}
	if math.Abs(a.Confidence-0.9) > 1e-9 {
		t.Fatalf("median confidence should be 0.9, got %f", a.Confidence)
	}
	if math.Abs(a.LogConfidence-math.Log(a.Confidence+logConfidenceFloor)) > 1e-12 {
		t.Fatalf("log confidence mismatch: %f", a.LogConfidence)
	}

	for _, s := range segs {
		if s.Confidence < 0 || s.Confidence > 1 {
			t.Fatalf("confidence out of [0,1]: %+v", s)
		}
		if s.EndMS <= s.StartMS {
			t.Fatalf("segment has non-positive duration: %+v", s)
		}
	}
}

func TestExtractSegmentsMinDuration(t *testing.T) {
	vocab := testVocab(t)
	original := FrameLogProbs{
		Rows: [][]float64{
			logRow(0.05, 0.90, 0.03, 0.02),
			logRow(0.05, 0.03, 0.90, 0.02),
			logRow(0.05, 0.03, 0.90, 0.02),
		},
		FrameMS: 20,
	}
	trace := []SegmentTrace{
		{Symbol: 1, Start: 0, End: 0}, // 20ms, below the 30ms floor
		{Symbol: 2, Start: 1, End: 2}, // 40ms, kept
	}

	segs := ExtractSegments(trace, original, vocab, 30)
	if len(segs) != 1 {
		t.Fatalf("expected short segment dropped, got %d segments", len(segs))
	}
	if segs[0].Phoneme != "b" {
		t.Fatalf("wrong surviving segment: %+v", segs[0])
	}
	if got := segs[0].EndMS - segs[0].StartMS; got < 30 {
		t.Fatalf("kept segment shorter than minimum: %dms", got)
	}
}

func TestMedian(t *testing.T) {
	if got := median([]float64{3, 1, 2}); got != 2 {
		t.Errorf("odd median = %f, want 2", got)
	}
	if got := median([]float64{4, 1, 2, 3}); got != 2.5 {
		t.Errorf("even median = %f, want 2.5", got)
	}
	if got := median(nil); got != 0 {
		t.Errorf("empty median = %f, want 0", got)
	}
}

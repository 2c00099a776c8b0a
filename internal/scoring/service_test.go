package scoring

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/phonalabs/phona-core/internal/align"
	"github.com/phonalabs/phona-core/internal/config"
	"github.com/phonalabs/phona-core/internal/ctc"
	"github.com/phonalabs/phona-core/internal/recognizer"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestService(rec recognizer.Recognizer) *Service {
	return NewService(context.Background(),
		config.ScoringConfig{Enabled: true, DecodeTimeoutMS: 1000},
		config.DecoderConfig{},
		config.RecognizerConfig{SampleRate: 16000, Channels: 1},
		nil, rec, nil, newLogger())
}

func TestSymbolsFromSegments(t *testing.T) {
	segments := []ctc.Segment{
		{Phoneme: "k", StartMS: 0, EndMS: 40, Confidence: 0.9},
		{Phoneme: "aʊ", StartMS: 40, EndMS: 120, Confidence: 0.7},
	}
	symbols := SymbolsFromSegments(segments)
	if len(symbols) != 3 {
		t.Fatalf("expected 3 atomic symbols, got %d: %v", len(symbols), symbols)
	}
	if symbols[1].Value != "a" || symbols[2].Value != "ʊ" {
		t.Fatalf("expected diphthong fan-out, got %v", symbols)
	}
	// Both halves carry the segment's confidence and timing.
	for _, sym := range symbols[1:] {
		if sym.Confidence != 0.7 || sym.StartMS != 40 || sym.EndMS != 120 || !sym.HasTiming {
			t.Fatalf("expected fanned-out confidence and timing, got %+v", sym)
		}
	}
}

func TestScoreAttemptPerfect(t *testing.T) {
	rec := recognizer.NewMockRecognizer([]ctc.Segment{
		{Phoneme: "k", StartMS: 0, EndMS: 60, Confidence: 0.9},
		{Phoneme: "æ", StartMS: 60, EndMS: 140, Confidence: 0.8},
		{Phoneme: "t", StartMS: 140, EndMS: 200, Confidence: 0.85},
	})
	svc := newTestService(rec)
	svc.refs["session-1"] = []string{"k", "æ", "t"}

	report := svc.scoreAttempt(context.Background(), "session-1", "attempt-1", []byte{1, 2}, 16000, 1)
	if report.Error != "" {
		t.Fatalf("unexpected report error: %s", report.Error)
	}
	if report.Score != 100 {
		t.Fatalf("expected perfect score, got %d", report.Score)
	}
	if len(report.Details) != 3 {
		t.Fatalf("expected 3 ops, got %d", len(report.Details))
	}
	for _, op := range report.Details {
		if op.Status != align.StatusMatch {
			t.Fatalf("expected all matches, got %+v", op)
		}
	}
}

func TestScoreAttemptSubstitution(t *testing.T) {
	rec := recognizer.NewMockRecognizer([]ctc.Segment{
		{Phoneme: "k", StartMS: 0, EndMS: 60, Confidence: 0.9},
		{Phoneme: "ɪ", StartMS: 60, EndMS: 140, Confidence: 0.6},
		{Phoneme: "t", StartMS: 140, EndMS: 200, Confidence: 0.85},
	})
	svc := newTestService(rec)
	svc.refs["session-1"] = []string{"k", "æ", "t"}

	report := svc.scoreAttempt(context.Background(), "session-1", "attempt-1", []byte{1, 2}, 16000, 1)
	if report.Score != 66 {
		t.Fatalf("expected score 66, got %d", report.Score)
	}
	var subs int
	for _, op := range report.Details {
		if op.Status == align.StatusSubstitution {
			subs++
			if op.Phoneme != "æ" || op.User != "ɪ" {
				t.Fatalf("unexpected substitution: %+v", op)
			}
		}
	}
	if subs != 1 {
		t.Fatalf("expected 1 substitution, got %d", subs)
	}
}

func TestScoreAttemptUnknownSession(t *testing.T) {
	rec := recognizer.NewMockRecognizer(nil)
	svc := newTestService(rec)

	report := svc.scoreAttempt(context.Background(), "nope", "attempt-1", nil, 16000, 1)
	if report.Error == "" {
		t.Fatal("expected error for unknown session")
	}
}

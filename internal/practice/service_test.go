package practice

import (
	"context"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/phonalabs/phona-core/internal/config"
	"github.com/phonalabs/phona-core/internal/g2p"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestReferencePhonemes(t *testing.T) {
	svc := NewService(context.Background(), config.PracticeConfig{Enabled: true},
		nil, g2p.NewStaticConverter(nil), nil, newLogger())

	got, err := svc.referencePhonemes(context.Background(), "cat")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"k", "æ", "t"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestReferencePhonemesSplitsDiphthongs(t *testing.T) {
	svc := NewService(context.Background(), config.PracticeConfig{Enabled: true},
		nil, g2p.NewStaticConverter(map[string][]string{"how": {"HH", "AW1"}}), nil, newLogger())

	got, err := svc.referencePhonemes(context.Background(), "how")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"h", "a", "ʊ"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestReferencePhonemesUnknownWord(t *testing.T) {
	svc := NewService(context.Background(), config.PracticeConfig{Enabled: true},
		nil, g2p.NewStaticConverter(nil), nil, newLogger())

	if _, err := svc.referencePhonemes(context.Background(), "zzyzx"); err == nil {
		t.Fatal("expected error for unknown word")
	}
}

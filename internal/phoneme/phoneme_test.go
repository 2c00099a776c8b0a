package phoneme

import (
	"reflect"
	"testing"
)

func TestNewVocabulary(t *testing.T) {
	v, err := NewVocabulary([]string{"<blk>", "k", "æ", "t"}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Size() != 4 {
		t.Fatalf("expected size 4, got %d", v.Size())
	}
	if v.Blank() != 0 {
		t.Fatalf("expected blank 0, got %d", v.Blank())
	}
	if i, ok := v.Index("æ"); !ok || i != 2 {
		t.Fatalf("expected æ at 2, got %d %v", i, ok)
	}
	if v.Symbol(3) != "t" {
		t.Fatalf("expected symbol t at 3")
	}
}

func TestNewVocabularyRejectsBadInput(t *testing.T) {
	if _, err := NewVocabulary(nil, 0); err == nil {
		t.Error("expected error for empty vocabulary")
	}
	if _, err := NewVocabulary([]string{"a"}, 1); err == nil {
		t.Error("expected error for blank out of range")
	}
	if _, err := NewVocabulary([]string{"a", "a"}, 0); err == nil {
		t.Error("expected error for duplicate symbol")
	}
}

func TestNormalizeStripsMarksAndSplits(t *testing.T) {
	got := Normalize([]string{"ˈkæt"})
	want := []string{"k", "æ", "t"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Normalize = %v, want %v", got, want)
	}
}

func TestNormalizeDecomposesDiphthongs(t *testing.T) {
	got := Normalize([]string{"aʊ", "tʃ"})
	want := []string{"a", "ʊ", "t", "ʃ"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Normalize = %v, want %v", got, want)
	}
}

func TestNormalizeCanonicalizesGlyphVariants(t *testing.T) {
	// U+0261 script g folds onto plain g, affricate ligature expands.
	got := Normalize([]string{"ɡoʊ", "ʤ"})
	want := []string{"g", "o", "ʊ", "d", "ʒ"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Normalize = %v, want %v", got, want)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := [][]string{
		{"ˈkæt"},
		{"aɪ", "sːkɹiːm"},
		{"HH", "ʌ", "loʊ"},
		{},
		{"ɡɫˌɚ"},
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("Normalize not idempotent for %v: %v != %v", in, once, twice)
		}
	}
}

func TestARPAToIPA(t *testing.T) {
	cases := map[string]string{
		"AH0": "ʌ",
		"AY1": "aɪ",
		"K":   "k",
		"CH":  "tʃ",
		"R":   "ɹ",
		"XX":  "XX", // unknown passes through
	}
	for in, want := range cases {
		if got := ARPAToIPA(in); got != want {
			t.Errorf("ARPAToIPA(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConvertARPA(t *testing.T) {
	got := ConvertARPA([]string{"K", "AE1", "T"})
	want := []string{"k", "æ", "t"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ConvertARPA = %v, want %v", got, want)
	}
}

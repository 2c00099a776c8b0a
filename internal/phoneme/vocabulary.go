package phoneme

import (
	"errors"
	"fmt"
)

// Vocabulary is the fixed ordered symbol table shared by the acoustic
// model, the decoder and the extractor. Indices are stable for the
// lifetime of a decode and the table is read-only after construction,
// so it is safe to share across concurrent decodes.
type Vocabulary struct {
	symbols []string
	index   map[string]int
	blank   int
}

// NewVocabulary builds a vocabulary from an ordered symbol list and the
// designated blank index.
func NewVocabulary(symbols []string, blank int) (*Vocabulary, error) {
	if len(symbols) == 0 {
		return nil, errors.New("vocabulary must not be empty")
	}
	if blank < 0 || blank >= len(symbols) {
		return nil, fmt.Errorf("blank index %d out of range [0,%d)", blank, len(symbols))
	}
	idx := make(map[string]int, len(symbols))
	for i, s := range symbols {
		if s == "" {
			return nil, fmt.Errorf("vocabulary symbol %d is empty", i)
		}
		if _, dup := idx[s]; dup {
			return nil, fmt.Errorf("duplicate vocabulary symbol %q", s)
		}
		idx[s] = i
	}
	return &Vocabulary{
		symbols: append([]string(nil), symbols...),
		index:   idx,
		blank:   blank,
	}, nil
}

// Size returns the number of symbols V.
func (v *Vocabulary) Size() int { return len(v.symbols) }

// Blank returns the blank symbol index.
func (v *Vocabulary) Blank() int { return v.blank }

// Symbol returns the symbol at index i.
func (v *Vocabulary) Symbol(i int) string {
	if i < 0 || i >= len(v.symbols) {
		return ""
	}
	return v.symbols[i]
}

// Index returns the index of a symbol and whether it is present.
func (v *Vocabulary) Index(symbol string) (int, bool) {
	i, ok := v.index[symbol]
	return i, ok
}

// Symbols returns a copy of the ordered symbol list.
func (v *Vocabulary) Symbols() []string {
	return append([]string(nil), v.symbols...)
}

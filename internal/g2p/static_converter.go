package g2p

import (
	"context"
	"fmt"
	"strings"
)

// staticDict is a small built-in ARPAbet lexicon for development and
// tests, so the runtime works without an external G2P process.
var staticDict = map[string][]string{
	"a":     {"AH0"},
	"cat":   {"K", "AE1", "T"},
	"dog":   {"D", "AO1", "G"},
	"good":  {"G", "UH1", "D"},
	"hello": {"HH", "AH0", "L", "OW1"},
	"how":   {"HH", "AW1"},
	"is":    {"IH1", "Z"},
	"kit":   {"K", "IH1", "T"},
	"said":  {"S", "EH1", "D"},
	"say":   {"S", "EY1"},
	"the":   {"DH", "AH0"},
	"this":  {"DH", "IH1", "S"},
	"water": {"W", "AO1", "T", "ER0"},
	"word":  {"W", "ER1", "D"},
	"world": {"W", "ER1", "L", "D"},
	"you":   {"Y", "UW1"},
}

type staticConverter struct {
	dict map[string][]string
}

// NewStaticConverter returns a dictionary-backed converter. Extra
// entries extend (and may override) the built-in lexicon.
func NewStaticConverter(extra map[string][]string) Converter {
	dict := make(map[string][]string, len(staticDict)+len(extra))
	for w, p := range staticDict {
		dict[w] = p
	}
	for w, p := range extra {
		dict[strings.ToLower(w)] = p
	}
	return &staticConverter{dict: dict}
}

func (c *staticConverter) Convert(_ context.Context, text string) ([]string, error) {
	var out []string
	for _, word := range strings.Fields(text) {
		word = strings.ToLower(strings.Trim(word, ".,!?;:'\""))
		if word == "" {
			continue
		}
		phones, ok := c.dict[word]
		if !ok {
			return nil, fmt.Errorf("word %q not in static lexicon", word)
		}
		out = append(out, phones...)
	}
	return out, nil
}

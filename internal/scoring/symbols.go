package scoring

import (
	"github.com/phonalabs/phona-core/internal/align"
	"github.com/phonalabs/phona-core/internal/ctc"
	"github.com/phonalabs/phona-core/internal/phoneme"
)

// SymbolsFromSegments normalizes recognized segments into atomic
// hypothesis symbols. A segment whose label splits into several atomic
// phonemes fans its confidence and timing out to each of them.
func SymbolsFromSegments(segments []ctc.Segment) []align.Symbol {
	var out []align.Symbol
	for _, seg := range segments {
		for _, atom := range phoneme.Normalize([]string{seg.Phoneme}) {
			out = append(out, align.Symbol{
				Value:      atom,
				Confidence: seg.Confidence,
				StartMS:    seg.StartMS,
				EndMS:      seg.EndMS,
				HasTiming:  true,
			})
		}
	}
	return out
}

package phoneme

import "strings"

// Stress, length and separator marks carry no segmental identity and
// are removed before comparison. Includes ARPAbet stress digits so the
// normalizer accepts raw G2P output too.
var strippedMarks = map[rune]bool{
	'ˈ': true, 'ˌ': true, // IPA primary/secondary stress
	'ː': true, 'ˑ': true, // length
	'.': true, ' ': true, '\t': true,
	'‿': true, '|': true, '‖': true,
	'\'': true, ',': true, '-': true,
	'0': true, '1': true, '2': true,
}

// Some sounds have more than one Unicode rendering depending on which
// tool produced them; both sides of a comparison must land on the same
// glyph. LATIN SMALL LETTER SCRIPT G (U+0261) and plain g (U+0067) are
// the common offenders.
var glyphVariants = map[rune]string{
	'ɡ': "g",  // U+0261 -> U+0067
	'ɫ': "l",  // velarized l
	'ɚ': "ɝ",  // rhotacized schwa variants
	'ʤ': "dʒ", // deprecated affricate ligatures decompose
	'ʧ': "tʃ",
	'ʦ': "ts",
}

// Modifier letters (aspiration, labialization...) that recognizers emit
// inconsistently; removed like stress marks.
var strippedModifiers = map[rune]bool{
	'ʰ': true, 'ʷ': true, 'ʲ': true, 'ˠ': true, 'ˤ': true, '̃': true, '̩': true,
}

// Normalize canonicalizes a raw phonetic token sequence into atomic
// comparison symbols. All tokens are concatenated, stress/length and
// separator marks are stripped, known glyph variants are folded to one
// representative, and the result splits into single runes. Splitting
// deliberately decomposes multi-character units (diphthongs,
// affricates) so the G2P path and the recognition path stay comparable
// regardless of how each groups them.
//
// Normalize is total and idempotent: applying it to its own output
// returns the same sequence.
func Normalize(tokens []string) []string {
	var joined strings.Builder
	for _, tok := range tokens {
		joined.WriteString(tok)
	}

	out := make([]string, 0, joined.Len())
	for _, r := range joined.String() {
		if strippedMarks[r] || strippedModifiers[r] {
			continue
		}
		if canon, ok := glyphVariants[r]; ok {
			for _, cr := range canon {
				out = append(out, string(cr))
			}
			continue
		}
		out = append(out, string(r))
	}
	return out
}

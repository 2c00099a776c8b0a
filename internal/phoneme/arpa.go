package phoneme

import "strings"

// arpaToIPA maps CMU/ARPAbet symbols (used by most English G2P tools)
// to their IPA equivalents.
var arpaToIPA = map[string]string{
	// Vowels
	"AA": "ɑ",
	"AE": "æ",
	"AH": "ʌ",
	"AO": "ɔ",
	"AW": "aʊ",
	"AY": "aɪ",
	"EH": "ɛ",
	"ER": "ɝ",
	"EY": "eɪ",
	"IH": "ɪ",
	"IY": "i",
	"OW": "oʊ",
	"OY": "ɔɪ",
	"UH": "ʊ",
	"UW": "u",
	// Consonants
	"B":  "b",
	"CH": "tʃ",
	"D":  "d",
	"DH": "ð",
	"F":  "f",
	"G":  "g",
	"HH": "h",
	"JH": "dʒ",
	"K":  "k",
	"L":  "l",
	"M":  "m",
	"N":  "n",
	"NG": "ŋ",
	"P":  "p",
	"R":  "ɹ",
	"S":  "s",
	"SH": "ʃ",
	"T":  "t",
	"TH": "θ",
	"V":  "v",
	"W":  "w",
	"Y":  "j",
	"Z":  "z",
	"ZH": "ʒ",
}

// ARPAToIPA converts one ARPAbet symbol to IPA, stripping trailing
// stress digits ("AH0" -> "ʌ"). Unknown symbols pass through unchanged.
func ARPAToIPA(symbol string) string {
	base := strings.TrimSpace(symbol)
	base = strings.TrimRight(base, "012")
	if ipa, ok := arpaToIPA[base]; ok {
		return ipa
	}
	return symbol
}

// ConvertARPA converts an ARPAbet phoneme sequence to IPA.
func ConvertARPA(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, ARPAToIPA(s))
	}
	return out
}

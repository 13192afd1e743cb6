// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package tokenizer

import "strings"

// stem reduces word to an approximate root for lang. This is a compact
// suffix-stripping stemmer, not a certified Snowball port; it exists so
// the BM25 document-frequency bookkeeping treats "jump"/"jumping"/"jumps"
// as one term. It does not undouble consonants: "running" stems to "runn".
func stem(word string, lang Language) string {
	if len(word) <= 3 {
		return word
	}
	switch lang {
	case English:
		return stemEnglish(word)
	case French, Italian, Spanish, Portuguese:
		return stemRomance(word)
	case German, Dutch, Swedish, Danish, Norwegian:
		return stemGermanic(word)
	default:
		// Russian and Finnish have morphology a suffix table can't
		// usefully approximate without a real Snowball port; left
		// unstemmed rather than mangled.
		return word
	}
}

var englishSuffixes = []string{"ational", "ization", "fulness", "iveness",
	"ousness", "ingly", "edly", "ings", "ied", "ies", "ing", "ed", "ly", "es", "s"}

func stemEnglish(word string) string {
	for _, suf := range englishSuffixes {
		if strings.HasSuffix(word, suf) && len(word)-len(suf) >= 3 {
			return word[:len(word)-len(suf)]
		}
	}
	return word
}

var romanceSuffixes = []string{"amente", "mente", "ación", "azione", "ezza",
	"issimo", "issima", "ando", "endo", "ando", "are", "ere", "ire", "os", "as", "es", "a", "o", "e"}

func stemRomance(word string) string {
	for _, suf := range romanceSuffixes {
		if strings.HasSuffix(word, suf) && len(word)-len(suf) >= 3 {
			return word[:len(word)-len(suf)]
		}
	}
	return word
}

var germanicSuffixes = []string{"ungen", "heit", "keit", "lich", "isch", "ern", "en", "er", "es", "e", "t"}

func stemGermanic(word string) string {
	for _, suf := range germanicSuffixes {
		if strings.HasSuffix(word, suf) && len(word)-len(suf) >= 3 {
			return word[:len(word)-len(suf)]
		}
	}
	return word
}

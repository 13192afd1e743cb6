// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package tokenizer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrLanguageNotSupported is returned by New when Config.Language is not
// one of the closed set of 12 languages.
type ErrLanguageNotSupported struct{ Language Language }

func (e *ErrLanguageNotSupported) Error() string {
	return fmt.Sprintf("LANGUAGE_NOT_SUPPORTED: %q", e.Language)
}

// StopWords configures which stop-word behavior tokenize() applies:
//   - nil: use the language's built-in defaults
//   - a non-nil slice: use exactly these words (possibly empty)
//   - Disabled: turn stop-word filtering off entirely
type StopWords struct {
	Disabled bool
	Custom   []string
}

// Config configures a Tokenizer instance.
type Config struct {
	Language        Language
	StopWords       *StopWords // nil means "enabled, language defaults"
	Stemming        bool
	AllowDuplicates bool
}

// Tokenizer normalizes, splits, stop-word-filters, stems, and dedups
// text for one configured language.
type Tokenizer struct {
	cfg       Config
	stopWords map[string]bool
}

// New constructs a Tokenizer. It fails with ErrLanguageNotSupported if
// cfg.Language is not in the closed set of 12 supported languages.
func New(cfg Config) (*Tokenizer, error) {
	if cfg.Language == "" {
		cfg.Language = English
	}
	if !IsSupported(cfg.Language) {
		return nil, &ErrLanguageNotSupported{Language: cfg.Language}
	}

	t := &Tokenizer{cfg: cfg}
	switch {
	case cfg.StopWords != nil && cfg.StopWords.Disabled:
		t.stopWords = nil
	case cfg.StopWords != nil && cfg.StopWords.Custom != nil:
		set := make(map[string]bool, len(cfg.StopWords.Custom))
		for _, w := range cfg.StopWords.Custom {
			set[strings.ToLower(w)] = true
		}
		t.stopWords = set
	default:
		t.stopWords = StopWordSet(cfg.Language)
	}
	return t, nil
}

// Language returns the tokenizer's configured language.
func (t *Tokenizer) Language() Language { return t.cfg.Language }

var wordSplitter = regexp.MustCompile(`[^\p{L}\p{N}]+`)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// stripDiacritics removes combining marks left over after Unicode NFD
// decomposition, e.g. "café" -> "cafe", "São" -> "Sao".
func stripDiacritics(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		return s
	}
	return out
}

// Tokenize runs the full pipeline on text: lowercase, strip diacritics,
// split on non-word runs, drop stop words, stem, dedup (unless
// AllowDuplicates).
func (t *Tokenizer) Tokenize(text string, property string) []string {
	lowered := strings.ToLower(text)
	normalized := stripDiacritics(lowered)
	raw := wordSplitter.Split(normalized, -1)

	seen := make(map[string]bool)
	out := make([]string, 0, len(raw))
	for _, tok := range raw {
		if tok == "" {
			continue
		}
		if t.stopWords != nil && t.stopWords[tok] {
			continue
		}
		if t.cfg.Stemming {
			tok = stem(tok, t.cfg.Language)
		}
		if !t.cfg.AllowDuplicates {
			if seen[tok] {
				continue
			}
			seen[tok] = true
		}
		out = append(out, tok)
	}
	return out
}

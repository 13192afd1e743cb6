// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package tokenizer

import (
	"reflect"
	"testing"
)

func TestNewRejectsUnsupportedLanguage(t *testing.T) {
	_, err := New(Config{Language: Language("klingon")})
	if err == nil {
		t.Fatal("expected ErrLanguageNotSupported")
	}
	var target *ErrLanguageNotSupported
	if !asErrLanguageNotSupported(err, &target) {
		t.Fatalf("expected *ErrLanguageNotSupported, got %T", err)
	}
}

func asErrLanguageNotSupported(err error, target **ErrLanguageNotSupported) bool {
	e, ok := err.(*ErrLanguageNotSupported)
	if ok {
		*target = e
	}
	return ok
}

func TestNewDefaultsToEnglish(t *testing.T) {
	tok, err := New(Config{})
	if err != nil {
		t.Fatal(err)
	}
	if tok.Language() != English {
		t.Fatalf("expected default language English, got %q", tok.Language())
	}
}

func TestTokenizeLowercasesSplitsAndDropsStopWords(t *testing.T) {
	tok, err := New(Config{Language: English})
	if err != nil {
		t.Fatal(err)
	}
	got := tok.Tokenize("The Quick Brown Fox jumps over the lazy dog", "body")
	want := []string{"quick", "brown", "fox", "jumps", "lazy", "dog"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTokenizeStripsDiacritics(t *testing.T) {
	tok, err := New(Config{Language: French, StopWords: &StopWords{Disabled: true}})
	if err != nil {
		t.Fatal(err)
	}
	got := tok.Tokenize("café à Paris", "body")
	want := []string{"cafe", "a", "paris"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTokenizeDedupsUnlessAllowDuplicates(t *testing.T) {
	tok, err := New(Config{Language: English, StopWords: &StopWords{Disabled: true}})
	if err != nil {
		t.Fatal(err)
	}
	got := tok.Tokenize("run run run", "body")
	if !reflect.DeepEqual(got, []string{"run"}) {
		t.Fatalf("expected dedup to [run], got %v", got)
	}

	tokDup, err := New(Config{Language: English, StopWords: &StopWords{Disabled: true}, AllowDuplicates: true})
	if err != nil {
		t.Fatal(err)
	}
	gotDup := tokDup.Tokenize("run run run", "body")
	if !reflect.DeepEqual(gotDup, []string{"run", "run", "run"}) {
		t.Fatalf("expected no dedup, got %v", gotDup)
	}
}

func TestTokenizeStemming(t *testing.T) {
	tok, err := New(Config{Language: English, StopWords: &StopWords{Disabled: true}, Stemming: true})
	if err != nil {
		t.Fatal(err)
	}
	got := tok.Tokenize("running runs runner", "body")
	want := []string{"runn", "run", "runner"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTokenizeCustomStopWords(t *testing.T) {
	tok, err := New(Config{Language: English, StopWords: &StopWords{Custom: []string{"brown", "lazy"}}})
	if err != nil {
		t.Fatal(err)
	}
	got := tok.Tokenize("the brown fox and the lazy dog", "body")
	want := []string{"the", "fox", "and", "dog"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestStopWordSetCoversAllLanguages(t *testing.T) {
	for lang := range supportedLanguages {
		if len(StopWordSet(lang)) == 0 {
			t.Errorf("language %q has no stop words configured", lang)
		}
	}
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package bm25 holds the per-field corpus statistics and scoring
// formula: average field length, per-document field length, per-token
// document frequency, and per-document per-token normalized term
// frequency.
package bm25

import "math"

// Params are the caller-tunable BM25 coefficients. Zero value is not a
// usable Params; use DefaultParams.
type Params struct {
	K1 float64
	B  float64
	D  float64 // BM25+ lower-bound term; 0 disables the BM25+ correction
}

// DefaultParams carries the conventional BM25 coefficients.
var DefaultParams = Params{K1: 1.2, B: 0.75}

// Stats tracks the BM25 bookkeeping for one searchable string property.
// Construct it with NewStats; the zero value has nil maps.
type Stats struct {
	docsCount        int
	avgFieldLength   float64
	fieldLengths     map[int]int
	tokenOccurrences map[string]int
	frequencies      map[int]map[string]float64
}

// NewStats returns an empty statistics tracker for one property.
func NewStats() *Stats {
	return &Stats{
		fieldLengths:     make(map[int]int),
		tokenOccurrences: make(map[string]int),
		frequencies:      make(map[int]map[string]float64),
	}
}

// DocsCount returns the number of documents currently indexed for this
// property.
func (s *Stats) DocsCount() int { return s.docsCount }

// AvgFieldLength returns the current running mean token count.
func (s *Stats) AvgFieldLength() float64 { return s.avgFieldLength }

// IndexDocument records one document's tokenized field: incremental
// mean update, field length, per-token normalized frequency, and
// document-frequency increment. occurrences maps each distinct token
// to how many times it appeared in this document's field; totalTokens is
// the field's total token count (including duplicates).
func (s *Stats) IndexDocument(id int, occurrences map[string]int, totalTokens int) {
	s.docsCount++
	s.avgFieldLength = (s.avgFieldLength*float64(s.docsCount-1) + float64(totalTokens)) / float64(s.docsCount)
	s.fieldLengths[id] = totalTokens

	freqs := make(map[string]float64, len(occurrences))
	for term, count := range occurrences {
		freqs[term] = float64(count) / float64(totalTokens)
		s.tokenOccurrences[term]++
	}
	s.frequencies[id] = freqs
}

// RemoveDocument reverses IndexDocument for id. terms must be the same
// set of distinct tokens id was indexed with.
func (s *Stats) RemoveDocument(id int, terms []string) {
	length, ok := s.fieldLengths[id]
	if !ok {
		return
	}
	if s.docsCount == 1 {
		s.avgFieldLength = 0
	} else {
		s.avgFieldLength = (s.avgFieldLength*float64(s.docsCount) - float64(length)) / float64(s.docsCount-1)
	}
	s.docsCount--
	delete(s.fieldLengths, id)
	delete(s.frequencies, id)
	for _, term := range terms {
		if s.tokenOccurrences[term] <= 1 {
			delete(s.tokenOccurrences, term)
			continue
		}
		s.tokenOccurrences[term]--
	}
}

// TermsOf returns the distinct terms id was last indexed with for this
// property, suitable for passing to RemoveDocument.
func (s *Stats) TermsOf(id int) []string {
	freqs, ok := s.frequencies[id]
	if !ok {
		return nil
	}
	terms := make([]string, 0, len(freqs))
	for t := range freqs {
		terms = append(terms, t)
	}
	return terms
}

// DocumentFrequency returns tokenOccurrences[term]: the number of
// documents this property's index has seen term in.
func (s *Stats) DocumentFrequency(term string) int {
	return s.tokenOccurrences[term]
}

// Score computes the BM25 (or BM25+, when params.D != 0) relevance score
// of id for term. Returns 0 if id was never indexed with term.
func (s *Stats) Score(id int, term string, params Params) float64 {
	freqs, ok := s.frequencies[id]
	if !ok {
		return 0
	}
	tf, ok := freqs[term]
	if !ok {
		return 0
	}

	df := s.tokenOccurrences[term]
	idf := IDF(s.docsCount, df)

	fieldLength := float64(s.fieldLengths[id])
	avg := s.avgFieldLength
	if avg == 0 {
		avg = 1
	}

	numerator := tf * (params.K1 + 1)
	denominator := tf + params.K1*(1-params.B+params.B*fieldLength/avg)
	score := idf * (numerator/denominator + params.D)
	return score
}

// Export returns copies of the serializable statistics. docsCount is not
// part of the persisted layout; it is recomputed on Restore as the number
// of field-length entries.
func (s *Stats) Export() (avgFieldLength float64, fieldLengths map[int]int, tokenOccurrences map[string]int, frequencies map[int]map[string]float64) {
	fieldLengths = make(map[int]int, len(s.fieldLengths))
	for id, l := range s.fieldLengths {
		fieldLengths[id] = l
	}
	tokenOccurrences = make(map[string]int, len(s.tokenOccurrences))
	for t, n := range s.tokenOccurrences {
		tokenOccurrences[t] = n
	}
	frequencies = make(map[int]map[string]float64, len(s.frequencies))
	for id, freqs := range s.frequencies {
		cp := make(map[string]float64, len(freqs))
		for t, f := range freqs {
			cp[t] = f
		}
		frequencies[id] = cp
	}
	return s.avgFieldLength, fieldLengths, tokenOccurrences, frequencies
}

// Restore replaces the statistics with previously Exported state.
func (s *Stats) Restore(avgFieldLength float64, fieldLengths map[int]int, tokenOccurrences map[string]int, frequencies map[int]map[string]float64) {
	if fieldLengths == nil {
		fieldLengths = make(map[int]int)
	}
	if tokenOccurrences == nil {
		tokenOccurrences = make(map[string]int)
	}
	if frequencies == nil {
		frequencies = make(map[int]map[string]float64)
	}
	s.avgFieldLength = avgFieldLength
	s.fieldLengths = fieldLengths
	s.tokenOccurrences = tokenOccurrences
	s.frequencies = frequencies
	s.docsCount = len(fieldLengths)
}

// IDF computes the inverse document frequency term shared by every call
// to Score for a given (docsCount, df) pair.
func IDF(docsCount, df int) float64 {
	return math.Log(1 + (float64(docsCount)-float64(df)+0.5)/(float64(df)+0.5))
}

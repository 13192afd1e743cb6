// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package index is the engine's index aggregate: it maps every
// searchable schema path to its owning structure (radix tree for
// strings, AVL tree for numbers, boolean buckets), keeps the BM25
// bookkeeping for string properties, and implements insert/remove,
// term search, and where-clause filtering on top of those structures.
package index

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aleutian-labs/oramago/internal/avl"
	"github.com/aleutian-labs/oramago/internal/bm25"
	"github.com/aleutian-labs/oramago/internal/boolindex"
	"github.com/aleutian-labs/oramago/internal/radix"
	"github.com/aleutian-labs/oramago/internal/schema"
	"github.com/aleutian-labs/oramago/internal/tokenizer"
)

// Index owns one posting structure per searchable property path.
type Index struct {
	flattened  *schema.Flattened
	radixTrees map[string]*radix.Tree
	avlTrees   map[string]*avl.Tree
	boolIdx    map[string]*boolindex.Index
	stats      map[string]*bm25.Stats
	tok        *tokenizer.Tokenizer
}

// New builds one structure per path in flattened. Array-of-object and
// unknown scalar shapes never reach it: schema.Flatten rejects them with
// INVALID_SCHEMA_TYPE. tokCfg configures the tokenizer used to index
// string fields; its AllowDuplicates is forced to true internally so
// per-document term frequency can be computed. Tokenizer returns this
// same instance and the façade tokenizes queries with it, so the
// caller's AllowDuplicates setting is not applied there either and a
// repeated query term is looked up, and scored, once per occurrence.
func New(flattened *schema.Flattened, tokCfg tokenizer.Config) (*Index, error) {
	indexingCfg := tokCfg
	indexingCfg.AllowDuplicates = true
	tok, err := tokenizer.New(indexingCfg)
	if err != nil {
		return nil, err
	}
	return NewWithTokenizer(flattened, tok), nil
}

// NewWithTokenizer is New with a caller-supplied tokenizer instance.
// The instance should allow duplicate tokens so per-document term
// frequency stays exact.
func NewWithTokenizer(flattened *schema.Flattened, tok *tokenizer.Tokenizer) *Index {
	idx := &Index{
		flattened:  flattened,
		radixTrees: make(map[string]*radix.Tree),
		avlTrees:   make(map[string]*avl.Tree),
		boolIdx:    make(map[string]*boolindex.Index),
		stats:      make(map[string]*bm25.Stats),
		tok:        tok,
	}
	for _, p := range flattened.Paths {
		switch flattened.Types[p].Scalar() {
		case schema.String:
			idx.radixTrees[p] = radix.New()
			idx.stats[p] = bm25.NewStats()
		case schema.Number:
			idx.avlTrees[p] = avl.New()
		case schema.Boolean:
			idx.boolIdx[p] = boolindex.New()
		}
	}
	return idx
}

// Tokenizer exposes the indexing tokenizer so callers (the façade) can
// tokenize query strings with identical normalization.
func (idx *Index) Tokenizer() *tokenizer.Tokenizer { return idx.tok }

// InsertProperty dispatches value (already resolved from the document by
// the caller) to prop's owning structure. Array types iterate their
// elements, each dispatched to the scalar path.
func (idx *Index) InsertProperty(prop string, id int, value any) error {
	t, ok := idx.flattened.ResolvePath(prop)
	if !ok {
		return fmt.Errorf("unknown property %q", prop)
	}
	switch t {
	case schema.String:
		s, _ := value.(string)
		idx.indexString(prop, id, s)
	case schema.StringArray:
		arr, _ := value.([]string)
		idx.indexString(prop, id, strings.Join(arr, " "))
	case schema.Number:
		v, _ := value.(float64)
		idx.avlTrees[prop].Insert(v, id)
	case schema.NumberArray:
		arr, _ := value.([]float64)
		for _, v := range arr {
			idx.avlTrees[prop].Insert(v, id)
		}
	case schema.Boolean:
		b, _ := value.(bool)
		idx.boolIdx[prop].Insert(b, id)
	case schema.BoolArray:
		arr, _ := value.([]bool)
		for _, b := range arr {
			idx.boolIdx[prop].Insert(b, id)
		}
	}
	return nil
}

func (idx *Index) indexString(prop string, id int, text string) {
	tokens := idx.tok.Tokenize(text, prop)
	occurrences := make(map[string]int, len(tokens))
	for _, tk := range tokens {
		idx.radixTrees[prop].Insert(tk, id)
		occurrences[tk]++
	}
	idx.stats[prop].IndexDocument(id, occurrences, len(tokens))
}

// RemoveProperty reverses InsertProperty for id. value must be the same
// resolved value id was originally indexed with, so array/numeric/bool
// removal can find the right keys; string/string[] removal instead
// recovers id's terms from the BM25 bookkeeping, so value is ignored for
// those types.
func (idx *Index) RemoveProperty(prop string, id int, value any) {
	t, ok := idx.flattened.ResolvePath(prop)
	if !ok {
		return
	}
	switch t {
	case schema.String, schema.StringArray:
		stats := idx.stats[prop]
		terms := stats.TermsOf(id)
		for _, term := range terms {
			idx.radixTrees[prop].RemoveDocumentByWord(term, id)
		}
		stats.RemoveDocument(id, terms)
	case schema.Number:
		v, _ := value.(float64)
		idx.avlTrees[prop].Remove(v, id)
	case schema.NumberArray:
		arr, _ := value.([]float64)
		for _, v := range arr {
			idx.avlTrees[prop].Remove(v, id)
		}
	case schema.Boolean:
		b, _ := value.(bool)
		idx.boolIdx[prop].Remove(b, id)
	case schema.BoolArray:
		arr, _ := value.([]bool)
		for _, b := range arr {
			idx.boolIdx[prop].Remove(b, id)
		}
	}
}

// ScoredID pairs an internal document id with its accumulated BM25 score
// for one property search.
type ScoredID struct {
	ID    int
	Score float64
}

// Search resolves term against prop's radix tree and scores every match
// with BM25. Scores from multiple matched terms (prefix/fuzzy
// expansion) accumulate for the same id.
func (idx *Index) Search(prop, term string, exact bool, tolerance int, params bm25.Params) ([]ScoredID, error) {
	tree, ok := idx.radixTrees[prop]
	if !ok {
		return nil, fmt.Errorf("property %q is not a string field", prop)
	}
	matches := tree.Find(radix.FindParams{Term: term, Exact: exact, Tolerance: tolerance})

	scores := make(map[int]float64)
	for _, m := range matches {
		for _, id := range m.IDs {
			scores[id] += idx.stats[prop].Score(id, m.Term, params)
		}
	}

	out := make([]ScoredID, 0, len(scores))
	for id, score := range scores {
		out = append(out, ScoredID{ID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// FilterOp is a comparison operator a Filter applies to one property.
type FilterOp string

const (
	OpEq      FilterOp = "eq"
	OpGt      FilterOp = "gt"
	OpGte     FilterOp = "gte"
	OpLt      FilterOp = "lt"
	OpLte     FilterOp = "lte"
	OpBetween FilterOp = "between"
)

// Filter is one property restriction in a where-clause.
type Filter struct {
	Property string
	Op       FilterOp
	Value    any // float64 | bool | string | []string | [2]float64 (OpBetween)
}

// ErrUnknownFilterProperty is returned when a Filter names a property the
// schema doesn't know.
type ErrUnknownFilterProperty struct{ Property string }

func (e ErrUnknownFilterProperty) Error() string {
	return "UNKNOWN_FILTER_PROPERTY: " + e.Property
}

// ErrInvalidFilterOperation is returned when Op doesn't apply to
// Property's type (e.g. OpBetween on a boolean).
type ErrInvalidFilterOperation struct {
	Property string
	Op       FilterOp
}

func (e ErrInvalidFilterOperation) Error() string {
	return fmt.Sprintf("INVALID_FILTER_OPERATION: %s on %s", e.Op, e.Property)
}

// SearchByWhereClause resolves every filter to a candidate id set and
// intersects them (AND semantics). An empty filters list returns
// restricted=false, meaning "no restriction" — the caller should treat
// that as match-all rather than no-match.
func (idx *Index) SearchByWhereClause(filters []Filter) (ids []int, restricted bool, err error) {
	if len(filters) == 0 {
		return nil, false, nil
	}

	var result []int
	for i, f := range filters {
		candidates, err := idx.candidatesForFilter(f)
		if err != nil {
			return nil, false, err
		}
		// Range traversals emit ids in key order, not id order, and the
		// merge below needs both sides ascending by id.
		sorted := append([]int{}, candidates...)
		sort.Ints(sorted)
		if i == 0 {
			result = sorted
			continue
		}
		result = intersectSorted(result, sorted)
	}
	return result, true, nil
}

func (idx *Index) candidatesForFilter(f Filter) ([]int, error) {
	t, ok := idx.flattened.ResolvePath(f.Property)
	if !ok {
		return nil, ErrUnknownFilterProperty{Property: f.Property}
	}

	switch t.Scalar() {
	case schema.Number:
		tree := idx.avlTrees[f.Property]
		switch f.Op {
		case OpEq:
			v, _ := f.Value.(float64)
			return tree.Find(v), nil
		case OpGt:
			v, _ := f.Value.(float64)
			return tree.GreaterThan(v, false), nil
		case OpGte:
			v, _ := f.Value.(float64)
			return tree.GreaterThan(v, true), nil
		case OpLt:
			v, _ := f.Value.(float64)
			return tree.LessThan(v, false), nil
		case OpLte:
			v, _ := f.Value.(float64)
			return tree.LessThan(v, true), nil
		case OpBetween:
			bounds, _ := f.Value.([2]float64)
			return tree.RangeSearch(bounds[0], bounds[1]), nil
		default:
			return nil, ErrInvalidFilterOperation{Property: f.Property, Op: f.Op}
		}
	case schema.Boolean:
		if f.Op != OpEq {
			return nil, ErrInvalidFilterOperation{Property: f.Property, Op: f.Op}
		}
		b, _ := f.Value.(bool)
		return idx.boolIdx[f.Property].Find(b), nil
	case schema.String:
		if f.Op != OpEq {
			return nil, ErrInvalidFilterOperation{Property: f.Property, Op: f.Op}
		}
		values := stringValuesOf(f.Value)
		tree := idx.radixTrees[f.Property]
		var union []int
		for _, v := range values {
			// Filter values go through the same tokenizer as indexed
			// text, so "Mechanical" matches the stored term "mechanical".
			for _, term := range idx.tok.Tokenize(v, f.Property) {
				matches := tree.Find(radix.FindParams{Term: term, Exact: true})
				for _, m := range matches {
					union = unionSorted(union, m.IDs)
				}
			}
		}
		return union, nil
	default:
		return nil, ErrInvalidFilterOperation{Property: f.Property, Op: f.Op}
	}
}

// FacetValue is one distinct value of a faceted property with the number
// of candidate ids holding it.
type FacetValue struct {
	Value any
	Count int
}

// Facets computes, for prop, a count of candidates per distinct value
// the property holds. When restricted
// is false every document holding a value counts; otherwise only ids also
// present in candidates count. maxValues caps the number of distinct
// string values returned (0 means unbounded); numeric and boolean facets
// are never large enough to need the cap.
func (idx *Index) Facets(prop string, candidates []int, restricted bool, maxValues int) ([]FacetValue, error) {
	t, ok := idx.flattened.ResolvePath(prop)
	if !ok {
		return nil, ErrUnknownFilterProperty{Property: prop}
	}

	var sortedCandidates []int
	if restricted {
		sortedCandidates = append([]int{}, candidates...)
		sort.Ints(sortedCandidates)
	}
	count := func(ids []int) int {
		if !restricted {
			return len(ids)
		}
		sortedIDs := append([]int{}, ids...)
		sort.Ints(sortedIDs)
		return len(intersectSorted(sortedIDs, sortedCandidates))
	}

	var out []FacetValue
	switch t.Scalar() {
	case schema.String:
		for _, m := range idx.radixTrees[prop].AllTerms() {
			if c := count(m.IDs); c > 0 {
				out = append(out, FacetValue{Value: m.Term, Count: c})
				if maxValues > 0 && len(out) >= maxValues {
					break
				}
			}
		}
	case schema.Number:
		for _, kv := range idx.avlTrees[prop].All() {
			if c := count(kv.IDs); c > 0 {
				out = append(out, FacetValue{Value: kv.Key, Count: c})
			}
		}
	case schema.Boolean:
		if c := count(idx.boolIdx[prop].Find(true)); c > 0 {
			out = append(out, FacetValue{Value: true, Count: c})
		}
		if c := count(idx.boolIdx[prop].Find(false)); c > 0 {
			out = append(out, FacetValue{Value: false, Count: c})
		}
	default:
		return nil, ErrInvalidFilterOperation{Property: prop}
	}
	return out, nil
}

func stringValuesOf(v any) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []string:
		return val
	default:
		return nil
	}
}

func intersectSorted(a, b []int) []int {
	var out []int
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}

func unionSorted(a, b []int) []int {
	var out []int
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		default:
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package search implements the query orchestrator: tokenize the query,
// union or intersect per-term hits across the requested properties,
// accumulate BM25 scores, filter by a where-clause, hand the survivors
// to the sorter (or score-sort them), and paginate.
package search

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/aleutian-labs/oramago/internal/bm25"
	"github.com/aleutian-labs/oramago/internal/index"
)

// Mode picks how per-term id sets combine across a multi-term query.
// Union is the default.
type Mode string

const (
	ModeOr  Mode = "or"
	ModeAnd Mode = "and"
)

// Params are the orchestrator's inputs, one level below the façade's
// caller-facing SearchParams.
type Params struct {
	Term       string
	Properties []string // nil/empty means "every searchable string property"
	Exact      bool
	Tolerance  int
	Mode       Mode
	Relevance  bm25.Params
	Boost      map[string]float64 // per-property score multipliers; absent means 1
	Where      []index.Filter
	Limit      int
	Offset     int
}

// Hit pairs an internal document id with its accumulated score.
type Hit struct {
	ID    int
	Score float64
}

// Result is the orchestrator's output before document materialization:
// the full (pre-pagination) match count, the page of scored hits, and
// the complete ordered id list (for facet counting, which runs over the
// whole match set rather than the returned page).
type Result struct {
	Count  int
	Hits   []Hit
	AllIDs []int
}

// Tokenizer is the subset of *tokenizer.Tokenizer the orchestrator
// needs, kept as an interface so callers can swap in a custom instance.
type Tokenizer interface {
	Tokenize(text, property string) []string
}

// Run executes the full query pipeline against idx, using tok to
// tokenize the query term and searchable for the default
// property set when params.Properties is empty. sortFn, when non-nil, is
// called to apply a caller-requested sortBy in place of the default
// descending-by-score order; it receives the post-filter id list (in
// descending-score order) and returns the final order.
func Run(idx *index.Index, tok Tokenizer, searchable []string, params Params, sortFn func(ids []int) ([]int, error)) (Result, error) {
	relevance := params.Relevance
	if relevance == (bm25.Params{}) {
		relevance = bm25.DefaultParams
	}

	properties := params.Properties
	if len(properties) == 0 {
		properties = searchable
	}
	sortedProperties := append([]string{}, properties...)
	sort.Strings(sortedProperties)

	scores := make(map[int]float64)
	var termSets []map[int]bool

	if params.Term != "" {
		terms := tok.Tokenize(params.Term, "")
		if len(terms) == 0 {
			terms = []string{params.Term}
		}
		for _, term := range terms {
			termHits, err := searchTermAcrossProperties(idx, term, sortedProperties, params, relevance, scores)
			if err != nil {
				return Result{}, err
			}
			termSets = append(termSets, termHits)
		}
	}

	var candidateIDs []int
	switch {
	case params.Term == "":
		for id := range scores {
			candidateIDs = append(candidateIDs, id)
		}
	case params.Mode == ModeAnd:
		candidateIDs = intersectAll(termSets)
	default:
		candidateIDs = unionAll(termSets)
	}

	filtered, restricted, err := idx.SearchByWhereClause(params.Where)
	if err != nil {
		return Result{}, err
	}
	if restricted {
		allowed := make(map[int]bool, len(filtered))
		for _, id := range filtered {
			allowed[id] = true
		}
		kept := candidateIDs[:0]
		for _, id := range candidateIDs {
			if allowed[id] {
				kept = append(kept, id)
			}
		}
		candidateIDs = kept

		if params.Term == "" {
			candidateIDs = append([]int{}, filtered...)
		}
	}

	sort.Slice(candidateIDs, func(i, j int) bool {
		si, sj := scores[candidateIDs[i]], scores[candidateIDs[j]]
		if si != sj {
			return si > sj
		}
		return candidateIDs[i] < candidateIDs[j]
	})

	ordered := candidateIDs
	if sortFn != nil {
		ordered, err = sortFn(candidateIDs)
		if err != nil {
			return Result{}, err
		}
	}

	count := len(ordered)
	offset := params.Offset
	if offset > count {
		offset = count
	}
	limit := params.Limit
	end := count
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	page := ordered[offset:end]

	hits := make([]Hit, 0, len(page))
	for _, id := range page {
		hits = append(hits, Hit{ID: id, Score: scores[id]})
	}
	return Result{Count: count, Hits: hits, AllIDs: ordered}, nil
}

// searchTermAcrossProperties looks term up in every property's structure,
// fanning the per-property lookups out across a worker pool bounded at
// GOMAXPROCS. Each lookup's matches are merged under a mutex as that
// lookup finishes. The returned hit set does not depend on completion
// order; a document's accumulated score is a floating-point sum taken in
// completion order, so when three or more properties contribute to it
// its low-order bits can differ between runs.
func searchTermAcrossProperties(idx *index.Index, term string, sortedProperties []string, params Params, relevance bm25.Params, scores map[int]float64) (map[int]bool, error) {
	termHits := make(map[int]bool)
	var mu sync.Mutex

	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(max(1, runtime.GOMAXPROCS(0)))

	for _, prop := range sortedProperties {
		prop := prop
		boost := 1.0
		if b, ok := params.Boost[prop]; ok && b > 0 {
			boost = b
		}
		g.Go(func() error {
			matched, err := idx.Search(prop, term, params.Exact, params.Tolerance, relevance)
			if err != nil {
				// Not every requested property is necessarily a string
				// field (e.g. the caller asked to search "every
				// property" and some are numeric); skip those rather
				// than failing the whole query.
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			for _, m := range matched {
				scores[m.ID] += m.Score * boost
				termHits[m.ID] = true
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return termHits, nil
}

func unionAll(sets []map[int]bool) []int {
	union := make(map[int]bool)
	for _, s := range sets {
		for id := range s {
			union[id] = true
		}
	}
	out := make([]int, 0, len(union))
	for id := range union {
		out = append(out, id)
	}
	return out
}

func intersectAll(sets []map[int]bool) []int {
	if len(sets) == 0 {
		return nil
	}
	out := make([]int, 0)
	for id := range sets[0] {
		in := true
		for _, s := range sets[1:] {
			if !s[id] {
				in = false
				break
			}
		}
		if in {
			out = append(out, id)
		}
	}
	return out
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package oramago

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aleutian-labs/oramago/internal/bm25"
	"github.com/aleutian-labs/oramago/internal/index"
	"github.com/aleutian-labs/oramago/internal/search"
	"github.com/aleutian-labs/oramago/internal/sorter"
	"github.com/aleutian-labs/oramago/internal/telemetry"
)

// SearchMode picks how a multi-term query's per-term id sets combine.
type SearchMode string

const (
	ModeOr  SearchMode = "or"
	ModeAnd SearchMode = "and"
)

// RelevanceParams are the caller-tunable BM25(+) coefficients. The zero
// value means "use the engine defaults".
type RelevanceParams struct {
	K1 float64
	B  float64
	D  float64
}

// SortByParams requests the sorter be used to order hits instead of the
// default descending-by-score order.
type SortByParams struct {
	Property string
	Order    sorter.Order
}

// FacetParams configures one requested facet; MaxValues bounds how many
// distinct string values are returned (0 means unbounded).
type FacetParams struct {
	MaxValues int
}

// FacetResult is one property's computed facet counts. Values are not
// ordered by count: strings come in lexicographic order, numbers in
// ascending order, and booleans as true then false.
type FacetResult struct {
	Property string
	Values   []index.FacetValue
}

// GroupByParams requests the final hit page be bucketed by a property's
// value in addition to being returned as a flat list.
type GroupByParams struct {
	Property string
}

// Group is one bucket of a GroupBy result.
type Group struct {
	Value any
	Hits  []Hit
}

// SearchParams are the caller-facing search arguments.
type SearchParams struct {
	Term       string
	Properties []string
	Tolerance  int
	Exact      bool
	Boost      map[string]float64
	Relevance  *RelevanceParams
	Limit      int
	Offset     int
	Where      map[string]any
	SortBy     *SortByParams
	Mode       SearchMode
	Facets     map[string]FacetParams
	GroupBy    *GroupByParams
}

// Hit is one materialized search result.
type Hit struct {
	ID       string
	Score    float64
	Document map[string]any
}

// SearchResult is Search's return value. Count is the total number of
// matches before pagination.
type SearchResult struct {
	Elapsed time.Duration
	Count   int
	Hits    []Hit
	Facets  map[string]FacetResult
	Groups  []Group
}

// Search tokenizes params.Term, scores and filters matching documents,
// optionally sorts and facets/groups them, paginates, and materializes
// the resulting page from the document store.
func (db *DB) Search(ctx context.Context, params SearchParams) (SearchResult, error) {
	// Sorting materializes the sorter's lazy order in place, so a search
	// with SortBy takes the exclusive lock.
	if params.SortBy != nil {
		db.mu.Lock()
		defer db.mu.Unlock()
	} else {
		db.mu.RLock()
		defer db.mu.RUnlock()
	}

	started := time.Now()
	ctx, span := telemetry.StartOperationSpan(ctx, "search", db.id)
	var err error
	defer func() { telemetry.RecordOperationResult(span, "search", started, err) }()

	filters, err := db.buildFilters(params.Where)
	if err != nil {
		return SearchResult{}, err
	}

	relevance := bm25.DefaultParams
	if params.Relevance != nil {
		relevance = bm25.Params{K1: params.Relevance.K1, B: params.Relevance.B, D: params.Relevance.D}
	}

	mode := search.ModeOr
	if params.Mode == ModeAnd {
		mode = search.ModeAnd
	}

	var sortFn func([]int) ([]int, error)
	if params.SortBy != nil {
		order := params.SortBy.Order
		if order == "" {
			order = sorter.Asc
		}
		sortFn = func(ids []int) ([]int, error) {
			out, sortErr := db.srt.SortBy(ids, params.SortBy.Property, order)
			if sortErr != nil {
				return nil, wrapSortError(sortErr, params.SortBy.Property)
			}
			return out, nil
		}
	}

	res, err := search.Run(db.idx, db.idx.Tokenizer(), db.flattened.StringPaths, search.Params{
		Term:       params.Term,
		Properties: params.Properties,
		Exact:      params.Exact,
		Tolerance:  params.Tolerance,
		Mode:       mode,
		Relevance:  relevance,
		Boost:      params.Boost,
		Where:      filters,
		Limit:      params.Limit,
		Offset:     params.Offset,
	}, sortFn)
	if err != nil {
		return SearchResult{}, translateIndexError(err)
	}

	out := SearchResult{Elapsed: time.Since(started), Count: res.Count}
	out.Hits = make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		external, ok := db.ids.External(h.ID)
		if !ok {
			continue
		}
		doc, _ := db.docs.Get(h.ID)
		out.Hits = append(out.Hits, Hit{ID: external, Score: h.Score, Document: doc})
	}

	if len(params.Facets) > 0 {
		// Facets count over the whole filtered match set, not the
		// returned page.
		candidateIDs := res.AllIDs
		restricted := true
		out.Facets = make(map[string]FacetResult, len(params.Facets))
		for prop, fp := range params.Facets {
			values, facetErr := db.idx.Facets(prop, candidateIDs, restricted, fp.MaxValues)
			if facetErr != nil {
				return SearchResult{}, translateIndexError(facetErr)
			}
			out.Facets[prop] = FacetResult{Property: prop, Values: values}
		}
	}

	if params.GroupBy != nil {
		out.Groups = groupHits(out.Hits, params.GroupBy.Property, db)
	}

	telemetry.RecordSearchHits(ctx, len(out.Hits))
	return out, nil
}

func groupHits(hits []Hit, prop string, db *DB) []Group {
	order := make([]any, 0)
	buckets := make(map[any][]Hit)
	for _, h := range hits {
		value, ok := resolveGroupValue(h.Document, prop, db)
		if !ok {
			continue
		}
		if _, seen := buckets[value]; !seen {
			order = append(order, value)
		}
		buckets[value] = append(buckets[value], h)
	}
	groups := make([]Group, 0, len(order))
	for _, v := range order {
		groups = append(groups, Group{Value: v, Hits: buckets[v]})
	}
	return groups
}

func resolveGroupValue(doc map[string]any, prop string, db *DB) (any, bool) {
	if _, ok := db.flattened.ResolvePath(prop); !ok {
		return nil, false
	}
	cur := any(doc)
	for _, part := range strings.Split(prop, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// buildFilters translates the caller-facing where-clause — a mapping
// from property path to boolean | string | string slice | comparison
// object — into the index package's typed Filter list, validating
// property existence and operator shape up front so filter errors fail
// the search with the right error code.
func (db *DB) buildFilters(where map[string]any) ([]index.Filter, error) {
	if len(where) == 0 {
		return nil, nil
	}
	// Walk properties in sorted order so filter evaluation (and which
	// invalid filter reports first) is deterministic across runs.
	props := make([]string, 0, len(where))
	for prop := range where {
		props = append(props, prop)
	}
	sort.Strings(props)

	filters := make([]index.Filter, 0, len(where))
	for _, prop := range props {
		raw := where[prop]
		if _, ok := db.flattened.ResolvePath(prop); !ok {
			return nil, NewError(CodeUnknownFilterProperty, prop)
		}

		switch val := raw.(type) {
		case bool:
			filters = append(filters, index.Filter{Property: prop, Op: index.OpEq, Value: val})
		case string:
			filters = append(filters, index.Filter{Property: prop, Op: index.OpEq, Value: val})
		case []string:
			filters = append(filters, index.Filter{Property: prop, Op: index.OpEq, Value: val})
		case []any:
			// JSON-decoded where-clauses carry string lists as []any.
			strs := make([]string, 0, len(val))
			for _, v := range val {
				s, ok := v.(string)
				if !ok {
					return nil, NewError(CodeInvalidFilterOperation, prop, raw)
				}
				strs = append(strs, s)
			}
			filters = append(filters, index.Filter{Property: prop, Op: index.OpEq, Value: strs})
		case map[string]any:
			f, err := buildOperatorFilter(prop, val)
			if err != nil {
				return nil, err
			}
			filters = append(filters, f)
		default:
			return nil, NewError(CodeInvalidFilterOperation, prop, raw)
		}
	}
	return filters, nil
}

var filterOps = map[string]index.FilterOp{
	"gt":      index.OpGt,
	"gte":     index.OpGte,
	"lt":      index.OpLt,
	"lte":     index.OpLte,
	"eq":      index.OpEq,
	"between": index.OpBetween,
}

func buildOperatorFilter(prop string, ops map[string]any) (index.Filter, error) {
	if len(ops) != 1 {
		return index.Filter{}, NewError(CodeInvalidFilterOperation, prop, ops)
	}
	for key, v := range ops {
		op, ok := filterOps[key]
		if !ok {
			return index.Filter{}, NewError(CodeInvalidFilterOperation, prop, key)
		}
		if op == index.OpBetween {
			bounds, err := toFloatPair(v)
			if err != nil {
				return index.Filter{}, NewError(CodeInvalidFilterOperation, prop, v)
			}
			return index.Filter{Property: prop, Op: op, Value: bounds}, nil
		}
		f, ok := toFloat(v)
		if !ok {
			return index.Filter{}, NewError(CodeInvalidFilterOperation, prop, v)
		}
		return index.Filter{Property: prop, Op: op, Value: f}, nil
	}
	panic("unreachable")
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func toFloatPair(v any) ([2]float64, error) {
	switch arr := v.(type) {
	case []float64:
		if len(arr) == 2 {
			return [2]float64{arr[0], arr[1]}, nil
		}
	case []any:
		if len(arr) == 2 {
			lo, ok1 := toFloat(arr[0])
			hi, ok2 := toFloat(arr[1])
			if ok1 && ok2 {
				return [2]float64{lo, hi}, nil
			}
		}
	}
	return [2]float64{}, fmt.Errorf("between requires a 2-element numeric array")
}

func wrapSortError(err error, prop string) error {
	switch err.(type) {
	case sorter.ErrSortDisabled:
		return NewError(CodeSortDisabled)
	case sorter.ErrUnknownField:
		return NewError(CodeUnableToSortOnUnknownField, prop)
	default:
		return err
	}
}

func translateIndexError(err error) error {
	switch e := err.(type) {
	case index.ErrUnknownFilterProperty:
		return NewError(CodeUnknownFilterProperty, e.Property)
	case index.ErrInvalidFilterOperation:
		return NewError(CodeInvalidFilterOperation, e.Property, e.Op)
	default:
		return err
	}
}

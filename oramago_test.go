// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package oramago

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleutian-labs/oramago/internal/schema"
	"github.com/aleutian-labs/oramago/internal/sorter"
	"github.com/aleutian-labs/oramago/internal/tokenizer"
)

func newTextDB(t *testing.T) *DB {
	t.Helper()
	db, err := Create(CreateParams{Schema: schema.Raw{"text": "string"}})
	require.NoError(t, err)
	return db
}

func insertTexts(t *testing.T, db *DB, texts ...string) []string {
	t.Helper()
	ids := make([]string, 0, len(texts))
	for _, text := range texts {
		id, err := db.Insert(context.Background(), map[string]any{"text": text})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestBasicRanking(t *testing.T) {
	db := newTextDB(t)
	ids := insertTexts(t, db, "hello world", "hello")

	res, err := db.Search(context.Background(), SearchParams{Term: "hello"})
	require.NoError(t, err)
	require.Equal(t, 2, res.Count)
	require.Len(t, res.Hits, 2)

	// The shorter document ranks first: smaller fieldLength/avgFieldLength
	// raises its BM25 score.
	assert.Equal(t, ids[1], res.Hits[0].ID)
	assert.Equal(t, ids[0], res.Hits[1].ID)
	assert.Greater(t, res.Hits[0].Score, res.Hits[1].Score)
}

func TestPrefixAndTolerance(t *testing.T) {
	db := newTextDB(t)
	ids := insertTexts(t, db, "orama", "oramatic", "oranges", "panama")

	res, err := db.Search(context.Background(), SearchParams{Term: "orama", Tolerance: 1})
	require.NoError(t, err)
	require.Equal(t, 2, res.Count)

	// "orama" (exact, distance 0) ranks ahead of "oramatic" (prefix
	// expansion). "oranges" is edit distance 4 and "panama" distance 3,
	// both outside tolerance 1.
	assert.Equal(t, []string{ids[0], ids[1]}, []string{res.Hits[0].ID, res.Hits[1].ID})

	wider, err := db.Search(context.Background(), SearchParams{Term: "oranfes", Tolerance: 1})
	require.NoError(t, err)
	require.Equal(t, 1, wider.Count)
	assert.Equal(t, ids[2], wider.Hits[0].ID)
}

func TestNumericRangeFilter(t *testing.T) {
	db, err := Create(CreateParams{Schema: schema.Raw{"price": "number"}})
	require.NoError(t, err)

	byPrice := make(map[float64]string)
	for _, price := range []float64{10, 20, 30, 40, 50} {
		id, err := db.Insert(context.Background(), map[string]any{"price": price})
		require.NoError(t, err)
		byPrice[price] = id
	}

	res, err := db.Search(context.Background(), SearchParams{
		Where: map[string]any{"price": map[string]any{"between": []any{20.0, 40.0}}},
	})
	require.NoError(t, err)
	require.Equal(t, 3, res.Count)

	want := map[string]bool{byPrice[20]: true, byPrice[30]: true, byPrice[40]: true}
	for _, h := range res.Hits {
		assert.True(t, want[h.ID], "unexpected hit %s", h.ID)
	}
}

func TestBooleanFilterWithSort(t *testing.T) {
	db, err := Create(CreateParams{Schema: schema.Raw{"inStock": "boolean", "price": "number"}})
	require.NoError(t, err)

	docs := []map[string]any{
		{"inStock": true, "price": 30.0},
		{"inStock": false, "price": 10.0},
		{"inStock": true, "price": 20.0},
		{"inStock": false, "price": 40.0},
	}
	_, err = db.InsertMultiple(context.Background(), docs)
	require.NoError(t, err)

	res, err := db.Search(context.Background(), SearchParams{
		Where:  map[string]any{"inStock": true},
		SortBy: &SortByParams{Property: "price", Order: sorter.Asc},
	})
	require.NoError(t, err)
	require.Equal(t, 2, res.Count)
	assert.Equal(t, 20.0, res.Hits[0].Document["price"])
	assert.Equal(t, 30.0, res.Hits[1].Document["price"])
}

func TestCombinedFiltersWithOutOfOrderInsertion(t *testing.T) {
	db, err := Create(CreateParams{Schema: schema.Raw{"price": "number", "inStock": "boolean"}})
	require.NoError(t, err)

	// Prices arrive out of ascending order, so the numeric range
	// traversal yields ids in key order rather than id order; the
	// boolean filter must still intersect with all of them.
	for _, price := range []float64{30, 10, 20} {
		_, err := db.Insert(context.Background(), map[string]any{"price": price, "inStock": true})
		require.NoError(t, err)
	}

	res, err := db.Search(context.Background(), SearchParams{
		Where: map[string]any{
			"price":   map[string]any{"gte": 10.0},
			"inStock": true,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)
}

func TestRemovalRestoresStatistics(t *testing.T) {
	db := newTextDB(t)
	ids := insertTexts(t, db, "the quick brown fox", "lazy dogs sleep", "quick silver lining")

	before := db.idx.Export()

	require.NoError(t, db.Remove(context.Background(), ids[1]))
	require.NoError(t, db.Remove(context.Background(), ids[2]))
	_, err := db.Insert(context.Background(), map[string]any{"text": "lazy dogs sleep"})
	require.NoError(t, err)
	_, err = db.Insert(context.Background(), map[string]any{"text": "quick silver lining"})
	require.NoError(t, err)

	after := db.idx.Export()

	assert.InDelta(t, before.AvgFieldLength["text"], after.AvgFieldLength["text"], 1e-9)
	assert.Equal(t, before.TokenOccurrences["text"], after.TokenOccurrences["text"])
	require.Len(t, after.Indexes["text"].Terms, len(before.Indexes["text"].Terms))
	for i, tp := range before.Indexes["text"].Terms {
		assert.Equal(t, tp.Term, after.Indexes["text"].Terms[i].Term)
		assert.Len(t, after.Indexes["text"].Terms[i].Postings, len(tp.Postings),
			"posting list size changed for %q", tp.Term)
	}
}

func TestStopWordAwareTokenization(t *testing.T) {
	db := newTextDB(t)
	insertTexts(t, db, "a quick brown fox", "the quick brown fox")

	res, err := db.Search(context.Background(), SearchParams{Term: "the quick brown fox"})
	require.NoError(t, err)
	require.Equal(t, 2, res.Count)

	// Stop words never reach the index, so both documents carry the same
	// three tokens and score identically.
	assert.InDelta(t, res.Hits[0].Score, res.Hits[1].Score, 1e-12)
}

func TestEmptyQueryReturnsNoHits(t *testing.T) {
	db := newTextDB(t)
	insertTexts(t, db, "hello world")

	res, err := db.Search(context.Background(), SearchParams{Term: ""})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Count)
	assert.Empty(t, res.Hits)
	assert.GreaterOrEqual(t, res.Elapsed.Nanoseconds(), int64(0))
}

func TestZeroToleranceMatchesExactOnExistingTerms(t *testing.T) {
	db := newTextDB(t)
	insertTexts(t, db, "falcon", "heron", "osprey")

	fuzzy, err := db.Search(context.Background(), SearchParams{Term: "falcon", Tolerance: 0})
	require.NoError(t, err)
	exact, err := db.Search(context.Background(), SearchParams{Term: "falcon", Exact: true})
	require.NoError(t, err)

	require.Equal(t, exact.Count, fuzzy.Count)
	for i := range exact.Hits {
		assert.Equal(t, exact.Hits[i].ID, fuzzy.Hits[i].ID)
		assert.InDelta(t, exact.Hits[i].Score, fuzzy.Hits[i].Score, 1e-12)
	}
}

func TestRangeWithMinAboveMaxIsEmpty(t *testing.T) {
	db, err := Create(CreateParams{Schema: schema.Raw{"price": "number"}})
	require.NoError(t, err)
	_, err = db.Insert(context.Background(), map[string]any{"price": 25.0})
	require.NoError(t, err)

	res, err := db.Search(context.Background(), SearchParams{
		Where: map[string]any{"price": map[string]any{"between": []any{40.0, 20.0}}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Count)
}

func TestRemovingLastDocumentResetsAvgFieldLength(t *testing.T) {
	db := newTextDB(t)
	ids := insertTexts(t, db, "only one document here")

	require.NoError(t, db.Remove(context.Background(), ids[0]))

	snap := db.idx.Export()
	assert.Zero(t, snap.AvgFieldLength["text"])
	assert.Empty(t, snap.TokenOccurrences["text"])
	assert.Empty(t, snap.Indexes["text"].Terms)
}

func TestInsertThenRemoveIsIdempotent(t *testing.T) {
	db := newTextDB(t)
	insertTexts(t, db, "stable corpus")
	before := db.idx.Export()

	id, err := db.Insert(context.Background(), map[string]any{"text": "a transient visitor"})
	require.NoError(t, err)
	require.NoError(t, db.Remove(context.Background(), id))

	after := db.idx.Export()
	assert.InDelta(t, before.AvgFieldLength["text"], after.AvgFieldLength["text"], 1e-9)
	assert.Equal(t, before.TokenOccurrences["text"], after.TokenOccurrences["text"])
	assert.Equal(t, before.FieldLengths["text"], after.FieldLengths["text"])
	assert.Equal(t, before.Frequencies["text"], after.Frequencies["text"])
}

func TestSearchModeAnd(t *testing.T) {
	db := newTextDB(t)
	ids := insertTexts(t, db, "red kite soaring", "red wine", "kite festival")

	or, err := db.Search(context.Background(), SearchParams{Term: "red kite"})
	require.NoError(t, err)
	assert.Equal(t, 3, or.Count)

	and, err := db.Search(context.Background(), SearchParams{Term: "red kite", Mode: ModeAnd})
	require.NoError(t, err)
	require.Equal(t, 1, and.Count)
	assert.Equal(t, ids[0], and.Hits[0].ID)
}

func TestPagination(t *testing.T) {
	db := newTextDB(t)
	insertTexts(t, db, "match one", "match two", "match three", "match four", "match five")

	page, err := db.Search(context.Background(), SearchParams{Term: "match", Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Count)
	assert.Len(t, page.Hits, 2)
}

func TestUpdateReplacesDocument(t *testing.T) {
	db := newTextDB(t)
	ids := insertTexts(t, db, "ancient library")

	require.NoError(t, db.Update(context.Background(), ids[0], map[string]any{"text": "modern archive"}))

	stale, err := db.Search(context.Background(), SearchParams{Term: "library"})
	require.NoError(t, err)
	assert.Equal(t, 0, stale.Count)

	fresh, err := db.Search(context.Background(), SearchParams{Term: "archive"})
	require.NoError(t, err)
	require.Equal(t, 1, fresh.Count)
	assert.Equal(t, ids[0], fresh.Hits[0].ID)
}

func TestUpdateFieldReindexesOnlyThatProperty(t *testing.T) {
	db, err := Create(CreateParams{Schema: schema.Raw{"title": "string", "price": "number"}})
	require.NoError(t, err)

	id, err := db.Insert(context.Background(), map[string]any{"title": "walnut desk", "price": 200.0})
	require.NoError(t, err)
	other, err := db.Insert(context.Background(), map[string]any{"title": "oak shelf", "price": 90.0})
	require.NoError(t, err)

	require.NoError(t, db.UpdateField(context.Background(), id, "price", 75.0))

	res, err := db.Search(context.Background(), SearchParams{
		Where:  map[string]any{"price": map[string]any{"lte": 100.0}},
		SortBy: &SortByParams{Property: "price", Order: sorter.Asc},
	})
	require.NoError(t, err)
	require.Equal(t, 2, res.Count)
	assert.Equal(t, id, res.Hits[0].ID)
	assert.Equal(t, 75.0, res.Hits[0].Document["price"])
	assert.Equal(t, other, res.Hits[1].ID)

	// The untouched title index still matches, and the stored document
	// carries both the old title and the new price.
	byTitle, err := db.Search(context.Background(), SearchParams{Term: "walnut"})
	require.NoError(t, err)
	require.Equal(t, 1, byTitle.Count)
	assert.Equal(t, 75.0, byTitle.Hits[0].Document["price"])
}

func TestUpdateFieldReplacesStringPostings(t *testing.T) {
	db := newTextDB(t)
	ids := insertTexts(t, db, "granite boulder")

	require.NoError(t, db.UpdateField(context.Background(), ids[0], "text", "limestone pebble"))

	stale, err := db.Search(context.Background(), SearchParams{Term: "granite"})
	require.NoError(t, err)
	assert.Equal(t, 0, stale.Count)

	fresh, err := db.Search(context.Background(), SearchParams{Term: "limestone"})
	require.NoError(t, err)
	require.Equal(t, 1, fresh.Count)
	assert.Equal(t, ids[0], fresh.Hits[0].ID)
}

func TestUpdateFieldErrors(t *testing.T) {
	db := newTextDB(t)
	ids := insertTexts(t, db, "present")

	require.Error(t, db.UpdateField(context.Background(), ids[0], "missing", "x"))
	require.Error(t, db.UpdateField(context.Background(), "never-inserted", "text", "x"))
}

func TestFilterErrors(t *testing.T) {
	db, err := Create(CreateParams{Schema: schema.Raw{"price": "number"}})
	require.NoError(t, err)

	_, err = db.Search(context.Background(), SearchParams{Where: map[string]any{"missing": true}})
	var oerr *Error
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, CodeUnknownFilterProperty, oerr.Code)

	_, err = db.Search(context.Background(), SearchParams{
		Where: map[string]any{"price": map[string]any{"gt": 1.0, "lt": 5.0}},
	})
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, CodeInvalidFilterOperation, oerr.Code)
}

func TestSortErrors(t *testing.T) {
	disabled, err := Create(CreateParams{
		Schema: schema.Raw{"price": "number"},
		Sort:   &SortConfig{Enabled: false},
	})
	require.NoError(t, err)
	_, err = disabled.Insert(context.Background(), map[string]any{"price": 1.0})
	require.NoError(t, err)

	_, err = disabled.Search(context.Background(), SearchParams{
		SortBy: &SortByParams{Property: "price"},
		Where:  map[string]any{"price": map[string]any{"gte": 0.0}},
	})
	var oerr *Error
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, CodeSortDisabled, oerr.Code)

	enabled, err := Create(CreateParams{Schema: schema.Raw{"price": "number"}})
	require.NoError(t, err)
	_, err = enabled.Insert(context.Background(), map[string]any{"price": 1.0})
	require.NoError(t, err)

	_, err = enabled.Search(context.Background(), SearchParams{
		SortBy: &SortByParams{Property: "nope"},
		Where:  map[string]any{"price": map[string]any{"gte": 0.0}},
	})
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, CodeUnableToSortOnUnknownField, oerr.Code)
}

func TestCreateRejectsUnsupportedLanguage(t *testing.T) {
	_, err := Create(CreateParams{
		Schema:   schema.Raw{"text": "string"},
		Language: tokenizer.Language("klingon"),
	})
	var oerr *Error
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, CodeLanguageNotSupported, oerr.Code)
}

func TestCreateRejectsInvalidSchemaType(t *testing.T) {
	_, err := Create(CreateParams{Schema: schema.Raw{"blob": "object[]"}})
	var oerr *Error
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, CodeInvalidSchemaType, oerr.Code)
}

func TestRemoveUnknownIDIsNoOp(t *testing.T) {
	db := newTextDB(t)
	insertTexts(t, db, "present")
	require.NoError(t, db.Remove(context.Background(), "never-inserted"))
}

func TestNestedSchemaSearchAndFilter(t *testing.T) {
	db, err := Create(CreateParams{Schema: schema.Raw{
		"title": "string",
		"meta":  schema.Raw{"rating": "number", "author": "string"},
	}})
	require.NoError(t, err)

	_, err = db.Insert(context.Background(), map[string]any{
		"title": "go in practice",
		"meta":  map[string]any{"rating": 4.0, "author": "rivers"},
	})
	require.NoError(t, err)
	_, err = db.Insert(context.Background(), map[string]any{
		"title": "go basics",
		"meta":  map[string]any{"rating": 2.0, "author": "brooks"},
	})
	require.NoError(t, err)

	res, err := db.Search(context.Background(), SearchParams{
		Term:  "go",
		Where: map[string]any{"meta.rating": map[string]any{"gte": 3.0}},
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)
	assert.Equal(t, "go in practice", res.Hits[0].Document["title"])
}

func TestArrayFieldsIndexEveryElement(t *testing.T) {
	db, err := Create(CreateParams{Schema: schema.Raw{"tags": "string[]", "scores": "number[]"}})
	require.NoError(t, err)

	id, err := db.Insert(context.Background(), map[string]any{
		"tags":   []any{"search", "engine"},
		"scores": []any{1.0, 9.0},
	})
	require.NoError(t, err)

	byTag, err := db.Search(context.Background(), SearchParams{Term: "engine"})
	require.NoError(t, err)
	require.Equal(t, 1, byTag.Count)
	assert.Equal(t, id, byTag.Hits[0].ID)

	byScore, err := db.Search(context.Background(), SearchParams{
		Where: map[string]any{"scores": map[string]any{"gt": 5.0}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, byScore.Count)
}

func TestFacets(t *testing.T) {
	db, err := Create(CreateParams{Schema: schema.Raw{"text": "string", "inStock": "boolean"}})
	require.NoError(t, err)
	for _, doc := range []map[string]any{
		{"text": "alpha", "inStock": true},
		{"text": "alpha", "inStock": false},
		{"text": "beta", "inStock": true},
	} {
		_, err := db.Insert(context.Background(), doc)
		require.NoError(t, err)
	}

	res, err := db.Search(context.Background(), SearchParams{
		Term:   "alpha beta",
		Facets: map[string]FacetParams{"inStock": {}},
	})
	require.NoError(t, err)
	require.Contains(t, res.Facets, "inStock")

	counts := make(map[any]int)
	for _, v := range res.Facets["inStock"].Values {
		counts[v.Value] = v.Count
	}
	assert.Equal(t, 2, counts[true])
	assert.Equal(t, 1, counts[false])
}

func TestGroupBy(t *testing.T) {
	db, err := Create(CreateParams{Schema: schema.Raw{"text": "string", "category": "string"}})
	require.NoError(t, err)
	for _, doc := range []map[string]any{
		{"text": "first widget", "category": "tools"},
		{"text": "second widget", "category": "toys"},
		{"text": "third widget", "category": "tools"},
	} {
		_, err := db.Insert(context.Background(), doc)
		require.NoError(t, err)
	}

	res, err := db.Search(context.Background(), SearchParams{
		Term:    "widget",
		GroupBy: &GroupByParams{Property: "category"},
	})
	require.NoError(t, err)
	require.Len(t, res.Groups, 2)

	total := 0
	for _, g := range res.Groups {
		total += len(g.Hits)
	}
	assert.Equal(t, 3, total)
}

func TestBoostFavorsBoostedProperty(t *testing.T) {
	db, err := Create(CreateParams{Schema: schema.Raw{"title": "string", "body": "string"}})
	require.NoError(t, err)

	titleHit, err := db.Insert(context.Background(), map[string]any{"title": "galaxy", "body": "stars"})
	require.NoError(t, err)
	bodyHit, err := db.Insert(context.Background(), map[string]any{"title": "stars", "body": "galaxy"})
	require.NoError(t, err)

	res, err := db.Search(context.Background(), SearchParams{
		Term:  "galaxy",
		Boost: map[string]float64{"title": 4},
	})
	require.NoError(t, err)
	require.Equal(t, 2, res.Count)
	assert.Equal(t, titleHit, res.Hits[0].ID)
	assert.Equal(t, bodyHit, res.Hits[1].ID)
	assert.Greater(t, res.Hits[0].Score, res.Hits[1].Score)
}

func TestCustomTokenizerInstance(t *testing.T) {
	tok, err := tokenizer.New(tokenizer.Config{
		Language:        tokenizer.French,
		AllowDuplicates: true,
	})
	require.NoError(t, err)

	// A precomputed instance carries its own language; combining it with
	// a top-level language is rejected.
	_, err = Create(CreateParams{
		Schema:     schema.Raw{"text": "string"},
		Language:   tokenizer.English,
		Components: &Components{TokenizerInstance: tok},
	})
	var oerr *Error
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, CodeNoLanguageWithCustomTokenizer, oerr.Code)

	db, err := Create(CreateParams{
		Schema:     schema.Raw{"text": "string"},
		Components: &Components{TokenizerInstance: tok},
	})
	require.NoError(t, err)

	_, err = db.Insert(context.Background(), map[string]any{"text": "le chat noir"})
	require.NoError(t, err)

	// "le" is a French stop word and must not be indexed.
	res, err := db.Search(context.Background(), SearchParams{Term: "le", Exact: true})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Count)

	res, err = db.Search(context.Background(), SearchParams{Term: "chat"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
}

func TestHooks(t *testing.T) {
	var calls []string
	hook := func(name string) Hook {
		return func(ctx context.Context, db *DB, doc map[string]any) error {
			calls = append(calls, name)
			return nil
		}
	}
	db, err := Create(CreateParams{
		Schema: schema.Raw{"text": "string"},
		Components: &Components{Hooks: Hooks{
			BeforeInsert: []Hook{hook("beforeInsert")},
			AfterInsert:  []Hook{hook("afterInsert")},
			BeforeRemove: []Hook{hook("beforeRemove")},
			AfterRemove:  []Hook{hook("afterRemove")},
		}},
	})
	require.NoError(t, err)

	id, err := db.Insert(context.Background(), map[string]any{"text": "observed"})
	require.NoError(t, err)
	require.NoError(t, db.Remove(context.Background(), id))

	assert.Equal(t, []string{"beforeInsert", "afterInsert", "beforeRemove", "afterRemove"}, calls)
}

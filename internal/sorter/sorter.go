// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package sorter maintains one lazily-sorted document list per sortable
// property, with deferred deletion. Inserts/removes are O(1) amortized;
// the actual sort only happens on demand, in ensureSorted, and
// tombstoned ids are compacted out at that point rather than on every
// remove.
package sorter

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Order is the direction SortBy orders matched documents in.
type Order string

const (
	Asc  Order = "ASC"
	Desc Order = "DESC"
)

// ErrSortDisabled is returned by SortBy when the sorter was constructed
// with enabled=false.
type ErrSortDisabled struct{}

func (ErrSortDisabled) Error() string { return "SORT_DISABLED" }

// ErrUnknownField is returned by SortBy for a property that isn't in the
// sortable set the Sorter was constructed with.
type ErrUnknownField struct{ Property string }

func (e ErrUnknownField) Error() string { return "UNABLE_TO_SORT_ON_UNKNOWN_FIELD: " + e.Property }

type entry struct {
	id    int
	value any
}

type propertyState struct {
	orderedDocs   []entry
	docs          map[int]int // id -> position in orderedDocs, valid only when isSorted
	pendingRemove map[int]bool
	isSorted      bool
	language      string
}

// Sorter tracks ordered document lists for every sortable property of one
// database.
type Sorter struct {
	enabled    bool
	sortable   map[string]bool
	properties map[string]*propertyState
}

// New constructs a Sorter over the given sortable property paths.
// enabled mirrors the creation-time sort.enabled flag; when false,
// SortBy always fails with ErrSortDisabled.
func New(sortableFields []string, enabled bool) *Sorter {
	sortable := make(map[string]bool, len(sortableFields))
	properties := make(map[string]*propertyState, len(sortableFields))
	for _, f := range sortableFields {
		sortable[f] = true
		properties[f] = &propertyState{
			docs:          make(map[int]int),
			pendingRemove: make(map[int]bool),
		}
	}
	return &Sorter{enabled: enabled, sortable: sortable, properties: properties}
}

// Insert appends (id, value) to prop's ordered list and marks it dirty.
// lang records the most recently observed language, used for locale-aware
// string comparison in ensureSorted. Insert is a no-op for properties
// that are not in the sortable set.
func (s *Sorter) Insert(prop string, id int, value any, lang string) {
	p, ok := s.properties[prop]
	if !ok {
		return
	}
	p.orderedDocs = append(p.orderedDocs, entry{id: id, value: value})
	p.docs[id] = len(p.orderedDocs) - 1
	p.isSorted = false
	if lang != "" {
		p.language = lang
	}
}

// Remove marks id for deferred removal from prop's ordered list. If id
// isn't currently tracked, Remove is a no-op.
func (s *Sorter) Remove(prop string, id int) {
	p, ok := s.properties[prop]
	if !ok {
		return
	}
	if _, tracked := p.docs[id]; !tracked {
		return
	}
	delete(p.docs, id)
	p.pendingRemove[id] = true
}

// ensureSorted compacts out pending removals and re-sorts prop's ordered
// list if dirty.
func (p *propertyState) ensureSorted() {
	if p.isSorted && len(p.pendingRemove) == 0 {
		return
	}
	if len(p.pendingRemove) > 0 {
		// Keep an entry only where docs still points at it: a removed id
		// has no docs entry, and an id re-inserted after a removal points
		// at its newest entry.
		compacted := p.orderedDocs[:0]
		for i, e := range p.orderedDocs {
			if pos, live := p.docs[e.id]; !live || pos != i {
				continue
			}
			compacted = append(compacted, e)
		}
		p.orderedDocs = compacted
		p.pendingRemove = make(map[int]bool)
	}

	sort.SliceStable(p.orderedDocs, func(i, j int) bool {
		return less(p.orderedDocs[i].value, p.orderedDocs[j].value, p.language)
	})

	p.docs = make(map[int]int, len(p.orderedDocs))
	for i, e := range p.orderedDocs {
		p.docs[e.id] = i
	}
	p.isSorted = true
}

func less(a, b any, lang string) bool {
	switch av := a.(type) {
	case string:
		bv, _ := b.(string)
		col := collatorFor(lang)
		return col.CompareString(av, bv) < 0
	case float64:
		bv, _ := b.(float64)
		return av < bv
	case bool:
		bv, _ := b.(bool)
		return !av && bv
	default:
		return false
	}
}

func collatorFor(lang string) *collate.Collator {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.Und
	}
	return collate.New(tag)
}

// Entry is the serializable form of one (id, value) pair in a property's
// ordered list.
type Entry struct {
	ID    int `json:"id"`
	Value any `json:"value"`
}

// PropertySnapshot is the serializable state of one sortable property:
// its compacted, sorted document list and the position map over it.
type PropertySnapshot struct {
	Docs        map[int]int `json:"docs"`
	OrderedDocs []Entry     `json:"orderedDocs"`
	Language    string      `json:"language"`
}

// Flush applies every pending removal and materializes every property's
// sort, so the exported state carries no tombstones or dirty lists.
func (s *Sorter) Flush() {
	for _, p := range s.properties {
		p.ensureSorted()
	}
}

// Export returns the serializable state of every sortable property.
// Callers should Flush first; Export does so defensively anyway.
func (s *Sorter) Export() (sorts map[string]PropertySnapshot, enabled bool) {
	s.Flush()
	sorts = make(map[string]PropertySnapshot, len(s.properties))
	for prop, p := range s.properties {
		snap := PropertySnapshot{
			Docs:        make(map[int]int, len(p.docs)),
			OrderedDocs: make([]Entry, 0, len(p.orderedDocs)),
			Language:    p.language,
		}
		for id, pos := range p.docs {
			snap.Docs[id] = pos
		}
		for _, e := range p.orderedDocs {
			snap.OrderedDocs = append(snap.OrderedDocs, Entry{ID: e.id, Value: e.value})
		}
		sorts[prop] = snap
	}
	return sorts, s.enabled
}

// Restore replaces the sorter's per-property state with a previously
// Exported snapshot. Properties absent from sorts are reset to empty.
func (s *Sorter) Restore(sorts map[string]PropertySnapshot) {
	for prop, p := range s.properties {
		snap, ok := sorts[prop]
		if !ok {
			s.properties[prop] = &propertyState{
				docs:          make(map[int]int),
				pendingRemove: make(map[int]bool),
			}
			continue
		}
		p.orderedDocs = make([]entry, 0, len(snap.OrderedDocs))
		for _, e := range snap.OrderedDocs {
			p.orderedDocs = append(p.orderedDocs, entry{id: e.ID, value: e.Value})
		}
		p.docs = make(map[int]int, len(snap.Docs))
		for id, pos := range snap.Docs {
			p.docs[id] = pos
		}
		p.pendingRemove = make(map[int]bool)
		p.isSorted = true
		p.language = snap.Language
	}
}

// SortBy stably reorders docIDs so that ids tracked on prop appear in
// prop's order position order (reversed for Desc); ids not tracked on
// prop sort last, preserving their relative input order.
func (s *Sorter) SortBy(docIDs []int, prop string, order Order) ([]int, error) {
	if !s.enabled {
		return nil, ErrSortDisabled{}
	}
	p, ok := s.properties[prop]
	if !ok || !s.sortable[prop] {
		return nil, ErrUnknownField{Property: prop}
	}
	p.ensureSorted()

	type ranked struct {
		id       int
		position int
		ranked   bool
		input    int
	}
	items := make([]ranked, len(docIDs))
	for i, id := range docIDs {
		pos, ok := p.docs[id]
		items[i] = ranked{id: id, position: pos, ranked: ok, input: i}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.ranked != b.ranked {
			return a.ranked
		}
		if !a.ranked {
			return a.input < b.input
		}
		if order == Desc {
			return a.position > b.position
		}
		return a.position < b.position
	})

	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.id
	}
	return out, nil
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package index

import (
	"github.com/aleutian-labs/oramago/internal/avl"
	"github.com/aleutian-labs/oramago/internal/radix"
	"github.com/aleutian-labs/oramago/internal/schema"
)

// PropertyIndex is the serializable form of one property's posting
// structure. Exactly one of Terms/Numbers/True+False is populated,
// matching the property's schema type.
type PropertyIndex struct {
	Type    schema.Type          `json:"type"`
	Terms   []radix.TermPostings `json:"terms,omitempty"`
	Numbers []avl.KeyIDs         `json:"numbers,omitempty"`
	True    []int                `json:"true,omitempty"`
	False   []int                `json:"false,omitempty"`
}

// Snapshot is the serializable state of the whole index aggregate: the
// per-property posting structures plus the four BM25 statistic maps,
// keyed by property path.
type Snapshot struct {
	Indexes                       map[string]PropertyIndex              `json:"indexes"`
	SearchableProperties          []string                              `json:"searchableProperties"`
	SearchablePropertiesWithTypes map[string]schema.Type                `json:"searchablePropertiesWithTypes"`
	Frequencies                   map[string]map[int]map[string]float64 `json:"frequencies"`
	TokenOccurrences              map[string]map[string]int             `json:"tokenOccurrences"`
	AvgFieldLength                map[string]float64                    `json:"avgFieldLength"`
	FieldLengths                  map[string]map[int]int                `json:"fieldLengths"`
}

// Export captures the aggregate's full state for serialization.
func (idx *Index) Export() Snapshot {
	snap := Snapshot{
		Indexes:                       make(map[string]PropertyIndex, len(idx.flattened.Paths)),
		SearchableProperties:          append([]string{}, idx.flattened.Paths...),
		SearchablePropertiesWithTypes: make(map[string]schema.Type, len(idx.flattened.Paths)),
		Frequencies:                   make(map[string]map[int]map[string]float64),
		TokenOccurrences:              make(map[string]map[string]int),
		AvgFieldLength:                make(map[string]float64),
		FieldLengths:                  make(map[string]map[int]int),
	}
	for _, p := range idx.flattened.Paths {
		t := idx.flattened.Types[p]
		snap.SearchablePropertiesWithTypes[p] = t

		entry := PropertyIndex{Type: t}
		switch t.Scalar() {
		case schema.String:
			entry.Terms = idx.radixTrees[p].Export()
			avg, lengths, occurrences, freqs := idx.stats[p].Export()
			snap.AvgFieldLength[p] = avg
			snap.FieldLengths[p] = lengths
			snap.TokenOccurrences[p] = occurrences
			snap.Frequencies[p] = freqs
		case schema.Number:
			entry.Numbers = idx.avlTrees[p].All()
		case schema.Boolean:
			entry.True, entry.False = idx.boolIdx[p].Export()
		}
		snap.Indexes[p] = entry
	}
	return snap
}

// Restore replaces the aggregate's state with a previously Exported
// Snapshot. The aggregate must have been constructed with the same
// flattened schema the snapshot was taken under; properties the schema
// knows but the snapshot doesn't are reset to empty.
func (idx *Index) Restore(snap Snapshot) {
	for _, p := range idx.flattened.Paths {
		entry := snap.Indexes[p]
		switch idx.flattened.Types[p].Scalar() {
		case schema.String:
			idx.radixTrees[p].Restore(entry.Terms)
			idx.stats[p].Restore(snap.AvgFieldLength[p], snap.FieldLengths[p], snap.TokenOccurrences[p], snap.Frequencies[p])
		case schema.Number:
			idx.avlTrees[p].Restore(entry.Numbers)
		case schema.Boolean:
			idx.boolIdx[p].Restore(entry.True, entry.False)
		}
	}
}

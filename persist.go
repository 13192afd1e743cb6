// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package oramago

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/aleutian-labs/oramago/internal/idstore"
	"github.com/aleutian-labs/oramago/internal/index"
	"github.com/aleutian-labs/oramago/internal/schema"
	"github.com/aleutian-labs/oramago/internal/sorter"
	"github.com/aleutian-labs/oramago/internal/telemetry"
)

// persistedSort is one sortable property's saved state: the compacted,
// sorted document list plus the property's schema type, so loaders can
// validate against their own schema.
type persistedSort struct {
	sorter.PropertySnapshot
	Type schema.Type `json:"type"`
}

// persistedSorter is the sorter section of the save envelope. IsSorted
// is always true on save since pending deletions are applied and every
// sort materialized first.
type persistedSorter struct {
	SortableProperties          []string                 `json:"sortableProperties"`
	SortablePropertiesWithTypes map[string]schema.Type   `json:"sortablePropertiesWithTypes"`
	Sorts                       map[string]persistedSort `json:"sorts"`
	Enabled                     bool                     `json:"enabled"`
	IsSorted                    bool                     `json:"isSorted"`
	Language                    string                   `json:"language"`
}

// persistedState is the whole-database save envelope. Maps with integer
// keys serialize as JSON objects whose string keys parse back to
// integers, which encoding/json does natively for map[int]T.
type persistedState struct {
	InternalDocumentIDStore idstore.Snapshot        `json:"internalDocumentIdStore"`
	Index                   index.Snapshot          `json:"index"`
	Sorter                  persistedSorter         `json:"sorter"`
	Docs                    map[int]json.RawMessage `json:"docs"`
}

// Save serializes the database's full state to w as a single JSON
// envelope. The sorter is flushed first, so pending deletions are
// applied and every per-property sort is materialized in the output.
// Save excludes writers for its duration because the flush mutates
// sorter-internal state.
func (db *DB) Save(w io.Writer) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	started := time.Now()
	_, span := telemetry.StartOperationSpan(context.Background(), "save", db.id)
	var err error
	defer func() { telemetry.RecordOperationResult(span, "save", started, err) }()

	sorts, enabled := db.srt.Export()
	sortable := make([]string, 0, len(sorts))
	persistedSorts := make(map[string]persistedSort, len(sorts))
	types := make(map[string]schema.Type, len(sorts))
	for prop, snap := range sorts {
		sortable = append(sortable, prop)
		persistedSorts[prop] = persistedSort{PropertySnapshot: snap, Type: db.flattened.Types[prop]}
		types[prop] = db.flattened.Types[prop]
	}
	sort.Strings(sortable)

	state := persistedState{
		InternalDocumentIDStore: db.ids.Export(),
		Index:                   db.idx.Export(),
		Sorter: persistedSorter{
			SortableProperties:          sortable,
			SortablePropertiesWithTypes: types,
			Sorts:                       persistedSorts,
			Enabled:                     enabled,
			IsSorted:                    true,
			Language:                    string(db.tokCfg.Language),
		},
		Docs: db.docs.Export(),
	}

	enc := json.NewEncoder(w)
	err = enc.Encode(state)
	return err
}

// Load replaces the database's state with one previously written by
// Save. The database must have been created with the same schema the
// saved state was produced under; Load restores posting structures, BM25
// statistics, sorter state, interned ids, and documents, after which the
// database answers every search and filter identically to the saved one.
func (db *DB) Load(r io.Reader) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	started := time.Now()
	_, span := telemetry.StartOperationSpan(context.Background(), "load", db.id)
	var err error
	defer func() { telemetry.RecordOperationResult(span, "load", started, err) }()

	var state persistedState
	dec := json.NewDecoder(r)
	if err = dec.Decode(&state); err != nil {
		return fmt.Errorf("decode saved state: %w", err)
	}

	db.ids.Restore(state.InternalDocumentIDStore.ExternalToInternal, state.InternalDocumentIDStore.Next)
	db.idx.Restore(state.Index)
	sorts := make(map[string]sorter.PropertySnapshot, len(state.Sorter.Sorts))
	for prop, snap := range state.Sorter.Sorts {
		sorts[prop] = snap.PropertySnapshot
	}
	db.srt.Restore(sorts)
	db.docs.Restore(state.Docs)

	telemetry.SetDocumentsIndexed(db.ids.Len())
	return nil
}

// SaveFile writes Save's output atomically to path: the state is written
// to a sibling temp file first and renamed into place.
func (db *DB) SaveFile(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".oramago-save-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := db.Save(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadFile reads a state file previously written with SaveFile.
func (db *DB) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return db.Load(f)
}

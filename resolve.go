// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package oramago

import "github.com/aleutian-labs/oramago/internal/schema"

// indexDocument dispatches every schema path of doc (already stored under
// internal in db.docs) to the index aggregate and the sorter.
func (db *DB) indexDocument(internal int, doc map[string]any) {
	for _, path := range db.flattened.Paths {
		t := db.flattened.Types[path]
		value, ok := db.resolveValue(internal, path, t)
		if !ok {
			continue
		}
		_ = db.idx.InsertProperty(path, internal, value)
		if !t.IsArray() {
			db.srt.Insert(path, internal, value, string(db.tokCfg.Language))
		}
	}
}

// deindexDocument reverses indexDocument, resolving each value from the
// document store, where internal's document is still present (doc itself
// is not read).
func (db *DB) deindexDocument(internal int, doc map[string]any) {
	for _, path := range db.flattened.Paths {
		t := db.flattened.Types[path]
		value, ok := db.resolveValue(internal, path, t)
		if !ok {
			continue
		}
		db.idx.RemoveProperty(path, internal, value)
		if !t.IsArray() {
			db.srt.Remove(path, internal)
		}
	}
}

func (db *DB) resolveValue(internal int, path string, t schema.Type) (any, bool) {
	switch t {
	case schema.String:
		return db.docs.ResolveString(internal, path)
	case schema.StringArray:
		return db.docs.ResolveStringArray(internal, path)
	case schema.Number:
		return db.docs.ResolveNumber(internal, path)
	case schema.NumberArray:
		return db.docs.ResolveNumberArray(internal, path)
	case schema.Boolean:
		return db.docs.ResolveBool(internal, path)
	case schema.BoolArray:
		return db.docs.ResolveBoolArray(internal, path)
	default:
		return nil, false
	}
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package oramago is an embeddable, in-memory full-text search engine
// over schema-typed documents, scored with BM25. A DB is created with a
// schema describing scalar and array fields; documents are inserted,
// removed, and queried by free-text search, filter expressions, and
// sort on scalar fields.
package oramago

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aleutian-labs/oramago/internal/docstore"
	"github.com/aleutian-labs/oramago/internal/idstore"
	"github.com/aleutian-labs/oramago/internal/index"
	"github.com/aleutian-labs/oramago/internal/schema"
	"github.com/aleutian-labs/oramago/internal/sorter"
	"github.com/aleutian-labs/oramago/internal/telemetry"
	"github.com/aleutian-labs/oramago/internal/tokenizer"
)

// Hook is called around insert/remove/update. Returning an error aborts
// the operation (before-hooks only; after-hooks are best-effort and their
// errors are discarded, neither propagated nor logged).
type Hook func(ctx context.Context, db *DB, doc map[string]any) error

// MultiHook is the batch counterpart of Hook, called once around a
// whole InsertMultiple/RemoveMultiple/UpdateMultiple call rather than
// per document.
type MultiHook func(ctx context.Context, db *DB, docs []map[string]any) error

// Hooks groups the hook arrays a Components override can supply at
// creation time.
type Hooks struct {
	BeforeInsert []Hook
	AfterInsert  []Hook
	BeforeRemove []Hook
	AfterRemove  []Hook
	BeforeUpdate []Hook
	AfterUpdate  []Hook

	BeforeInsertMultiple []MultiHook
	AfterInsertMultiple  []MultiHook
	BeforeRemoveMultiple []MultiHook
	AfterRemoveMultiple  []MultiHook
	BeforeUpdateMultiple []MultiHook
	AfterUpdateMultiple  []MultiHook
}

// SortConfig configures the sorter at creation time.
type SortConfig struct {
	Enabled              bool
	UnsortableProperties []string
}

// Components lets a caller override individual collaborators at creation
// time. TokenizerInstance takes precedence over the
// Tokenizer config when both are set; supplying an instance together
// with a top-level Language fails with NO_LANGUAGE_WITH_CUSTOM_TOKENIZER
// since the instance already carries its language.
type Components struct {
	Tokenizer         tokenizer.Config
	TokenizerInstance *tokenizer.Tokenizer
	Hooks             Hooks
}

// CreateParams are the creation arguments for Create.
type CreateParams struct {
	ID         string
	Schema     schema.Raw
	Language   tokenizer.Language
	Sort       *SortConfig
	Components *Components
}

// DB is one embeddable search database instance. All exported methods
// are safe for concurrent use under the single-writer/multi-reader
// model: writes take an exclusive lock, searches take a shared lock.
type DB struct {
	mu sync.RWMutex

	id        string
	flattened *schema.Flattened
	idx       *index.Index
	ids       *idstore.Store
	docs      *docstore.Store
	srt       *sorter.Sorter
	tokCfg    tokenizer.Config
	hooks     Hooks
}

// Create validates and flattens schema, then constructs an empty
// database ready for Insert/Search.
func Create(params CreateParams) (*DB, error) {
	flattened, err := schema.Flatten(params.Schema)
	if err != nil {
		var fieldErr *schema.FieldError
		if errors.As(err, &fieldErr) {
			return nil, NewError(CodeInvalidSchemaType, fieldErr.Type, fieldErr.Path)
		}
		return nil, NewError(CodeInvalidSchemaType, err.Error(), "")
	}

	tokCfg := tokenizer.Config{Language: params.Language}
	if params.Components != nil {
		if params.Components.TokenizerInstance == nil {
			tokCfg = params.Components.Tokenizer
		}
		if tokCfg.Language == "" {
			tokCfg.Language = params.Language
		}
	}
	if tokCfg.Language == "" {
		tokCfg.Language = tokenizer.English
	}

	var idx *index.Index
	if params.Components != nil && params.Components.TokenizerInstance != nil {
		if params.Language != "" {
			return nil, NewError(CodeNoLanguageWithCustomTokenizer)
		}
		idx = index.NewWithTokenizer(flattened, params.Components.TokenizerInstance)
		tokCfg.Language = params.Components.TokenizerInstance.Language()
	} else {
		idx, err = index.New(flattened, tokCfg)
		if err != nil {
			return nil, NewError(CodeLanguageNotSupported, tokCfg.Language)
		}
	}

	sortEnabled := true
	var unsortable []string
	if params.Sort != nil {
		sortEnabled = params.Sort.Enabled
		unsortable = params.Sort.UnsortableProperties
	}
	sortableFields := flattened.SortableFields(unsortable)

	id := params.ID
	if id == "" {
		id = uuid.NewString()
	}

	db := &DB{
		id:        id,
		flattened: flattened,
		idx:       idx,
		ids:       idstore.New(),
		docs:      docstore.New(),
		srt:       sorter.New(sortableFields, sortEnabled),
		tokCfg:    tokCfg,
	}
	if params.Components != nil {
		db.hooks = params.Components.Hooks
	}
	return db, nil
}

// ID returns the database's instance id.
func (db *DB) ID() string { return db.id }

// Schema returns the flattened schema the database was created with.
func (db *DB) Schema() *schema.Flattened { return db.flattened }

// Insert adds doc to the database, assigning it a fresh external id if
// doc has no "id" field, and returns that external id.
func (db *DB) Insert(ctx context.Context, doc map[string]any) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	started := time.Now()
	ctx, span := telemetry.StartOperationSpan(ctx, "insert", db.id)
	var err error
	defer func() { telemetry.RecordOperationResult(span, "insert", started, err) }()

	for _, h := range db.hooks.BeforeInsert {
		if err = h(ctx, db, doc); err != nil {
			return "", err
		}
	}

	external, _ := doc["id"].(string)
	if external == "" {
		external = uuid.NewString()
		doc["id"] = external
	}

	internal := db.ids.Intern(external)
	if err = db.docs.Put(internal, doc); err != nil {
		return "", err
	}
	db.indexDocument(internal, doc)

	for _, h := range db.hooks.AfterInsert {
		_ = h(ctx, db, doc)
	}

	telemetry.SetDocumentsIndexed(db.ids.Len())
	return external, nil
}

// InsertMultiple inserts each document in docs, returning their assigned
// external ids in order. Insertion stops at the first error.
func (db *DB) InsertMultiple(ctx context.Context, docs []map[string]any) ([]string, error) {
	for _, h := range db.hooks.BeforeInsertMultiple {
		if err := h(ctx, db, docs); err != nil {
			return nil, err
		}
	}
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		id, err := db.Insert(ctx, doc)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	for _, h := range db.hooks.AfterInsertMultiple {
		_ = h(ctx, db, docs)
	}
	return ids, nil
}

// Remove deletes the document with the given external id from every
// index structure it participates in.
func (db *DB) Remove(ctx context.Context, external string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.removeLocked(ctx, external)
}

func (db *DB) removeLocked(ctx context.Context, external string) error {
	started := time.Now()
	ctx, span := telemetry.StartOperationSpan(ctx, "remove", db.id)
	var err error
	defer func() { telemetry.RecordOperationResult(span, "remove", started, err) }()

	internal, ok := db.ids.Lookup(external)
	if !ok {
		return nil
	}
	doc, ok := db.docs.Get(internal)
	if !ok {
		return nil
	}

	for _, h := range db.hooks.BeforeRemove {
		if err = h(ctx, db, doc); err != nil {
			return err
		}
	}

	db.deindexDocument(internal, doc)
	db.docs.Remove(internal)
	db.ids.Remove(external)

	for _, h := range db.hooks.AfterRemove {
		_ = h(ctx, db, doc)
	}

	telemetry.SetDocumentsIndexed(db.ids.Len())
	return nil
}

// RemoveMultiple removes every document named in externalIDs.
func (db *DB) RemoveMultiple(ctx context.Context, externalIDs []string) error {
	docs := db.documentsByExternalIDs(externalIDs)
	for _, h := range db.hooks.BeforeRemoveMultiple {
		if err := h(ctx, db, docs); err != nil {
			return err
		}
	}
	for _, id := range externalIDs {
		if err := db.Remove(ctx, id); err != nil {
			return err
		}
	}
	for _, h := range db.hooks.AfterRemoveMultiple {
		_ = h(ctx, db, docs)
	}
	return nil
}

// UpdateMultiple updates each (externalID, document) pair, stopping at
// the first error. ids and docs must be the same length.
func (db *DB) UpdateMultiple(ctx context.Context, externalIDs []string, docs []map[string]any) error {
	if len(externalIDs) != len(docs) {
		return fmt.Errorf("oramago: %d ids for %d documents", len(externalIDs), len(docs))
	}
	for _, h := range db.hooks.BeforeUpdateMultiple {
		if err := h(ctx, db, docs); err != nil {
			return err
		}
	}
	for i, id := range externalIDs {
		if err := db.Update(ctx, id, docs[i]); err != nil {
			return err
		}
	}
	for _, h := range db.hooks.AfterUpdateMultiple {
		_ = h(ctx, db, docs)
	}
	return nil
}

// UpdateField rewrites a single schema property of the document stored
// under external, reindexing only that property instead of removing and
// re-inserting the whole document. The document keeps its internal id,
// so posting lists for untouched properties are left alone.
func (db *DB) UpdateField(ctx context.Context, external, path string, value any) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	started := time.Now()
	ctx, span := telemetry.StartOperationSpan(ctx, "update_field", db.id)
	var err error
	defer func() { telemetry.RecordOperationResult(span, "update_field", started, err) }()

	t, ok := db.flattened.ResolvePath(path)
	if !ok {
		err = fmt.Errorf("oramago: unknown property %q", path)
		return err
	}
	internal, ok := db.ids.Lookup(external)
	if !ok {
		err = fmt.Errorf("oramago: no document with id %q", external)
		return err
	}

	doc, _ := db.docs.Get(internal)
	for _, h := range db.hooks.BeforeUpdate {
		if err = h(ctx, db, doc); err != nil {
			return err
		}
	}

	if old, resolved := db.resolveValue(internal, path, t); resolved {
		db.idx.RemoveProperty(path, internal, old)
		if !t.IsArray() {
			db.srt.Remove(path, internal)
		}
	}
	if err = db.docs.SetField(internal, path, value); err != nil {
		return err
	}
	if updated, resolved := db.resolveValue(internal, path, t); resolved {
		_ = db.idx.InsertProperty(path, internal, updated)
		if !t.IsArray() {
			db.srt.Insert(path, internal, updated, string(db.tokCfg.Language))
		}
	}

	if doc, ok = db.docs.Get(internal); ok {
		for _, h := range db.hooks.AfterUpdate {
			_ = h(ctx, db, doc)
		}
	}
	return nil
}

// documentsByExternalIDs resolves the currently-stored documents for the
// given external ids, skipping unknown ones, for batch hook payloads.
func (db *DB) documentsByExternalIDs(externalIDs []string) []map[string]any {
	db.mu.RLock()
	defer db.mu.RUnlock()
	docs := make([]map[string]any, 0, len(externalIDs))
	for _, ext := range externalIDs {
		internal, ok := db.ids.Lookup(ext)
		if !ok {
			continue
		}
		if doc, ok := db.docs.Get(internal); ok {
			docs = append(docs, doc)
		}
	}
	return docs
}

// Update replaces the document stored under external with doc, as a
// Remove followed by an Insert that preserves the original external id.
func (db *DB) Update(ctx context.Context, external string, doc map[string]any) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	started := time.Now()
	ctx, span := telemetry.StartOperationSpan(ctx, "update", db.id)
	var err error
	defer func() { telemetry.RecordOperationResult(span, "update", started, err) }()

	for _, h := range db.hooks.BeforeUpdate {
		if err = h(ctx, db, doc); err != nil {
			return err
		}
	}

	if err = db.removeLocked(ctx, external); err != nil {
		return err
	}
	doc["id"] = external
	internal := db.ids.Intern(external)
	if err = db.docs.Put(internal, doc); err != nil {
		return err
	}
	db.indexDocument(internal, doc)

	for _, h := range db.hooks.AfterUpdate {
		_ = h(ctx, db, doc)
	}
	return nil
}

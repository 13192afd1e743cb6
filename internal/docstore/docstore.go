// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package docstore holds the id-to-document mapping the core index is
// deliberately opaque to. Documents are arbitrary JSON objects; dotted
// schema paths are resolved against them with gjson/sjson rather than
// reflection, since the document shape is only known at runtime via the
// schema.
package docstore

import (
	"encoding/json"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Store holds raw documents keyed by internal id.
type Store struct {
	docs map[int][]byte
}

// New returns an empty document store.
func New() *Store {
	return &Store{docs: make(map[int][]byte)}
}

// Put stores doc (an arbitrary JSON-shaped map) under id, replacing any
// previous document.
func (s *Store) Put(id int, doc map[string]any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	s.docs[id] = raw
	return nil
}

// Get returns the document stored under id, decoded back into a map.
func (s *Store) Get(id int) (map[string]any, bool) {
	raw, ok := s.docs[id]
	if !ok {
		return nil, false
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false
	}
	return doc, true
}

// Remove deletes the document stored under id.
func (s *Store) Remove(id int) {
	delete(s.docs, id)
}

// Len returns how many documents are currently stored.
func (s *Store) Len() int {
	return len(s.docs)
}

// ResolveString reads the string value at dotted path from id's document.
func (s *Store) ResolveString(id int, path string) (string, bool) {
	raw, ok := s.docs[id]
	if !ok {
		return "", false
	}
	res := gjson.GetBytes(raw, path)
	if !res.Exists() {
		return "", false
	}
	return res.String(), true
}

// ResolveStringArray reads a string[] value at dotted path from id's
// document.
func (s *Store) ResolveStringArray(id int, path string) ([]string, bool) {
	raw, ok := s.docs[id]
	if !ok {
		return nil, false
	}
	res := gjson.GetBytes(raw, path)
	if !res.Exists() || !res.IsArray() {
		return nil, false
	}
	var out []string
	for _, v := range res.Array() {
		out = append(out, v.String())
	}
	return out, true
}

// ResolveNumber reads the numeric value at dotted path from id's
// document.
func (s *Store) ResolveNumber(id int, path string) (float64, bool) {
	raw, ok := s.docs[id]
	if !ok {
		return 0, false
	}
	res := gjson.GetBytes(raw, path)
	if !res.Exists() {
		return 0, false
	}
	return res.Float(), true
}

// ResolveNumberArray reads a number[] value at dotted path from id's
// document.
func (s *Store) ResolveNumberArray(id int, path string) ([]float64, bool) {
	raw, ok := s.docs[id]
	if !ok {
		return nil, false
	}
	res := gjson.GetBytes(raw, path)
	if !res.Exists() || !res.IsArray() {
		return nil, false
	}
	var out []float64
	for _, v := range res.Array() {
		out = append(out, v.Float())
	}
	return out, true
}

// ResolveBool reads the boolean value at dotted path from id's document.
func (s *Store) ResolveBool(id int, path string) (bool, bool) {
	raw, ok := s.docs[id]
	if !ok {
		return false, false
	}
	res := gjson.GetBytes(raw, path)
	if !res.Exists() {
		return false, false
	}
	return res.Bool(), true
}

// ResolveBoolArray reads a boolean[] value at dotted path from id's
// document.
func (s *Store) ResolveBoolArray(id int, path string) ([]bool, bool) {
	raw, ok := s.docs[id]
	if !ok {
		return nil, false
	}
	res := gjson.GetBytes(raw, path)
	if !res.Exists() || !res.IsArray() {
		return nil, false
	}
	var out []bool
	for _, v := range res.Array() {
		out = append(out, v.Bool())
	}
	return out, true
}

// Export returns the raw stored documents keyed by internal id, for
// serialization. The returned messages alias the store's buffers; the
// caller must not mutate them.
func (s *Store) Export() map[int]json.RawMessage {
	out := make(map[int]json.RawMessage, len(s.docs))
	for id, raw := range s.docs {
		out[id] = json.RawMessage(raw)
	}
	return out
}

// Restore replaces the store's contents with previously Exported
// documents.
func (s *Store) Restore(docs map[int]json.RawMessage) {
	s.docs = make(map[int][]byte, len(docs))
	for id, raw := range docs {
		s.docs[id] = []byte(raw)
	}
}

// SetField rewrites the value at dotted path in id's stored document,
// used by partial-update style callers that only want to touch one
// property without re-marshaling the whole document by hand.
func (s *Store) SetField(id int, path string, value any) error {
	raw, ok := s.docs[id]
	if !ok {
		return errNoSuchDocument(id)
	}
	updated, err := sjson.SetBytes(raw, path, value)
	if err != nil {
		return err
	}
	s.docs[id] = updated
	return nil
}

type errNoSuchDocument int

func (e errNoSuchDocument) Error() string {
	return "docstore: no document with internal id"
}

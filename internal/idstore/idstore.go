// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package idstore interns external document ids into the dense,
// non-zero internal integers every other index structure keys on. The
// mapping is stable across Save/Load and never reuses an id after
// removal.
package idstore

// Store maps external document ids (caller-supplied strings, typically
// UUIDs) to dense internal integer ids. The zero value is not usable;
// construct with New.
type Store struct {
	externalToInternal map[string]int
	internalToExternal map[int]string
	next               int
}

// New returns an empty id store. Internal ids are minted starting at 1;
// 0 is reserved to mean "no such document".
func New() *Store {
	return &Store{
		externalToInternal: make(map[string]int),
		internalToExternal: make(map[int]string),
		next:               1,
	}
}

// Intern returns the internal id for external, minting a new one on
// first sight.
func (s *Store) Intern(external string) int {
	if id, ok := s.externalToInternal[external]; ok {
		return id
	}
	id := s.next
	s.next++
	s.externalToInternal[external] = id
	s.internalToExternal[id] = external
	return id
}

// Lookup returns the internal id already assigned to external, if any.
func (s *Store) Lookup(external string) (int, bool) {
	id, ok := s.externalToInternal[external]
	return id, ok
}

// External returns the external id an internal id was minted from.
func (s *Store) External(internal int) (string, bool) {
	ext, ok := s.internalToExternal[internal]
	return ext, ok
}

// Remove forgets external (and its internal id). The internal id is
// never reassigned to a different external id afterward, since next
// only ever increases.
func (s *Store) Remove(external string) {
	id, ok := s.externalToInternal[external]
	if !ok {
		return
	}
	delete(s.externalToInternal, external)
	delete(s.internalToExternal, id)
}

// Len returns the number of currently-interned external ids.
func (s *Store) Len() int {
	return len(s.externalToInternal)
}

// Snapshot is the serializable form used by Save/Load.
type Snapshot struct {
	ExternalToInternal map[string]int `json:"internalIdByExternalId"`
	Next               int            `json:"nextInternalId"`
}

// Export returns a serializable copy of the store's state.
func (s *Store) Export() Snapshot {
	cp := make(map[string]int, len(s.externalToInternal))
	for k, v := range s.externalToInternal {
		cp[k] = v
	}
	return Snapshot{ExternalToInternal: cp, Next: s.next}
}

// Restore replaces the store's state with a previously-taken Snapshot.
func (s *Store) Restore(external map[string]int, next int) {
	s.externalToInternal = make(map[string]int, len(external))
	s.internalToExternal = make(map[int]string, len(external))
	for ext, id := range external {
		s.externalToInternal[ext] = id
		s.internalToExternal[id] = ext
	}
	s.next = next
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package boolindex implements the two-bucket boolean index: an ordered
// slice of ids for true and one for false, since a boolean property
// only ever has two possible values.
package boolindex

import "sort"

// Index holds the ids whose property value is true and false,
// respectively, each kept in ascending sorted order.
type Index struct {
	trueIDs  []int
	falseIDs []int
}

// New returns an empty boolean index.
func New() *Index {
	return &Index{}
}

// Insert records id under value.
func (idx *Index) Insert(value bool, id int) {
	if value {
		idx.trueIDs = insertSorted(idx.trueIDs, id)
	} else {
		idx.falseIDs = insertSorted(idx.falseIDs, id)
	}
}

// Remove drops id from whichever bucket it's in. value must match the
// bucket id was originally inserted under.
func (idx *Index) Remove(value bool, id int) {
	if value {
		idx.trueIDs = removeSorted(idx.trueIDs, id)
	} else {
		idx.falseIDs = removeSorted(idx.falseIDs, id)
	}
}

// Find returns the bucket (true or false) matching value, in ascending
// order. The returned slice is owned by the index; callers must not
// mutate it.
func (idx *Index) Find(value bool) []int {
	if value {
		return idx.trueIDs
	}
	return idx.falseIDs
}

// Count returns how many ids are recorded under value.
func (idx *Index) Count(value bool) int {
	return len(idx.Find(value))
}

// Export returns copies of both buckets for serialization.
func (idx *Index) Export() (trueIDs, falseIDs []int) {
	return append([]int{}, idx.trueIDs...), append([]int{}, idx.falseIDs...)
}

// Restore replaces both buckets with the given id lists, re-sorting in
// case the serialized form was produced elsewhere.
func (idx *Index) Restore(trueIDs, falseIDs []int) {
	idx.trueIDs = append([]int{}, trueIDs...)
	idx.falseIDs = append([]int{}, falseIDs...)
	sort.Ints(idx.trueIDs)
	sort.Ints(idx.falseIDs)
}

func insertSorted(ids []int, id int) []int {
	i := sort.SearchInts(ids, id)
	if i < len(ids) && ids[i] == id {
		return ids
	}
	ids = append(ids, 0)
	copy(ids[i+1:], ids[i:])
	ids[i] = id
	return ids
}

func removeSorted(ids []int, id int) []int {
	i := sort.SearchInts(ids, id)
	if i >= len(ids) || ids[i] != id {
		return ids
	}
	return append(ids[:i], ids[i+1:]...)
}

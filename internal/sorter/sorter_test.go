// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package sorter

import (
	"reflect"
	"testing"
)

func TestSortByNumericAscAndDesc(t *testing.T) {
	s := New([]string{"views"}, true)
	s.Insert("views", 1, 30.0, "english")
	s.Insert("views", 2, 10.0, "english")
	s.Insert("views", 3, 20.0, "english")

	asc, err := s.SortBy([]int{1, 2, 3}, "views", Asc)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(asc, []int{2, 3, 1}) {
		t.Fatalf("got %v, want [2 3 1]", asc)
	}

	desc, err := s.SortBy([]int{1, 2, 3}, "views", Desc)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(desc, []int{1, 3, 2}) {
		t.Fatalf("got %v, want [1 3 2]", desc)
	}
}

func TestSortByStringLocaleAware(t *testing.T) {
	s := New([]string{"title"}, true)
	s.Insert("title", 1, "banana", "english")
	s.Insert("title", 2, "apple", "english")
	s.Insert("title", 3, "cherry", "english")

	got, err := s.SortBy([]int{1, 2, 3}, "title", Asc)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []int{2, 1, 3}) {
		t.Fatalf("got %v, want [2 1 3]", got)
	}
}

func TestSortByUntrackedIdsSortLast(t *testing.T) {
	s := New([]string{"views"}, true)
	s.Insert("views", 1, 10.0, "english")

	got, err := s.SortBy([]int{5, 1, 6}, "views", Asc)
	if err != nil {
		t.Fatal(err)
	}
	// 5 and 6 were never indexed under "views"; they keep their relative
	// input order and sort after the one tracked id.
	if !reflect.DeepEqual(got, []int{1, 5, 6}) {
		t.Fatalf("got %v, want [1 5 6]", got)
	}
}

func TestRemoveIsDeferredAndReflectedOnNextSort(t *testing.T) {
	s := New([]string{"views"}, true)
	s.Insert("views", 1, 10.0, "english")
	s.Insert("views", 2, 20.0, "english")
	s.Insert("views", 3, 30.0, "english")

	s.Remove("views", 2)

	got, err := s.SortBy([]int{1, 2, 3}, "views", Asc)
	if err != nil {
		t.Fatal(err)
	}
	// id 2 was removed from the property's tracked set, so it now sorts
	// as untracked (last), even though it's still present in docIDs.
	if !reflect.DeepEqual(got, []int{1, 3, 2}) {
		t.Fatalf("got %v, want [1 3 2]", got)
	}
}

func TestSortDisabledError(t *testing.T) {
	s := New([]string{"views"}, false)
	s.Insert("views", 1, 10.0, "english")
	_, err := s.SortBy([]int{1}, "views", Asc)
	if _, ok := err.(ErrSortDisabled); !ok {
		t.Fatalf("expected ErrSortDisabled, got %v", err)
	}
}

func TestSortUnknownFieldError(t *testing.T) {
	s := New([]string{"views"}, true)
	_, err := s.SortBy([]int{1}, "nonexistent", Asc)
	if _, ok := err.(ErrUnknownField); !ok {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestInsertOnUnsortablePropertyIsNoop(t *testing.T) {
	s := New([]string{"views"}, true)
	s.Insert("not-sortable", 1, 10.0, "english")
	_, err := s.SortBy([]int{1}, "not-sortable", Asc)
	if _, ok := err.(ErrUnknownField); !ok {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

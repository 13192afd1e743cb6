// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package schema parses and flattens the schema a database is created
// with into a flat map of dotted property path to scalar type,
// rejecting unsupported shapes.
package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Type is one of the scalar/array types a property path can hold.
type Type string

const (
	String      Type = "string"
	Number      Type = "number"
	Boolean     Type = "boolean"
	StringArray Type = "string[]"
	NumberArray Type = "number[]"
	BoolArray   Type = "boolean[]"
)

// IsArray reports whether t is one of the array variants.
func (t Type) IsArray() bool {
	switch t {
	case StringArray, NumberArray, BoolArray:
		return true
	}
	return false
}

// Scalar returns the element type dispatched to for array types, and
// itself for scalar types.
func (t Type) Scalar() Type {
	switch t {
	case StringArray:
		return String
	case NumberArray:
		return Number
	case BoolArray:
		return Boolean
	default:
		return t
	}
}

// Raw is the schema as supplied by the caller: property name to either a
// Type string, or a nested map describing a sub-schema.
type Raw map[string]any

// FieldError is returned when a raw schema entry cannot be flattened —
// arrays of object, or any value that is not a string type name or a
// nested map.
type FieldError struct {
	Path string
	Type string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid schema type %q for property %q", e.Type, e.Path)
}

// Flattened is the result of Flatten: ordered dotted paths with their
// scalar/array type, plus the subset of paths typed string or string[]
// (the full-text searchable ones).
type Flattened struct {
	Paths       []string
	Types       map[string]Type
	StringPaths []string
}

// Flatten walks raw, turning nested sub-schemas into dotted paths.
// Array types share the scalar element's index structure, so they keep
// a single flattened entry. It returns a *FieldError for any property
// typed as an array of object or an unrecognized scalar name.
func Flatten(raw Raw) (*Flattened, error) {
	out := &Flattened{Types: make(map[string]Type)}
	if err := flattenInto(raw, "", out); err != nil {
		return nil, err
	}
	sort.Strings(out.Paths)
	sort.Strings(out.StringPaths)
	return out, nil
}

func flattenInto(raw Raw, prefix string, out *Flattened) error {
	for name, v := range raw {
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}
		switch val := v.(type) {
		case string:
			t, ok := parseType(val)
			if !ok {
				return &FieldError{Path: path, Type: val}
			}
			out.Paths = append(out.Paths, path)
			out.Types[path] = t
			if t == String || t == StringArray {
				out.StringPaths = append(out.StringPaths, path)
			}
		case Raw:
			if err := flattenInto(val, path, out); err != nil {
				return err
			}
		case map[string]any:
			if err := flattenInto(Raw(val), path, out); err != nil {
				return err
			}
		default:
			return &FieldError{Path: path, Type: fmt.Sprintf("%T", v)}
		}
	}
	return nil
}

func parseType(s string) (Type, bool) {
	switch Type(s) {
	case String, Number, Boolean, StringArray, NumberArray, BoolArray:
		return Type(s), true
	}
	return "", false
}

// SortableFields returns the flattened paths that are sortable (scalar,
// non-array), minus unsortable.
func (f *Flattened) SortableFields(unsortable []string) []string {
	skip := make(map[string]bool, len(unsortable))
	for _, p := range unsortable {
		skip[p] = true
	}
	var out []string
	for _, p := range f.Paths {
		if f.Types[p].IsArray() || skip[p] {
			continue
		}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// ResolvePath returns the type at the given dotted path and whether it
// exists in the schema.
func (f *Flattened) ResolvePath(path string) (Type, bool) {
	t, ok := f.Types[path]
	return t, ok
}

// String renders a human-readable summary, used by CLI `describe`.
func (f *Flattened) String() string {
	var b strings.Builder
	for _, p := range f.Paths {
		fmt.Fprintf(&b, "%s: %s\n", p, f.Types[p])
	}
	return b.String()
}

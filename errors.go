// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package oramago

import "fmt"

// Error codes returned by oramago. These are stable strings so callers can
// switch on Error.Code without string-matching the formatted message.
const (
	CodeLanguageNotSupported          = "LANGUAGE_NOT_SUPPORTED"
	CodeInvalidSchemaType             = "INVALID_SCHEMA_TYPE"
	CodeInvalidSortSchemaType         = "INVALID_SORT_SCHEMA_TYPE"
	CodeUnknownFilterProperty         = "UNKNOWN_FILTER_PROPERTY"
	CodeInvalidFilterOperation        = "INVALID_FILTER_OPERATION"
	CodeSortDisabled                  = "SORT_DISABLED"
	CodeUnableToSortOnUnknownField    = "UNABLE_TO_SORT_ON_UNKNOWN_FIELD"
	CodeComponentMustBeFunction       = "COMPONENT_MUST_BE_FUNCTION"
	CodeComponentMustBeFunctionOrList = "COMPONENT_MUST_BE_FUNCTION_OR_ARRAY_FUNCTIONS"
	CodeUnsupportedComponent          = "UNSUPPORTED_COMPONENT"
	CodeNoLanguageWithCustomTokenizer = "NO_LANGUAGE_WITH_CUSTOM_TOKENIZER"
)

// messages holds one format string per error code. %v verbs are filled in
// positional order from Error.Args.
var messages = map[string]string{
	CodeLanguageNotSupported:          "language %q is not supported",
	CodeInvalidSchemaType:             "invalid schema type %q for property %q",
	CodeInvalidSortSchemaType:         "property %q cannot be sorted: type %q is not sortable",
	CodeUnknownFilterProperty:         "unknown filter property %q",
	CodeInvalidFilterOperation:        "invalid filter operation on property %q: %v",
	CodeSortDisabled:                  "sorting is disabled on this database",
	CodeUnableToSortOnUnknownField:    "cannot sort on unknown or unsortable field %q",
	CodeComponentMustBeFunction:       "component %q must be a function",
	CodeComponentMustBeFunctionOrList: "component %q must be a function or an array of functions",
	CodeUnsupportedComponent:          "component %q is not supported",
	CodeNoLanguageWithCustomTokenizer: "cannot set a language when a custom tokenizer instance is supplied",
}

// Error is the single error type surfaced by oramago. It carries a stable
// Code plus the positional Args used to render Message.
type Error struct {
	Code string
	Args []any
}

// NewError constructs an *Error for code with the given positional args.
func NewError(code string, args ...any) *Error {
	return &Error{Code: code, Args: args}
}

// Error implements the error interface.
func (e *Error) Error() string {
	format, ok := messages[e.Code]
	if !ok {
		return e.Code
	}
	return fmt.Sprintf(format, e.Args...)
}

// Is supports errors.Is(err, oramago.NewError(code)) by comparing codes only.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

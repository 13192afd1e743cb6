// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	oramago "github.com/aleutian-labs/oramago"
	"github.com/aleutian-labs/oramago/internal/sorter"
)

// Flag values for the search command.
var (
	searchLimit      int
	searchOffset     int
	searchExact      bool
	searchTolerance  int
	searchMode       string
	searchWhere      string
	searchSortBy     string
	searchOrder      string
	searchProperties []string
	searchJSON       bool
)

var searchCmd = &cobra.Command{
	Use:   "search [term...]",
	Short: "Search the configured database",
	RunE:  runSearchCommand,
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "maximum hits to return (0 uses the configured default)")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "hits to skip before the first returned one")
	searchCmd.Flags().BoolVar(&searchExact, "exact", false, "match whole terms only, no prefix expansion")
	searchCmd.Flags().IntVar(&searchTolerance, "tolerance", 0, "maximum edit distance for fuzzy matching")
	searchCmd.Flags().StringVar(&searchMode, "mode", "or", "multi-term combination: or | and")
	searchCmd.Flags().StringVar(&searchWhere, "where", "", `filter clause as JSON, e.g. '{"price":{"lte":50},"inStock":true}'`)
	searchCmd.Flags().StringVar(&searchSortBy, "sort-by", "", "property to sort hits by instead of score")
	searchCmd.Flags().StringVar(&searchOrder, "order", "ASC", "sort direction: ASC | DESC")
	searchCmd.Flags().StringSliceVar(&searchProperties, "properties", nil, "restrict the text search to these properties")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "emit the raw result envelope as JSON")
}

func runSearchCommand(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}

	params := oramago.SearchParams{
		Term:       strings.Join(args, " "),
		Properties: searchProperties,
		Exact:      searchExact,
		Tolerance:  searchTolerance,
		Limit:      searchLimit,
		Offset:     searchOffset,
	}
	if params.Limit == 0 {
		params.Limit = cfg.Limit
	}
	if strings.EqualFold(searchMode, "and") {
		params.Mode = oramago.ModeAnd
	}
	if searchWhere != "" {
		var where map[string]any
		if err := json.Unmarshal([]byte(searchWhere), &where); err != nil {
			return fmt.Errorf("parse --where: %w", err)
		}
		params.Where = where
	}
	if searchSortBy != "" {
		order := sorter.Asc
		if strings.EqualFold(searchOrder, string(sorter.Desc)) {
			order = sorter.Desc
		}
		params.SortBy = &oramago.SortByParams{Property: searchSortBy, Order: order}
	}

	res, err := db.Search(cmd.Context(), params)
	if err != nil {
		return err
	}

	if searchJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	renderResult(cmd.OutOrStdout(), res)
	return nil
}

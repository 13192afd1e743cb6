// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	oramago "github.com/aleutian-labs/oramago"
	"github.com/aleutian-labs/oramago/internal/tokenizer"
)

var docsPath string

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build (or extend) a database file from a JSON document file or directory",
	RunE:  runIndexCommand,
}

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Print the flattened schema of the configured database",
	RunE:  runDescribeCommand,
}

func init() {
	indexCmd.Flags().StringVar(&docsPath, "docs", "", "JSON document file (array of objects) or a directory of .json files")
	_ = indexCmd.MarkFlagRequired("docs")
}

// openDB creates an engine from the configured schema and, when the
// database file already exists, loads its saved state.
func openDB() (*oramago.DB, error) {
	raw, err := LoadSchemaFile(cfg.SchemaFile)
	if err != nil {
		return nil, err
	}
	db, err := oramago.Create(oramago.CreateParams{
		Schema:   raw,
		Language: tokenizer.Language(cfg.Language),
	})
	if err != nil {
		return nil, err
	}
	if cfg.DBFile != "" {
		if _, statErr := os.Stat(cfg.DBFile); statErr == nil {
			if err := db.LoadFile(cfg.DBFile); err != nil {
				return nil, fmt.Errorf("load %s: %w", cfg.DBFile, err)
			}
		}
	}
	return db, nil
}

func runIndexCommand(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}

	count, err := indexPath(cmd.Context(), db, docsPath)
	if err != nil {
		return err
	}
	slog.Info("indexed documents", "count", count, "source", docsPath)

	if cfg.DBFile == "" {
		return fmt.Errorf("no database file configured; pass --db or set db_file")
	}
	if err := db.SaveFile(cfg.DBFile); err != nil {
		return err
	}
	fmt.Printf("Indexed %d documents into %s\n", count, cfg.DBFile)
	return nil
}

// indexPath inserts every document found at path: a single JSON file
// holding an array of objects, or a directory of .json files each
// holding one object or an array.
func indexPath(ctx context.Context, db *oramago.DB, path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return indexFile(ctx, db, path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		n, err := indexFile(ctx, db, filepath.Join(path, e.Name()))
		if err != nil {
			return total, fmt.Errorf("%s: %w", e.Name(), err)
		}
		total += n
	}
	return total, nil
}

func indexFile(ctx context.Context, db *oramago.DB, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	docs, err := decodeDocuments(data)
	if err != nil {
		return 0, err
	}
	inserted, err := db.InsertMultiple(ctx, docs)
	return len(inserted), err
}

func decodeDocuments(data []byte) ([]map[string]any, error) {
	var docs []map[string]any
	if err := json.Unmarshal(data, &docs); err == nil {
		return docs, nil
	}
	var single map[string]any
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("expected a JSON object or array of objects: %w", err)
	}
	return []map[string]any{single}, nil
}

func runDescribeCommand(_ *cobra.Command, _ []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	fmt.Print(db.Schema().String())
	return nil
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	oramago "github.com/aleutian-labs/oramago"
	"github.com/aleutian-labs/oramago/internal/tokenizer"
)

var (
	watchDir      string
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the database file in sync with a directory of JSON documents",
	Long: `watch indexes every .json file in the directory, saves the database,
then re-indexes from scratch and saves again whenever a file changes.
A full rebuild keeps removals simple: deleting a document file removes
its documents on the next rebuild.`,
	RunE: runWatchCommand,
}

func init() {
	watchCmd.Flags().StringVar(&watchDir, "dir", "", "directory of .json document files to watch")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "quiet period before a rebuild after a change")
	_ = watchCmd.MarkFlagRequired("dir")
}

func runWatchCommand(cmd *cobra.Command, _ []string) error {
	if cfg.DBFile == "" {
		return fmt.Errorf("no database file configured; pass --db or set db_file")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rebuild(ctx); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(watchDir); err != nil {
		return err
	}
	slog.Info("watching for changes", "dir", watchDir, "db", cfg.DBFile)

	var timer *time.Timer
	pending := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// Debounce: editors fire several events per save.
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "error", err)
		case <-pending:
			if err := rebuild(ctx); err != nil {
				slog.Error("rebuild failed", "error", err)
			}
		}
	}
}

// rebuild indexes the watched directory into a fresh database and saves
// it over the configured file.
func rebuild(ctx context.Context) error {
	raw, err := LoadSchemaFile(cfg.SchemaFile)
	if err != nil {
		return err
	}
	db, err := oramago.Create(oramago.CreateParams{
		Schema:   raw,
		Language: tokenizer.Language(cfg.Language),
	})
	if err != nil {
		return err
	}
	count, err := indexPath(ctx, db, watchDir)
	if err != nil {
		return err
	}
	if err := db.SaveFile(cfg.DBFile); err != nil {
		return err
	}
	slog.Info("database rebuilt", "documents", count, "db", cfg.DBFile)
	return nil
}

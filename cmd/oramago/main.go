// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// oramago is the command-line front end for the embeddable search
// engine: build an index from a schema and a set of JSON documents,
// search it, and keep it in sync with a document directory.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Flag values shared across subcommands.
var (
	configPath string
	schemaPath string
	dbPath     string
	langFlag   string
)

var cfg Config

var rootCmd = &cobra.Command{
	Use:           "oramago",
	Short:         "In-memory full-text search over schema-typed JSON documents",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = LoadConfig(configPath)
		if err != nil {
			return err
		}
		// Flags override config-file values.
		if schemaPath != "" {
			cfg.SchemaFile = schemaPath
		}
		if dbPath != "" {
			cfg.DBFile = dbPath
		}
		if langFlag != "" {
			cfg.Language = langFlag
		}
		return nil
	},
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	shutdown := initTracing(context.Background())
	defer shutdown()

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&schemaPath, "schema", "", "path to the YAML schema file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the saved database file")
	rootCmd.PersistentFlags().StringVar(&langFlag, "language", "", "tokenizer language (default english)")

	rootCmd.AddCommand(indexCmd, searchCmd, describeCmd, watchCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// initTracing installs a local tracer provider so the engine's spans are
// collected when the host wires an exporter; without one the provider is
// a cheap no-op sink.
func initTracing(ctx context.Context) func() {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName("oramago-cli")),
	)
	if err != nil {
		slog.Warn("otel resource init failed", "error", err)
		return func() {}
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)
	return func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			slog.Warn("tracer provider shutdown failed", "error", err)
		}
	}
}

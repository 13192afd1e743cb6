// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// oramago-mcp exposes one oramago database as MCP tools over stdio, so
// an agent can insert documents and search them. The schema is loaded at
// startup; the database lives in memory for the lifetime of the server
// and is optionally persisted to a state file on every mutation.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/yaml.v3"

	oramago "github.com/aleutian-labs/oramago"
	"github.com/aleutian-labs/oramago/internal/schema"
	"github.com/aleutian-labs/oramago/internal/sorter"
	"github.com/aleutian-labs/oramago/internal/tokenizer"
)

const version = "0.1.0"

func main() {
	schemaPath := flag.String("schema", "", "YAML schema file for the database (required)")
	statePath := flag.String("state", "", "optional state file to load at startup and save after every mutation")
	language := flag.String("language", "english", "tokenizer language")
	flag.Parse()

	if *schemaPath == "" {
		fmt.Fprintln(os.Stderr, "oramago-mcp: --schema is required")
		os.Exit(2)
	}

	db, err := openDatabase(*schemaPath, *statePath, *language)
	if err != nil {
		log.Fatalf("oramago-mcp: %v", err)
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "oramago-mcp",
		Version: version,
	}, nil)
	registerTools(server, db, *statePath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Fatalf("server error: %v", err)
	}
}

func openDatabase(schemaPath, statePath, language string) (*oramago.DB, error) {
	data, err := os.ReadFile(schemaPath)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", schemaPath, err)
	}
	db, err := oramago.Create(oramago.CreateParams{
		Schema:   schema.Raw(raw),
		Language: tokenizer.Language(language),
	})
	if err != nil {
		return nil, err
	}
	if statePath != "" {
		if _, statErr := os.Stat(statePath); statErr == nil {
			if err := db.LoadFile(statePath); err != nil {
				return nil, fmt.Errorf("load state %s: %w", statePath, err)
			}
		}
	}
	return db, nil
}

// InsertArgs is the payload for the insert_document tool.
type InsertArgs struct {
	Document map[string]any `json:"document" jsonschema:"the document to index, matching the database schema"`
}

// RemoveArgs is the payload for the remove_document tool.
type RemoveArgs struct {
	ID string `json:"id" jsonschema:"external id of the document to remove"`
}

// SearchArgs is the payload for the search tool.
type SearchArgs struct {
	Term      string         `json:"term,omitempty" jsonschema:"free-text query"`
	Exact     bool           `json:"exact,omitempty" jsonschema:"match whole terms only"`
	Tolerance int            `json:"tolerance,omitempty" jsonschema:"maximum edit distance for fuzzy matching"`
	Limit     int            `json:"limit,omitempty" jsonschema:"maximum hits to return"`
	Offset    int            `json:"offset,omitempty" jsonschema:"hits to skip"`
	Where     map[string]any `json:"where,omitempty" jsonschema:"filter clause keyed by property path"`
	SortBy    string         `json:"sort_by,omitempty" jsonschema:"property to sort by instead of score"`
	Order     string         `json:"order,omitempty" jsonschema:"ASC or DESC, with sort_by"`
}

func registerTools(server *mcp.Server, db *oramago.DB, statePath string) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "insert_document",
		Description: "Insert one document into the search database",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args InsertArgs) (*mcp.CallToolResult, any, error) {
		id, err := db.Insert(ctx, args.Document)
		if err != nil {
			return nil, nil, err
		}
		persist(db, statePath)
		return textResult(fmt.Sprintf("inserted document %s", id)), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_document",
		Description: "Remove a document from the search database by its id",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args RemoveArgs) (*mcp.CallToolResult, any, error) {
		if err := db.Remove(ctx, args.ID); err != nil {
			return nil, nil, err
		}
		persist(db, statePath)
		return textResult(fmt.Sprintf("removed document %s", args.ID)), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search",
		Description: "Search the database by free text, filters, and sort",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
		params := oramago.SearchParams{
			Term:      args.Term,
			Exact:     args.Exact,
			Tolerance: args.Tolerance,
			Limit:     args.Limit,
			Offset:    args.Offset,
			Where:     args.Where,
		}
		if args.SortBy != "" {
			order := sorter.Asc
			if args.Order == string(sorter.Desc) {
				order = sorter.Desc
			}
			params.SortBy = &oramago.SortByParams{Property: args.SortBy, Order: order}
		}
		res, err := db.Search(ctx, params)
		if err != nil {
			return nil, nil, err
		}
		body, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return nil, nil, err
		}
		return textResult(string(body)), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "describe_schema",
		Description: "Show the flattened schema of the search database",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args struct{}) (*mcp.CallToolResult, any, error) {
		return textResult(db.Schema().String()), nil, nil
	})
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// persist best-effort saves the database after a mutation; the tool call
// already succeeded, so a save failure is logged rather than surfaced.
func persist(db *oramago.DB, statePath string) {
	if statePath == "" {
		return
	}
	if err := db.SaveFile(statePath); err != nil {
		slog.Warn("state save failed", "path", statePath, "error", err)
	}
}

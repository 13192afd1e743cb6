// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package main

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/aleutian-labs/oramago/internal/schema"
)

// Config carries the CLI's file-configurable settings. Flags override
// whatever the config file supplies.
type Config struct {
	SchemaFile string `koanf:"schema_file"`
	DBFile     string `koanf:"db_file"`
	Language   string `koanf:"language" validate:"omitempty,oneof=english french italian spanish portuguese dutch german swedish danish norwegian russian finnish"`
	Limit      int    `koanf:"limit" validate:"gte=0"`
	NoColor    bool   `koanf:"no_color"`
}

// DefaultConfig is the configuration used when no file is supplied.
func DefaultConfig() Config {
	return Config{Language: "english", Limit: 10}
}

var validate = validator.New()

// LoadConfig merges the YAML file at path (when non-empty) over the
// defaults and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		k := koanf.New(".")
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
		if err := k.Unmarshal("", &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadSchemaFile reads a YAML schema file into the raw schema shape the
// engine's Create accepts, e.g.:
//
//	title: string
//	price: number
//	meta:
//	  author: string
func LoadSchemaFile(path string) (schema.Raw, error) {
	if path == "" {
		return nil, fmt.Errorf("no schema file configured; pass --schema or set schema_file")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := yamlv3.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", path, err)
	}
	return schema.Raw(raw), nil
}

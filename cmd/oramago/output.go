// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	oramago "github.com/aleutian-labs/oramago"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	scoreStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	idStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	countStyle  = lipgloss.NewStyle().Faint(true)
)

// styledOutput reports whether the result table should carry ANSI
// styling: only when writing to a real terminal and color isn't
// disabled by config.
func styledOutput(w io.Writer) bool {
	if cfg.NoColor {
		return false
	}
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// renderResult prints a search result as a compact table: score, id, and
// the document body on one line each.
func renderResult(w io.Writer, res oramago.SearchResult) {
	styled := styledOutput(w)
	style := func(s lipgloss.Style, text string) string {
		if !styled {
			return text
		}
		return s.Render(text)
	}

	fmt.Fprintln(w, style(headerStyle, fmt.Sprintf("%-10s %-38s %s", "SCORE", "ID", "DOCUMENT")))
	for _, hit := range res.Hits {
		doc, err := json.Marshal(hit.Document)
		if err != nil {
			doc = []byte("<unrenderable>")
		}
		fmt.Fprintf(w, "%s %s %s\n",
			style(scoreStyle, fmt.Sprintf("%-10.4f", hit.Score)),
			style(idStyle, fmt.Sprintf("%-38s", hit.ID)),
			string(doc),
		)
	}
	fmt.Fprintln(w, style(countStyle, fmt.Sprintf("%d of %d hits in %s", len(res.Hits), res.Count, res.Elapsed)))
}

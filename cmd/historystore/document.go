package main

import (
	"path/filepath"
	"strings"

	"github.com/kasuganosora/historystore/pkg/config"
	"github.com/kasuganosora/historystore/pkg/document"
)

// loadDocument opens path as a Document, picking the adapter from its
// extension (spec §9 adapters: delimited-text, record-stream, spreadsheet).
func loadDocument(path string, cfg *config.Config) (document.Document, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".tsv":
		delim := cfg.Rune()
		if ext == ".tsv" {
			delim = '\t'
		}
		doc, err := document.NewCSVDocument(path, delim, true)
		if err != nil {
			return nil, err
		}
		if cfg.ExternalSortChunkRows > 0 {
			doc.ChunkRows = cfg.ExternalSortChunkRows
		}
		return doc, nil
	case ".jsonl", ".ndjson":
		return document.NewJSONLDocument(path)
	case ".xlsx":
		return document.NewExcelDocument(path, "")
	default:
		return nil, usagef("unrecognized file extension %q (want .csv, .tsv, .jsonl, or .xlsx)", filepath.Ext(path))
	}
}

func splitKey(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

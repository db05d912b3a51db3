// Package loader reads raw corpus files into documents for indexing.
// It is format-agnostic beyond plain and lightly structured text:
// .txt and .md are read verbatim, .csv as plain lines, and .json is
// pretty-printed so structured records remain searchable as text.
package loader

import (
	"encoding/json"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	apperrors "github.com/askdocs/askdocs/internal/errors"
)

// Document is one raw corpus file, keyed by its path relative to the
// corpus root. Immutable once produced; scoped to a single build pass.
type Document struct {
	SourceID string
	Text     string
}

// supportedExtensions lists the file types the loader ingests.
var supportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".csv":  true,
	".json": true,
}

// Load walks corpusDir and returns documents in deterministic (sorted
// path) order. Unreadable or malformed files are skipped with a warning;
// a missing corpus directory is a configuration error.
func Load(corpusDir string) ([]Document, error) {
	info, err := os.Stat(corpusDir)
	if err != nil {
		return nil, apperrors.ConfigError("corpus directory not found: "+corpusDir, err)
	}
	if !info.IsDir() {
		return nil, apperrors.ConfigError("corpus path is not a directory: "+corpusDir, nil)
	}

	var docs []Document
	err = filepath.WalkDir(corpusDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Hidden directories (.git and friends) are never part of a corpus.
			if path != corpusDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !supportedExtensions[ext] {
			return nil
		}

		rel, relErr := filepath.Rel(corpusDir, path)
		if relErr != nil {
			rel = path
		}

		text, readErr := readDocument(path, ext)
		if readErr != nil {
			slog.Warn("document_skipped",
				slog.String("path", rel),
				slog.String("error", readErr.Error()))
			return nil
		}

		docs = append(docs, Document{SourceID: rel, Text: text})
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeFileNotFound, err)
	}

	// WalkDir is already lexical, but sort explicitly: document order
	// determines passage identifiers, and those must be reproducible.
	sort.Slice(docs, func(i, j int) bool { return docs[i].SourceID < docs[j].SourceID })

	return docs, nil
}

// readDocument reads one file, normalizing JSON to indented text.
func readDocument(path, ext string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	if ext == ".json" {
		var obj any
		if err := json.Unmarshal(data, &obj); err != nil {
			return "", err
		}
		pretty, err := json.MarshalIndent(obj, "", "  ")
		if err != nil {
			return "", err
		}
		return string(pretty), nil
	}

	return string(data), nil
}

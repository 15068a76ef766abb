// Package fileutil discovers documents below a directory tree.
package fileutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultExcludeDirs are never descended into
var DefaultExcludeDirs = []string{"node_modules", "vendor"}

// ScanOptions configures FindDocuments
type ScanOptions struct {
	// Names are the accepted file names, compared case-insensitively
	// (e.g. "README.md"). Empty accepts any name with an accepted extension.
	Names []string
	// Extensions filters by extension when Names is empty (e.g. ".md")
	Extensions []string
	// ExcludeDirs are directory names to skip. Hidden directories are
	// always skipped.
	ExcludeDirs []string
	// MaxDepth limits how deep documents may be (0 = unlimited, 1 = root only)
	MaxDepth int
}

// Document is a file found by FindDocuments
type Document struct {
	Path string // Absolute path
	Rel  string // Slash-separated path relative to the root
	Dir  string // Slash-separated directory relative to the root ("." for the root)
}

// ScanResult contains the documents found and the non-fatal errors hit
type ScanResult struct {
	Documents []Document
	Errors    []error
}

// FindDocuments walks root and returns matching files sorted by relative
// path. Unreadable subdirectories are recorded in Errors and skipped.
func FindDocuments(root string, opts ScanOptions) (*ScanResult, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", root)
	}

	names := lowerSet(opts.Names, false)
	exts := lowerSet(opts.Extensions, true)
	exclude := make(map[string]bool)
	for _, d := range append(append([]string{}, DefaultExcludeDirs...), opts.ExcludeDirs...) {
		exclude[d] = true
	}

	result := &ScanResult{}
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("error accessing %s: %w", path, err))
			return nil
		}
		if path == absRoot {
			return nil
		}

		rel, _ := filepath.Rel(absRoot, path)
		depth := strings.Count(rel, string(filepath.Separator)) + 1

		if d.IsDir() {
			if exclude[d.Name()] || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if opts.MaxDepth > 0 && depth >= opts.MaxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		if !accept(d.Name(), names, exts) {
			return nil
		}
		slashRel := filepath.ToSlash(rel)
		result.Documents = append(result.Documents, Document{
			Path: path,
			Rel:  slashRel,
			Dir:  filepath.ToSlash(filepath.Dir(rel)),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	sort.Slice(result.Documents, func(i, j int) bool {
		return result.Documents[i].Rel < result.Documents[j].Rel
	})
	return result, nil
}

func accept(name string, names, exts map[string]bool) bool {
	lower := strings.ToLower(name)
	if len(names) > 0 {
		return names[lower]
	}
	if len(exts) > 0 {
		return exts[strings.ToLower(filepath.Ext(name))]
	}
	return true
}

func lowerSet(values []string, ext bool) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if ext && !strings.HasPrefix(v, ".") {
			v = "." + v
		}
		set[strings.ToLower(v)] = true
	}
	return set
}

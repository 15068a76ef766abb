package parser

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/harrison/simdem/internal/fileutil"
)

// tocEntry is a document discovered below the table-of-contents root
type tocEntry struct {
	dir   string // Slash-separated directory relative to the root
	path  string // Slash-separated document path relative to the root
	title string
}

// GenerateTOC synthesizes an index document listing the README.md and
// script.md files found in subdirectories of root. Entries are grouped by
// directory and sorted by directory name; every entry is a next step.
func GenerateTOC(root string) ([]string, error) {
	entries, err := discoverDocuments(root)
	if err != nil {
		return nil, err
	}

	lines := []string{
		"# Welcome to SimDem\n",
		fmt.Sprintf("Below is an autogenerated list of scripts available in `%s` and its subdirectories. You can execute any of them from here.\n", root),
		"\n",
		"# Next Steps\n",
	}
	for i, e := range entries {
		lines = append(lines, fmt.Sprintf("  %d. [%s / %s](%s)\n", i+1, e.dir, e.title, e.path))
	}
	return lines, nil
}

func discoverDocuments(root string) ([]tocEntry, error) {
	result, err := fileutil.FindDocuments(root, fileutil.ScanOptions{
		Names: []string{"README.md", "script.md"},
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	md := goldmark.New()
	var entries []tocEntry
	for _, doc := range result.Documents {
		if doc.Dir == "." {
			// documents at the root are the ones being replaced by the index
			continue
		}
		entries = append(entries, tocEntry{
			dir:   doc.Dir,
			path:  doc.Rel,
			title: documentTitle(md, doc.Path),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].dir != entries[j].dir {
			return entries[i].dir < entries[j].dir
		}
		return entries[i].path < entries[j].path
	})
	return entries, nil
}

// documentTitle returns the text of the first heading in a markdown file,
// falling back to the file name.
func documentTitle(md goldmark.Markdown, path string) string {
	source, err := os.ReadFile(path)
	if err != nil {
		return filepath.Base(path)
	}

	doc := md.Parser().Parse(text.NewReader(source))
	var title string
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if heading, ok := n.(*ast.Heading); ok {
			title = extractText(heading, source)
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})

	if title = strings.TrimSpace(title); title == "" {
		return filepath.Base(path)
	}
	return title
}

// extractText extracts plain text from an AST node
func extractText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
		} else {
			buf.WriteString(extractText(c, source))
		}
	}
	return buf.String()
}

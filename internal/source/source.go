// Package source loads document lines from the local filesystem or a URL.
package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// TestPlanFile lists the documents to concatenate when running tests
const TestPlanFile = "test_plan.txt"

// ErrMissingDocument indicates the requested document does not exist
var ErrMissingDocument = errors.New("document not found")

// Logger receives diagnostic messages from the loader
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
}

// Loader resolves (directory, filename) pairs to document lines
type Loader struct {
	client *http.Client
	logger Logger
}

// NewLoader creates a Loader. Remote fetches honor HTTP_PROXY/HTTPS_PROXY and
// ALL_PROXY (SOCKS5) from the environment.
func NewLoader(logger Logger) *Loader {
	return &Loader{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				Proxy:       http.ProxyFromEnvironment,
				DialContext: proxy.Dial,
			},
		},
		logger: logger,
	}
}

// NewLoaderWithClient creates a Loader using the given HTTP client
func NewLoaderWithClient(client *http.Client, logger Logger) *Loader {
	return &Loader{client: client, logger: logger}
}

// IsURL reports whether p names a remote document
func IsURL(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

// Join resolves rel against a script directory, which may be a URL
func Join(base, rel string) string {
	if IsURL(rel) {
		return rel
	}
	if IsURL(base) {
		u, err := url.Parse(base)
		if err != nil {
			return strings.TrimSuffix(base, "/") + "/" + rel
		}
		if strings.HasPrefix(rel, "/") {
			u.Path = path.Clean(rel)
		} else {
			u.Path = path.Join(u.Path, rel)
		}
		return u.String()
	}
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel)
	}
	return filepath.Join(base, filepath.FromSlash(rel))
}

// Split resolves a slash-separated href against base and returns the
// directory and file name of the target.
func Split(base, href string) (dir, file string) {
	full := Join(base, href)
	if IsURL(full) {
		idx := strings.LastIndex(full, "/")
		return full[:idx], full[idx+1:]
	}
	return filepath.Dir(full), filepath.Base(full)
}

// ResolvePrerequisite splits a normalized prerequisite href into directory
// and file. Hrefs starting with "." are relative to dir; others are used as
// given, relative to the working directory.
func ResolvePrerequisite(dir, href string) (string, string) {
	if strings.HasPrefix(href, ".") {
		return Split(dir, href)
	}
	if IsURL(href) {
		return Split("", href)
	}
	d, f := path.Split(href)
	if d == "" {
		d = "."
	}
	return path.Clean(d), f
}

// Location returns the display/identity path of a document
func Location(dir, filename string) string {
	return Join(dir, filename)
}

// Load returns the lines of the document at dir/filename. When testing is
// set and dir contains a test plan, the documents it lists are concatenated
// instead. Lines keep their trailing newline.
func (l *Loader) Load(ctx context.Context, dir, filename string, testing bool) ([]string, error) {
	if testing && !IsURL(dir) {
		lines, ok, err := l.loadTestPlan(ctx, dir)
		if err != nil {
			return nil, err
		}
		if ok {
			return lines, nil
		}
	}

	loc := Location(dir, filename)
	l.info(fmt.Sprintf("Reading lines from %s", loc))
	if IsURL(loc) {
		return l.fetch(ctx, loc)
	}
	return readLines(loc)
}

// loadTestPlan concatenates the documents named in dir/test_plan.txt.
// Blank lines and lines starting with # are ignored.
func (l *Loader) loadTestPlan(ctx context.Context, dir string) ([]string, bool, error) {
	planPath := filepath.Join(dir, TestPlanFile)
	planLines, err := readLines(planPath)
	if errors.Is(err, ErrMissingDocument) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	l.info(fmt.Sprintf("Executing test plan in %s", planPath))
	var lines []string
	for _, entry := range planLines {
		entry = strings.TrimSpace(entry)
		if entry == "" || strings.HasPrefix(entry, "#") {
			continue
		}
		l.debug(fmt.Sprintf("Including %s in tests.", entry))
		docLines, err := readLines(filepath.Join(dir, filepath.FromSlash(entry)))
		if err != nil {
			return nil, false, fmt.Errorf("test plan entry %s: %w", entry, err)
		}
		l.debug(fmt.Sprintf("Added %d lines.", len(docLines)))
		lines = append(lines, docLines...)
	}
	return lines, true, nil
}

func (l *Loader) fetch(ctx context.Context, loc string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc, nil)
	if err != nil {
		return nil, fmt.Errorf("create request for %s: %w", loc, err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", loc, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrMissingDocument, loc)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", loc, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", loc, err)
	}
	return SplitLines(string(data)), nil
}

func readLines(p string) ([]string, error) {
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingDocument, p)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", p, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrMissingDocument, p)
	}

	var lines []string
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			lines = append(lines, line)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
	}
	return lines, nil
}

// SplitLines splits text into lines that keep their trailing newline
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func (l *Loader) info(msg string) {
	if l.logger != nil {
		l.logger.LogInfo(msg)
	}
}

func (l *Loader) debug(msg string) {
	if l.logger != nil {
		l.logger.LogDebug(msg)
	}
}

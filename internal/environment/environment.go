// Package environment loads the variables a document's commands run with.
//
// A script directory may carry env.json, checked in with defaults, and
// env.local.json with per-machine overrides. In test mode env.test.json is
// applied last so automated runs can pin values.
package environment

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const (
	DefaultFile = "env.json"
	LocalFile   = "env.local.json"
	TestFile    = "env.test.json"
)

// Environment holds the variables for one script directory
type Environment struct {
	Dir    string
	Values map[string]string
}

// New returns an empty environment for dir
func New(dir string) *Environment {
	return &Environment{Dir: dir, Values: make(map[string]string)}
}

// Load reads the environment files of dir. Missing files are skipped.
func Load(dir string, testing bool) (*Environment, error) {
	env := New(dir)

	files := []string{DefaultFile, LocalFile}
	if testing {
		files = append(files, TestFile)
	}

	for _, name := range files {
		if err := env.merge(filepath.Join(dir, name)); err != nil {
			return nil, err
		}
	}
	return env, nil
}

func (e *Environment) merge(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			e.Values[k] = val
		case nil:
			e.Values[k] = ""
		default:
			b, _ := json.Marshal(val)
			e.Values[k] = string(b)
		}
	}
	return nil
}

// Get returns the value of name and whether it is defined
func (e *Environment) Get(name string) (string, bool) {
	v, ok := e.Values[name]
	return v, ok
}

// Set defines name
func (e *Environment) Set(name, value string) {
	e.Values[name] = value
}

// Names returns the defined variable names in sorted order
func (e *Environment) Names() []string {
	names := make([]string, 0, len(e.Values))
	for k := range e.Values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Pairs returns KEY=VALUE entries in sorted key order
func (e *Environment) Pairs() []string {
	pairs := make([]string, 0, len(e.Values))
	for _, k := range e.Names() {
		pairs = append(pairs, k+"="+e.Values[k])
	}
	return pairs
}

// Len returns the number of defined variables
func (e *Environment) Len() int {
	return len(e.Values)
}

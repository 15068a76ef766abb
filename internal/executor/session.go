package executor

import (
	"slices"

	"github.com/google/uuid"

	"github.com/harrison/simdem/internal/environment"
	"github.com/harrison/simdem/internal/models"
	"github.com/harrison/simdem/internal/source"
)

// MaxPrerequisiteDepth bounds how deeply prerequisites may nest.
const MaxPrerequisiteDepth = 8

// Session is one execution of one document.
type Session struct {
	RunID          string
	ScriptDir      string
	Filename       string
	Mode           models.Mode
	CurrentCommand string
	Passed         int
	Failed         int
	Results        []models.TestResult

	// Chain lists the documents from the root session down to this one.
	Chain []string
	Env   *environment.Environment
}

// NewSession creates a root session for dir/filename.
func NewSession(dir, filename string, mode models.Mode) *Session {
	s := &Session{
		RunID:     uuid.NewString(),
		ScriptDir: dir,
		Filename:  filename,
		Mode:      mode,
	}
	s.Chain = []string{s.Location()}
	return s
}

// Location returns the path or URL of the session's document.
func (s *Session) Location() string {
	return source.Location(s.ScriptDir, s.Filename)
}

// OnChain reports whether loc is this session's document or one of its
// ancestors.
func (s *Session) OnChain(loc string) bool {
	return slices.Contains(s.Chain, loc)
}

// Depth returns the number of prerequisite levels above this session.
func (s *Session) Depth() int {
	return len(s.Chain) - 1
}

// Prerequisite creates a child session that validates or runs a
// prerequisite of s. Counters start at zero and are never merged back.
func (s *Session) Prerequisite(dir, filename string) *Session {
	child := &Session{
		RunID:     s.RunID,
		ScriptDir: dir,
		Filename:  filename,
		Mode:      s.Mode.AsPrerequisite(),
	}
	child.Chain = append(slices.Clone(s.Chain), child.Location())
	return child
}

// Next creates the session for a selected next step. It replaces s rather
// than nesting under it.
func (s *Session) Next(step models.NextStep) *Session {
	return NewSession(source.Join(s.ScriptDir, step.Directory), step.Filename, s.Mode)
}

// Summary returns the session's counters and results.
func (s *Session) Summary() models.RunSummary {
	return models.RunSummary{
		RunID:    s.RunID,
		Document: s.Location(),
		Mode:     s.Mode.Name(),
		Passed:   s.Passed,
		Failed:   s.Failed,
		Results:  slices.Clone(s.Results),
	}
}

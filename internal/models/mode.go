package models

import "strings"

// Mode holds the behavior flags of a session.
//
//   - Simulate: commands are typed out as if by a person; headings and
//     descriptions are not rendered.
//   - Automated: never block on keyboard input.
//   - Testing: result blocks are graded and counted.
//   - FastFail: the first failed test aborts the walk.
//   - Learning: the reader types each command; no continue prompts.
//   - IsPrerequisite: the session runs on behalf of another document and
//     never offers next steps.
type Mode struct {
	Simulate       bool `yaml:"simulate"`
	Automated      bool `yaml:"automated"`
	Testing        bool `yaml:"testing"`
	FastFail       bool `yaml:"fast_fail"`
	Learning       bool `yaml:"learning"`
	IsPrerequisite bool `yaml:"-"`
}

// Named modes selectable from the command line
const (
	ModeTutorial = "tutorial"
	ModeDemo     = "demo"
	ModeTest     = "test"
	ModeLearn    = "learn"
)

// ModeFor returns the flag set for a named mode.
// Unknown names fall back to tutorial mode.
func ModeFor(name string) Mode {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ModeDemo:
		return Mode{Simulate: true}
	case ModeTest:
		return Mode{Simulate: true, Automated: true, Testing: true, FastFail: true}
	case ModeLearn:
		return Mode{Learning: true}
	default:
		return Mode{}
	}
}

// Name returns the command-line name that best describes the mode
func (m Mode) Name() string {
	switch {
	case m.Testing:
		return ModeTest
	case m.Learning:
		return ModeLearn
	case m.Simulate:
		return ModeDemo
	default:
		return ModeTutorial
	}
}

// AsPrerequisite returns a copy of the mode marked as a prerequisite run
func (m Mode) AsPrerequisite() Mode {
	m.IsPrerequisite = true
	return m
}

package shell

import (
	"context"
	"regexp"
)

var (
	variablePattern   = regexp.MustCompile(`\$\{?([A-Za-z_][A-Za-z0-9_]*)`)
	assignmentPattern = regexp.MustCompile(`(?:^|[\s;&|(])(?:export\s+|local\s+|readonly\s+)?([A-Za-z_][A-Za-z0-9_]*)=`)
	loopVarPattern    = regexp.MustCompile(`\b(?:for|select)\s+([A-Za-z_][A-Za-z0-9_]*)\s+in\b`)
	readVarPattern    = regexp.MustCompile(`\bread(?:\s+-[a-zA-Z]+)*((?:\s+[A-Za-z_][A-Za-z0-9_]*)+)`)
	namePattern       = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
)

// ValueChecker reports whether a variable has a non-empty value.
type ValueChecker interface {
	HasValue(ctx context.Context, name string) bool
}

// VariableNames returns the distinct variables referenced as $NAME or
// ${NAME} in command, in order of first use. Command substitutions such as
// $(date) and positional or special parameters are not variables. Names the
// command assigns itself (NAME=..., for NAME in, read NAME) are excluded.
func VariableNames(command string) []string {
	local := make(map[string]bool)
	for _, m := range assignmentPattern.FindAllStringSubmatch(command, -1) {
		local[m[1]] = true
	}
	for _, m := range loopVarPattern.FindAllStringSubmatch(command, -1) {
		local[m[1]] = true
	}
	for _, m := range readVarPattern.FindAllStringSubmatch(command, -1) {
		for _, name := range namePattern.FindAllString(m[1], -1) {
			local[name] = true
		}
	}

	seen := make(map[string]bool)
	var names []string
	for _, m := range variablePattern.FindAllStringSubmatch(command, -1) {
		name := m[1]
		if local[name] || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// FindUnboundVariables returns the variables referenced by command that
// have no value according to checker.
func FindUnboundVariables(ctx context.Context, checker ValueChecker, command string) []string {
	var unbound []string
	for _, name := range VariableNames(command) {
		if !checker.HasValue(ctx, name) {
			unbound = append(unbound, name)
		}
	}
	return unbound
}

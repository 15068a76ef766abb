package shell

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type mapChecker map[string]string

func (m mapChecker) HasValue(_ context.Context, name string) bool {
	return m[name] != ""
}

func TestVariableNames(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    []string
	}{
		{"none", "ls -la\n", nil},
		{"plain", "echo $HOME\n", []string{"HOME"}},
		{"braced", "echo ${RESOURCE_GROUP}-rg\n", []string{"RESOURCE_GROUP"}},
		{"dedup in order", "echo $B $A $B\n", []string{"B", "A"}},
		{"command substitution", "echo $(date) $USER\n", []string{"USER"}},
		{"special parameters", "echo $? $1 $@ $$\n", nil},
		{"assigned locally", "NAME=x; echo $NAME $OTHER\n", []string{"OTHER"}},
		{"exported locally", "export TOKEN=abc && echo $TOKEN\n", []string{}},
		{"loop variable", "for f in *.md; do echo $f; done\n", nil},
		{"read variable", "read -r first second; echo $first $second $third\n", []string{"third"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VariableNames(tt.command)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindUnboundVariables(t *testing.T) {
	checker := mapChecker{"SET": "1", "EMPTY": ""}

	got := FindUnboundVariables(context.Background(), checker, "echo $SET $EMPTY ${MISSING}\n")
	assert.Equal(t, []string{"EMPTY", "MISSING"}, got)

	assert.Empty(t, FindUnboundVariables(context.Background(), checker, "echo $SET\n"))
}

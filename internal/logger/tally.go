package logger

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

const tallyWidth = 10

// passBar renders "[=====     ] 2/4 (50%)" for passed tests out of total.
// Colored bars are green when every test passed and red otherwise.
func passBar(passed, total int, colored bool) string {
	perc := 0
	if total > 0 {
		perc = min(max(passed*100/total, 0), 100)
	}
	filled := perc * tallyWidth / 100

	bar := fmt.Sprintf("[%s%s] %d/%d (%d%%)",
		strings.Repeat("=", filled), strings.Repeat(" ", tallyWidth-filled), passed, total, perc)
	if !colored || total == 0 {
		return bar
	}

	c := color.New(color.FgRed)
	if perc == 100 {
		c = color.New(color.FgGreen)
	}
	// the caller already decided the writer is a terminal
	c.EnableColor()
	return c.Sprint(bar)
}

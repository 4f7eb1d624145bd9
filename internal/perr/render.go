package perr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Render formats err as a one-banner terminal message. When colorize is
// false, color.NoColor is forced for the duration of the call so the
// same code path works for both TTY and plain-file output, matching how
// the teacher's internal/diagfmt toggles color.NoColor around a Pretty
// call rather than branching the formatting logic itself.
func Render(err error, colorize bool) string {
	if err == nil {
		return ""
	}

	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}

	prev := color.NoColor
	defer func() { color.NoColor = prev }()
	color.NoColor = !colorize

	kindColor := color.New(color.FgRed, color.Bold)
	entityColor := color.New(color.FgCyan)
	detailColor := color.New(color.FgYellow)

	var b strings.Builder
	b.WriteString(kindColor.Sprint(e.Kind.String()))
	if e.Entity != "" {
		fmt.Fprintf(&b, " %s", entityColor.Sprintf("(%s)", e.Entity))
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.Axes) > 0 {
		fmt.Fprintf(&b, "\n  %s", detailColor.Sprintf("axes: %s", strings.Join(e.Axes, ", ")))
	}
	if e.Literal != "" {
		fmt.Fprintf(&b, "\n  %s", detailColor.Sprintf("literal: %s", e.Literal))
	}
	return b.String()
}

// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"taskbridge/internal/platform"
)

// DueLayout is the date layout used for due dates.
const DueLayout = "2006-01-02"

// FormatTask formats a task line.
// Format: "{N:>4}  {TITLE}[ (done)][ (due YYYY-MM-DD)]  [{ID}]\n"
func FormatTask(w io.Writer, num int, task platform.TaskRecord) {
	var b strings.Builder
	b.WriteString(normalizeTitle(task.Title))
	if task.Completed {
		b.WriteString(" (done)")
	}
	if task.Due != nil {
		b.WriteString(" (due ")
		b.WriteString(task.Due.Format(DueLayout))
		b.WriteString(")")
	}
	fmt.Fprintf(w, "%4d  %s  [%s]\n", num, b.String(), task.ExternalID)
}

// FormatPlatform formats a registered platform for the platforms command.
// Format: "{ID}[ [active]|[configured]]\n"
func FormatPlatform(w io.Writer, id platform.ID, configured, active bool) {
	line := string(id)
	switch {
	case active:
		line += " [active]"
	case configured:
		line += " [configured]"
	}
	fmt.Fprintln(w, line)
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	// Replace newlines with spaces
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	// Trim and check for empty
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}

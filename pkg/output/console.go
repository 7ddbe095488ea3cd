package output

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	isatty "github.com/mattn/go-isatty"
)

var (
	styleArrow   = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)  // cyan/blue
	styleSection = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)  // bright white
	styleDesc    = lipgloss.NewStyle().Faint(true)                                  // dim
	styleOK      = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)  // green
	styleFail    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true) // red
	styleWarnLbl = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true) // yellow
	styleWarnTxt = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))            // yellow
	styleNote    = lipgloss.NewStyle().Foreground(lipgloss.Color("45")).Faint(true) // teal dim
	colorEnabled = true
)

// InitConsole configures color output based on noColor flag and TTY detection
func InitConsole(noColor bool) {
	tty := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	colorEnabled = tty && !noColor
}

func r(st lipgloss.Style, s string) string {
	if !colorEnabled {
		return s
	}
	return st.Render(s)
}

// BatchHeader returns a colored header for one batch of units.
func BatchHeader(index, total, size int) string {
	arrow := r(styleArrow, "→")
	label := fmt.Sprintf("Batch %d/%d", index, total)
	return fmt.Sprintf("%s %s %s\n", arrow, r(styleSection, label),
		r(styleDesc, fmt.Sprintf("(%d unit(s))", size)))
}

// Successf returns a green per-unit success line.
func Successf(unit, path string) string {
	return fmt.Sprintf("  %s %s %s", r(styleOK, "✓"), unit, r(styleDesc, path))
}

// Failuref returns a red per-unit failure line with a condensed reason.
func Failuref(unit string, err error) string {
	return fmt.Sprintf("  %s %s %s", r(styleFail, "✗"), unit, r(styleDesc, ShortError(err)))
}

// Warnf returns a single-line colored warning string with a standard prefix.
func Warnf(format string, a ...interface{}) string {
	msg := fmt.Sprintf(format, a...)
	return r(styleWarnLbl, "Warning:") + " " + r(styleWarnTxt, msg)
}

// Notef returns a faint informational line (skip reasons, counts, etc.)
func Notef(format string, a ...interface{}) string {
	return r(styleNote, fmt.Sprintf(format, a...))
}

// Summary returns the end-of-run counters line.
func Summary(processed, failed, skipped int) string {
	parts := []string{
		r(styleOK, fmt.Sprintf("%d processed", processed)),
	}
	if failed > 0 {
		parts = append(parts, r(styleFail, fmt.Sprintf("%d failed", failed)))
	} else {
		parts = append(parts, r(styleDesc, "0 failed"))
	}
	if skipped > 0 {
		parts = append(parts, r(styleWarnTxt, fmt.Sprintf("%d skipped", skipped)))
	}
	return "Done: " + strings.Join(parts, ", ")
}

// ShortError attempts to condense a verbose multi-line error into a short reason.
func ShortError(err error) string {
	if err == nil {
		return ""
	}
	s := err.Error()
	lines := strings.Split(s, "\n")
	var candidate string
	for _, ln := range lines {
		t := strings.TrimSpace(ln)
		if t == "" {
			continue
		}
		// Skip verbose detail lines from the HTTP layer and validators
		if strings.HasPrefix(t, "URL:") || strings.HasPrefix(t, "Code:") || strings.HasPrefix(t, "- ") {
			continue
		}
		if candidate == "" {
			candidate = t
		}
	}
	if candidate == "" && len(lines) > 0 {
		candidate = strings.TrimSpace(lines[0])
	}
	return candidate
}

package ui

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/charmbracelet/lipgloss"
)

const bodyPreviewBorderColor = "8"

// FormatMethod renders an HTTP method token with MethodStyle's coloring.
func FormatMethod(method string) string {
	return MethodStyle(method).Render(method)
}

// FormatStatusCode renders "<code> <text>" with StatusCodeStyle's coloring.
func FormatStatusCode(code int, text string) string {
	return StatusCodeStyle(code).Render(fmt.Sprintf("%d %s", code, text))
}

// FormatDuration renders a duration rounded to millisecond precision, or
// verbatim when it's already sub-millisecond.
func FormatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return Muted.Render(d.String())
	}
	return Muted.Render(d.Round(time.Millisecond).String())
}

// FormatProvider renders a provider name, substituting "unknown" for blank.
func FormatProvider(name string) string {
	if strings.TrimSpace(name) == "" {
		name = "unknown"
	}
	return Muted.Render(name)
}

// FormatBytes renders a byte count in human-readable form (e.g. "2.1 kB"),
// for verbose replay/run output summarizing response sizes.
func FormatBytes(n int) string {
	return Muted.Render(humanize.Bytes(uint64(n)))
}

// FormatBodyPreview pretty-prints a JSON body when possible, strips ANSI
// escapes and control characters so captured payloads can't corrupt the
// terminal, and wraps the result in a bordered box. A truncated capture
// gets a trailing hint line.
func FormatBodyPreview(body []byte, truncated bool) string {
	preview := sanitizeForTerminal(prettyPrintIfJSON(body))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(bodyPreviewBorderColor)).
		Padding(0, 1)

	if truncated {
		preview += "\n" + Muted.Render("... (truncated)")
	}

	return box.Render(preview)
}

func prettyPrintIfJSON(body []byte) string {
	var parsed interface{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return string(body)
	}
	formatted, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return string(body)
	}
	return string(formatted)
}

func FormatSuccess(message string) string {
	return withIcon(SuccessIcon, message)
}

func FormatWarning(message string) string {
	return withIcon(WarningIcon, Warning.Render(message))
}

func FormatInfo(message string) string {
	return withIcon(InfoIcon, message)
}

func FormatCancelled() string {
	return Muted.Render("Cancelled.")
}

func withIcon(icon string, message string) string {
	return fmt.Sprintf("%s %s", icon, message)
}

// sanitizeForTerminal strips ANSI escapes from raw captured/replayed text
// and hex-escapes remaining control bytes (other than newline/tab) so a
// malicious payload can't, e.g., emit a terminal title-change sequence.
func sanitizeForTerminal(text string) string {
	var out strings.Builder
	plain := ansi.Strip(text)
	out.Grow(len(plain))
	for _, r := range plain {
		switch {
		case r == '\n' || r == '\t':
			out.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&out, "\\x%02x", r)
		default:
			out.WriteRune(r)
		}
	}
	return out.String()
}

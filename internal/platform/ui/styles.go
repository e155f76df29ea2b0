package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette mirrors the 16-color ANSI indices the CLI has always targeted, so
// output stays legible on both light and dark terminal themes.
const (
	colorGreen  = "2"
	colorRed    = "1"
	colorYellow = "3"
	colorBlue   = "4"
	colorCyan   = "6"
	colorGray   = "8"
	colorPurple = "5"
)

var (
	Bold  = lipgloss.NewStyle().Bold(true)
	Faint = lipgloss.NewStyle().Faint(true)

	Success = lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreen))
	Error   = lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed)).Bold(true)
	Warning = lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow))
	Info    = lipgloss.NewStyle().Foreground(lipgloss.Color(colorBlue))
	Muted   = lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray))

	SuccessIcon = Success.Render("✓")
	ErrorIcon   = Error.Render("✗")
	WarningIcon = Warning.Render("!")
	InfoIcon    = Info.Render("ℹ")

	TableHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorBlue)).Padding(0, 1)
	TableCell   = lipgloss.NewStyle().Padding(0, 1)

	methodStyles = map[string]lipgloss.Style{
		"GET":    lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreen)).Bold(true),
		"POST":   lipgloss.NewStyle().Foreground(lipgloss.Color(colorBlue)).Bold(true),
		"PUT":    lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)).Bold(true),
		"PATCH":  lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)).Bold(true),
		"DELETE": lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed)).Bold(true),
	}
	methodStyleOther = lipgloss.NewStyle().Foreground(lipgloss.Color(colorPurple)).Bold(true)
)

// MethodStyle colors an HTTP method token for display, accepting any
// casing since captured/replayed methods are not normalized before
// reaching the UI layer.
func MethodStyle(method string) lipgloss.Style {
	if style, ok := methodStyles[strings.ToUpper(strings.TrimSpace(method))]; ok {
		return style
	}
	return methodStyleOther
}

// StatusCodeStyle colors an HTTP status code by its class (2xx/3xx/4xx/5xx),
// falling back to Muted for anything outside the standard ranges.
func StatusCodeStyle(code int) lipgloss.Style {
	switch {
	case code >= 200 && code < 300:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreen))
	case code >= 300 && code < 400:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(colorCyan))
	case code >= 400 && code < 500:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow))
	case code >= 500:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed))
	default:
		return Muted
	}
}

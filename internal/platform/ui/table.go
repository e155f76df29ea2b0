package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var tableBorderColor = lipgloss.Color("8")

// NewTable renders a bordered table with a styled header row, used for
// `captures list` and `templates list`/`local` output.
func NewTable(headers []string, rows [][]string) string {
	rendered := table.New().
		Headers(headers...).
		BorderStyle(lipgloss.NewStyle().Foreground(tableBorderColor)).
		StyleFunc(headerAwareRowStyle)

	for _, row := range rows {
		rendered.Row(row...)
	}
	return rendered.Render()
}

func headerAwareRowStyle(row, _ int) lipgloss.Style {
	if row == table.HeaderRow {
		return TableHeader
	}
	return TableCell
}

// NewKeyValueTable renders a borderless two-column layout (key, value) for
// verbose replay/run output panes.
func NewKeyValueTable(pairs [][]string) string {
	keyStyle := lipgloss.NewStyle().Foreground(tableBorderColor).Padding(0, 1, 0, 0)
	valueStyle := lipgloss.NewStyle()

	rendered := table.New().
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(_, col int) lipgloss.Style {
			if col == 0 {
				return keyStyle
			}
			return valueStyle
		})

	for _, pair := range pairs {
		rendered.Row(pair...)
	}
	return rendered.Render()
}

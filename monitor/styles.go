package monitor

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	colorAddress = lipgloss.Color("#06B6D4") // Cyan
	colorGood    = lipgloss.Color("#10B981") // Emerald
	colorError   = lipgloss.Color("#EF4444") // Red
	colorMuted   = lipgloss.Color("#94A3B8") // Slate 400
	colorAccent  = lipgloss.Color("#F59E0B") // Amber
)

var (
	addressStyle = lipgloss.NewStyle().Foreground(colorAddress)
	goodStyle    = lipgloss.NewStyle().Foreground(colorGood).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	headerStyle  = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
)

func (m *Monitor) paint(style lipgloss.Style, text string) string {
	if !m.options.Color {
		return text
	}
	return style.Render(text)
}

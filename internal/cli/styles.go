// Package cli provides styled terminal output using lipgloss.
package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/hawker-crowd/internal/model"
)

// Palette. Crowd levels read like a traffic light: green for Low, amber for
// Medium, chilli red for High.
var (
	PrimaryColor = lipgloss.Color("#FF8C42") // Chilli-crab orange
	LowColor     = lipgloss.Color("#2EC4B6")
	MediumColor  = lipgloss.Color("#FFBF46")
	HighColor    = lipgloss.Color("#E63946")
	InfoColor    = lipgloss.Color("#8ECAE6")
	SubtleColor  = lipgloss.Color("#6C757D")
	BorderColor  = lipgloss.Color("#3A3A3A")
)

var (
	// TitleStyle is used for section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor).
			MarginBottom(1)

	SuccessStyle = lipgloss.NewStyle().Foreground(LowColor)
	WarningStyle = lipgloss.NewStyle().Foreground(MediumColor)
	ErrorStyle   = lipgloss.NewStyle().Foreground(HighColor)
	InfoStyle    = lipgloss.NewStyle().Foreground(InfoColor)
	SubtleStyle  = lipgloss.NewStyle().Foreground(SubtleColor)

	// BoxStyle frames evaluation reports.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(1, 2)

	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(BorderColor)

	TableCellStyle = lipgloss.NewStyle().PaddingRight(2)
)

// levelStyles colors each crowd level. Unknown levels fall back to
// SubtleStyle.
var levelStyles = map[model.CrowdLevel]lipgloss.Style{
	model.CrowdLow:    lipgloss.NewStyle().Foreground(LowColor).Bold(true),
	model.CrowdMedium: lipgloss.NewStyle().Foreground(MediumColor).Bold(true),
	model.CrowdHigh:   lipgloss.NewStyle().Foreground(HighColor).Bold(true),
}

// Icons.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "⚠️"
	InfoIcon    = "ℹ️"
	HawkerIcon  = "🍜"
	BusIcon     = "🚌"
	CarIcon     = "🚗"
	ChartIcon   = "📊"
	FolderIcon  = "🗄️"
)

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string {
	return SuccessStyle.Render(SuccessIcon + " " + message)
}

// FormatError formats an error message with icon.
func FormatError(message string) string {
	return ErrorStyle.Render(ErrorIcon + " " + message)
}

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string {
	return WarningStyle.Render(WarningIcon + " " + message)
}

// FormatInfo formats an info message with icon.
func FormatInfo(message string) string {
	return InfoStyle.Render(InfoIcon + " " + message)
}

// FormatTitle formats a title with the hawker icon.
func FormatTitle(title string) string {
	return TitleStyle.Render(HawkerIcon + " " + title)
}

// RenderBox renders content under a title inside a rounded border.
func RenderBox(title, content string) string {
	heading := TitleStyle.UnsetMargins().Render(title)
	return BoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, heading, content))
}

// StyleWarning formats text as warning message.
func StyleWarning(text string) string {
	return WarningStyle.Render(text)
}

package watchui

import "github.com/charmbracelet/lipgloss"

// Colors used throughout the view.
var (
	ColorRed    = lipgloss.Color("#FF5F5F")
	ColorGreen  = lipgloss.Color("#5FD75F")
	ColorYellow = lipgloss.Color("#FFD75F")
	ColorCyan   = lipgloss.Color("#5FD7FF")
	ColorGray   = lipgloss.Color("#808080")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan)

	DoneStageStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	CurrentStageStyle = lipgloss.NewStyle().
				Foreground(ColorCyan).
				Bold(true)

	PendingStageStyle = lipgloss.NewStyle().
				Foreground(ColorGray)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	FooterKeyStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorGray).
			Padding(0, 1)
)

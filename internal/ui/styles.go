package ui

import "github.com/charmbracelet/lipgloss"

// Palette
var (
	ColorAccent  = lipgloss.Color("#4FC3F7")
	ColorTrend   = lipgloss.Color("#81C784")
	ColorText    = lipgloss.Color("#DDDDDD")
	ColorDim     = lipgloss.Color("#777777")
	ColorPanel   = lipgloss.Color("#2E2E2E")
	ColorBar     = lipgloss.Color("#1E1E1E")
	ColorWarning = lipgloss.Color("#FFAA00")
	ColorError   = lipgloss.Color("#FF5252")
)

// Pre-built styles
var (
	StyleTitleBar = lipgloss.NewStyle().
			Background(ColorBar).
			Foreground(ColorAccent).
			Bold(true).
			Padding(0, 1)

	StyleDistance = lipgloss.NewStyle().
			Foreground(ColorText).
			Bold(true).
			Padding(1, 2)

	StylePanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPanel).
			Padding(0, 1)

	StylePanelTitle = lipgloss.NewStyle().
			Foreground(ColorDim)

	StyleCorrelation = lipgloss.NewStyle().
				Foreground(ColorAccent)

	StyleTrend = lipgloss.NewStyle().
			Foreground(ColorTrend)

	StyleRunning = lipgloss.NewStyle().
			Foreground(ColorTrend).
			Bold(true)

	StyleStopped = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Bold(true)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError)

	StyleStatusBar = lipgloss.NewStyle().
			Background(ColorBar).
			Foreground(ColorText).
			Padding(0, 1)

	StyleHelp = lipgloss.NewStyle().
			Foreground(ColorDim)
)

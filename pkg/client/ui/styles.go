package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// Color scheme
	PrimaryColor = lipgloss.Color("39")  // Blue
	AccentColor  = lipgloss.Color("213") // Pink
	ErrorColor   = lipgloss.Color("196") // Red
	MutedColor   = lipgloss.Color("243") // Gray
	BorderColor  = lipgloss.Color("238") // Dark gray

	BaseStyle = lipgloss.NewStyle()

	TitleStyle = BaseStyle.
			Bold(true).
			Foreground(PrimaryColor).
			Padding(0, 1)

	StatusStyle = BaseStyle.
			Foreground(MutedColor).
			Padding(0, 1)

	PaneStyle = BaseStyle.
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 1)

	FocusedPaneStyle = PaneStyle.
				BorderForeground(PrimaryColor)

	PaneTitleStyle = BaseStyle.
			Bold(true).
			Foreground(PrimaryColor)

	SelectedItemStyle = BaseStyle.
				Foreground(PrimaryColor).
				Bold(true)

	UnreadItemStyle = BaseStyle.
			Foreground(AccentColor).
			Bold(true)

	ItemStyle = BaseStyle.
			Foreground(lipgloss.Color("252"))

	CursorStyle = BaseStyle.
			Foreground(AccentColor)

	NoticeStyle = BaseStyle.
			Foreground(lipgloss.Color("231")).
			Background(ErrorColor).
			Padding(0, 1)

	InputLabelStyle = BaseStyle.
			Foreground(MutedColor)
)

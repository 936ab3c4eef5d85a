package widget

import "github.com/charmbracelet/lipgloss"

var (
	Primary = lipgloss.Color("214") // Amber
	Subtle  = lipgloss.Color("240") // Gray
	Error   = lipgloss.Color("196") // Red
	Text    = lipgloss.Color("252")
)

// FaceStyle is the border around the whole face.
var FaceStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Primary).
	Padding(0, 1).
	Width(26)

var WattsStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary)

var LabelStyle = lipgloss.NewStyle().
	Foreground(Subtle).
	Width(9)

var ValueStyle = lipgloss.NewStyle().
	Foreground(Text)

var MutedStyle = lipgloss.NewStyle().
	Foreground(Subtle)

var ErrorStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Error)

var HelpStyle = lipgloss.NewStyle().
	Foreground(Subtle).
	MarginTop(1)

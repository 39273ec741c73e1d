package tui

import "github.com/charmbracelet/lipgloss"

var (
	purple = lipgloss.Color("#835afd")
	pink   = lipgloss.Color("#e559f9")
	gray   = lipgloss.Color("#a8a8b3")
	green  = lipgloss.Color("#04d361")
	red    = lipgloss.Color("#e73f5d")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#29292e"))

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Background(pink).
			Padding(0, 1)

	codeStyle = lipgloss.NewStyle().
			Foreground(purple).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(purple).
			Padding(0, 1)

	hintStyle   = lipgloss.NewStyle().Foreground(gray)
	linkStyle   = lipgloss.NewStyle().Foreground(purple).Underline(true)
	authorStyle = lipgloss.NewStyle().Foreground(gray)
	nameStyle   = lipgloss.NewStyle().Bold(true)

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Background(purple).
			Padding(0, 2)

	disabledButtonStyle = buttonStyle.Background(gray)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#dbdcdd")).
			Padding(0, 1)

	highlightedCardStyle = cardStyle.BorderForeground(purple)
	answeredCardStyle    = cardStyle.Foreground(gray)

	successToastStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Background(green).Padding(0, 1)
	errorToastStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Background(red).Padding(0, 1)
)

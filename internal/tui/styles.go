package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorIndigo = lipgloss.Color("#3F51B5")
	ColorGreen  = lipgloss.Color("#98C379")
	ColorRed    = lipgloss.Color("#E06C75")
	ColorYellow = lipgloss.Color("#E5C07B")
	ColorMuted  = lipgloss.Color("#636B78")
	ColorBorder = lipgloss.Color("#3F4451")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorIndigo).
			Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(1, 2)

	NameStyle = lipgloss.NewStyle().
			Bold(true)

	CounterStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	ChoiceStyle = lipgloss.NewStyle().
			Padding(0, 1)

	SelectedChoiceStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(ColorIndigo).
				Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed)
)

// statusStyle colours a status label in the tally line.
func statusStyle(label string, positive, negative bool) string {
	switch {
	case positive:
		return lipgloss.NewStyle().Foreground(ColorGreen).Render(label)
	case negative:
		return lipgloss.NewStyle().Foreground(ColorRed).Render(label)
	default:
		return lipgloss.NewStyle().Foreground(ColorYellow).Render(label)
	}
}

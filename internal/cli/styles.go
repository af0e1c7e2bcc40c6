package cli

import "github.com/charmbracelet/lipgloss"

// Theme holds the color scheme for terminal output.
type Theme struct {
	Route   lipgloss.Color
	Good    lipgloss.Color
	Warn    lipgloss.Color
	Danger  lipgloss.Color
	Hint    lipgloss.Color
}

var defaultTheme = Theme{
	Route:  lipgloss.Color("#5FAFD7"), // light blue
	Good:   lipgloss.Color("#00D787"), // green
	Warn:   lipgloss.Color("#FFAF00"), // amber
	Danger: lipgloss.Color("#FF005F"), // red
	Hint:   lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) routeStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Route).Bold(true)
}

func (t Theme) confidenceStyle(confidence float64) lipgloss.Style {
	switch {
	case confidence >= 0.85:
		return lipgloss.NewStyle().Foreground(t.Good).Bold(true)
	case confidence >= 0.70:
		return lipgloss.NewStyle().Foreground(t.Warn)
	default:
		return lipgloss.NewStyle().Foreground(t.Danger)
	}
}

func (t Theme) safetyStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Danger).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

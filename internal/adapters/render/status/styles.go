package status

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	account  lipgloss.Style
	active   lipgloss.Style
	detail   lipgloss.Style
	warning  lipgloss.Style
	section  lipgloss.Style
	empty    lipgloss.Style
	online   lipgloss.Style
	pending  lipgloss.Style
	offline  lipgloss.Style
	inactive lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true),
		header:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		account:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		active:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("159")),
		detail:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		warning:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		section:  lipgloss.NewStyle().MarginTop(1),
		empty:    lipgloss.NewStyle().Faint(true),
		online:   lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
		pending:  lipgloss.NewStyle().Foreground(lipgloss.Color("221")),
		offline:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		inactive: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

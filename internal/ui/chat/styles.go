package chat

import "github.com/charmbracelet/lipgloss"

type theme struct {
	header         lipgloss.Style
	divider        lipgloss.Style
	userBox        lipgloss.Style
	userTitle      lipgloss.Style
	assistantBox   lipgloss.Style
	assistantTitle lipgloss.Style
	media          lipgloss.Style
	status         lipgloss.Style
	statusBusy     lipgloss.Style
	hint           lipgloss.Style
	input          lipgloss.Style
	inputDisabled  lipgloss.Style
	viewport       lipgloss.Style
}

func defaultTheme() theme {
	return theme{
		header: lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("25")),
		divider: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
		userBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("33")).
			Foreground(lipgloss.Color("231")).
			Padding(0, 1),
		userTitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("33")),
		assistantBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("248")).
			Padding(0, 1),
		assistantTitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("248")),
		media: lipgloss.NewStyle().
			Foreground(lipgloss.Color("109")).
			Underline(true),
		status: lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")),
		statusBusy: lipgloss.NewStyle().
			Foreground(lipgloss.Color("222")).
			Bold(true),
		hint: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")),
		input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("33")).
			Padding(0, 1),
		inputDisabled: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Foreground(lipgloss.Color("240")).
			Padding(0, 1),
		viewport: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
	}
}

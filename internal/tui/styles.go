package tui

import "github.com/charmbracelet/lipgloss"

// Styles groups the lipgloss styles used by the chat view.
type Styles struct {
	Header      lipgloss.Style
	UserLabel   lipgloss.Style
	BotLabel    lipgloss.Style
	Index       lipgloss.Style
	Timestamp   lipgloss.Style
	Body        lipgloss.Style
	Quote       lipgloss.Style
	Highlight   lipgloss.Style
	Thinking    lipgloss.Style
	ReplyBar    lipgloss.Style
	Input       lipgloss.Style
	Status      lipgloss.Style
	StatusError lipgloss.Style
}

// DefaultStyles returns the standard chat palette.
func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("33")).
			Padding(0, 1),
		UserLabel: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		BotLabel:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")),
		Index:     lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Timestamp: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		Body:      lipgloss.NewStyle().PaddingLeft(2),
		Quote: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true).
			PaddingLeft(2),
		Highlight: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("214")),
		Thinking: lipgloss.NewStyle().Foreground(lipgloss.Color("99")).PaddingLeft(2),
		ReplyBar: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("39")).
			PaddingLeft(1),
		Input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		Status:      lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		StatusError: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

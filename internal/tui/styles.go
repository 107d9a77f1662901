package tui

import "github.com/charmbracelet/lipgloss"

type Styles struct {
	Header       lipgloss.Style
	Sender       lipgloss.Style
	OwnSender    lipgloss.Style
	Timestamp    lipgloss.Style
	Pending      lipgloss.Style
	Failed       lipgloss.Style
	TypingLine   lipgloss.Style
	Notification lipgloss.Style
	Sidebar      lipgloss.Style
	SidebarTitle lipgloss.Style
	BarDone      lipgloss.Style
	BarTodo      lipgloss.Style
	Banner       lipgloss.Style
	StatusBar    lipgloss.Style
	ConnUp       lipgloss.Style
	ConnDown     lipgloss.Style
}

func DefaultStyles() *Styles {
	return &Styles{
		Header:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		Sender:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		OwnSender:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		Timestamp:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Pending:      lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true),
		Failed:       lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		TypingLine:   lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true),
		Notification: lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57")).Padding(0, 1),
		Sidebar:      lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderLeft(true).BorderForeground(lipgloss.Color("238")).PaddingLeft(1),
		SidebarTitle: lipgloss.NewStyle().Bold(true).Underline(true),
		BarDone:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		BarTodo:      lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
		Banner:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		StatusBar:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		ConnUp:       lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		ConnDown:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

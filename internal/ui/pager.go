package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// pagerModel shows a rendered diff in a scrollable viewport
type pagerModel struct {
	title    string
	content  string
	styles   *StyleManager
	viewport viewport.Model
	ready    bool
}

func newPagerModel(title, content string, styles *StyleManager) pagerModel {
	return pagerModel{title: title, content: content, styles: styles}
}

func (m pagerModel) Init() tea.Cmd {
	return nil
}

func (m pagerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		height := max(msg.Height-2, 1) // header and footer
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.viewport.SetContent(m.content)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m pagerModel) View() string {
	if !m.ready {
		return ""
	}
	header := m.styles.Header.Render(m.title)
	footer := m.styles.Dim.Render(fmt.Sprintf("%3.f%% • q to quit", m.viewport.ScrollPercent()*100))
	return header + "\n" + m.viewport.View() + "\n" + footer
}

// RunPager displays content full screen until the user quits
func RunPager(title, content string, styles *StyleManager) error {
	p := tea.NewProgram(newPagerModel(title, content, styles), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

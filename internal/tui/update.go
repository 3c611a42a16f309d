package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) { // nolint:ireturn
	switch x := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = x.Width, x.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		var cmd tea.Cmd
		m, cmd = m.handleKey(x)
		return m, cmd

	case stateMsg:
		cmd := m.applyState(x.State)
		return m, tea.Batch(cmd, m.listenForState())

	case stateClosedMsg:
		m.quitting = true
		return m, tea.Quit

	case toastMsg:
		m.pushToast(x.Toast)
		return m, m.listenForToasts()

	case cleanDoneMsg:
		m.reportCleaning(x)
		return m, nil

	case tickMsg:
		m.now = time.Now()
		m.expireToasts()
		return m, m.tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(x)
		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(x)
		if p, ok := pm.(progress.Model); ok {
			m.progress = p
		}
		return m, cmd
	}

	return m, nil
}

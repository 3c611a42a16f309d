package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/ensigniasec/cleaner-client/internal/api"
	"github.com/ensigniasec/cleaner-client/internal/notify"
	"github.com/ensigniasec/cleaner-client/internal/store"
)

// handleKey processes key bindings and returns updated model and command.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) { // nolint:ireturn
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.helpVisible = !m.helpVisible
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		it, ok := m.resultsList.SelectedItem().(resultItem)
		if !ok {
			return m, nil
		}
		if it.Selected {
			m.ctrl.DeselectItem(it.Path)
		} else {
			m.ctrl.SelectItem(it.Path)
		}
		return m, nil

	case key.Matches(msg, m.keys.SelectAll):
		m.ctrl.SelectAll()
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		m.ctrl.ClearSelection()
		return m, nil

	case key.Matches(msg, m.keys.Backup):
		m.createBackup = !m.createBackup
		return m, nil

	case key.Matches(msg, m.keys.Stop):
		m.ctrl.StopScan()
		return m, nil

	case key.Matches(msg, m.keys.Clean):
		if m.state.Cleaning || len(m.state.Selected) == 0 {
			return m, nil
		}
		return m, m.cleanSelection()
	}

	// Everything else moves the cursor.
	var cmd tea.Cmd
	m.resultsList, cmd = m.resultsList.Update(msg)
	return m, cmd
}

// applyState stores a snapshot and refreshes the derived widgets.
func (m *Model) applyState(st store.State) tea.Cmd {
	m.state = st

	var cmd tea.Cmd
	if cur := st.CurrentScan; cur != nil {
		cmd = m.progress.SetPercent(cur.Progress)
	} else if st.CleaningProgress != nil {
		cmd = m.progress.SetPercent(st.CleaningProgress.Progress)
	}

	m.syncResultsListItems()
	return cmd
}

// syncResultsListItems rebuilds the list from the current scan, keeping the
// cursor when the same scan is shown again.
func (m *Model) syncResultsListItems() {
	var id int64
	if m.state.CurrentScan != nil {
		id = m.state.CurrentScan.ID
	}
	cursor := m.resultsList.Index()
	m.resultsList.SetItems(itemsFor(m.state.CurrentScan, m.state.Selected))
	if id == m.listScanID && cursor < len(m.resultsList.Items()) {
		m.resultsList.Select(cursor)
	} else {
		m.resultsList.Select(0)
	}
	m.listScanID = id
}

func (m *Model) resize() {
	height := m.height
	if height <= 0 {
		height = defaultHeight
	}
	height -= listOverheadLines
	if height < listMinHeight {
		height = listMinHeight
	}
	m.resultsList.SetSize(m.contentWidth(), height)
	m.progress.Width = m.contentWidth()
}

func (m Model) contentWidth() int {
	w := m.width
	if w <= 0 {
		w = defaultWidth
	}
	return min(w, rightViewportMax)
}

// pushToast keeps the latest notifications, newest last.
func (m *Model) pushToast(t notify.Toast) {
	m.toasts = append(m.toasts, t)
	if len(m.toasts) > toastsShown {
		m.toasts = m.toasts[len(m.toasts)-toastsShown:]
	}
}

func (m *Model) expireToasts() {
	kept := m.toasts[:0]
	for _, t := range m.toasts {
		if m.now.Sub(t.Time) < toastLifetime {
			kept = append(kept, t)
		}
	}
	m.toasts = kept
}

// reportCleaning turns a finished cleanup into a notification. API failures
// were already reported by the client.
func (m *Model) reportCleaning(x cleanDoneMsg) {
	if m.notifier == nil {
		return
	}
	switch {
	case x.Err != nil:
		if api.Classify(x.Err) == api.KindUnknown {
			m.notifier.Failure(notify.KeyCleaningFailed, x.Err.Error())
		}
	case x.Resp == nil:
	case x.Resp.Success:
		m.notifier.Success(notify.KeyCleaningCompleted,
			x.Resp.Message+" ("+humanize.IBytes(uint64(max(x.Resp.BytesFreed, 0)))+")")
	default:
		m.notifier.Failure(notify.KeyCleaningFailed, x.Resp.Message)
	}
}

package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	apigen "github.com/ensigniasec/cleaner-client/internal/api-gen"
	"github.com/ensigniasec/cleaner-client/internal/notify"
	"github.com/ensigniasec/cleaner-client/internal/store"
)

// Controller is the part of the store the UI drives. *store.Store implements it.
type Controller interface {
	SelectItem(path string)
	DeselectItem(path string)
	SelectAll()
	ClearSelection()
	StopScan() bool
	StartCleaning(ctx context.Context, createBackup bool) (*apigen.CleanResponse, error)
}

// Model is the root Bubble Tea model.
type Model struct {
	ctx      context.Context
	ctrl     Controller
	notifier *notify.Center

	state    store.State
	now      time.Time
	progress progress.Model
	spinner  spinner.Model
	width    int
	height   int
	quitting bool

	createBackup bool
	toasts       []notify.Toast

	// inbound channels
	states <-chan store.State
	toastC <-chan notify.Toast

	// ui state
	helpVisible bool

	resultsList list.Model
	// listScanID is the scan whose items the list currently shows.
	listScanID int64

	keys keyMap
}

// NewModel constructs a Model fed by the given snapshot and notification channels.
func NewModel(ctx context.Context, ctrl Controller, notifier *notify.Center, states <-chan store.State, toasts <-chan notify.Toast) Model { // nolint:ireturn
	lst := list.New([]list.Item{}, resultsDelegate{}, 0, 0)
	lst.SetShowStatusBar(true)
	lst.SetFilteringEnabled(false)
	lst.SetShowHelp(false)
	lst.SetShowPagination(true)
	lst.SetShowTitle(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:          ctx,
		ctrl:         ctrl,
		notifier:     notifier,
		now:          time.Now(),
		progress:     progress.New(progress.WithDefaultGradient()),
		spinner:      sp,
		createBackup: true,
		states:       states,
		toastC:       toasts,
		resultsList:  lst,
		keys:         newKeyMap(),
	}
	m.resize()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.listenForState(),
		m.listenForToasts(),
		m.tick(),
		m.spinner.Tick,
	)
}

// listenForState returns a Tea command that waits for the next store snapshot.
func (m Model) listenForState() tea.Cmd {
	return func() tea.Msg {
		st, ok := <-m.states
		if !ok {
			return stateClosedMsg{}
		}
		return stateMsg{State: st}
	}
}

// listenForToasts returns a Tea command that waits for a notification.
func (m Model) listenForToasts() tea.Cmd {
	if m.toastC == nil {
		return nil
	}
	return func() tea.Msg {
		t, ok := <-m.toastC
		if !ok {
			return nil
		}
		return toastMsg{Toast: t}
	}
}

// tick schedules the next clock refresh.
func (m Model) tick() tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

// cleanSelection runs the cleanup off the update loop.
func (m Model) cleanSelection() tea.Cmd {
	ctrl, backup, parent := m.ctrl, m.createBackup, m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, cleaningTimeout)
		defer cancel()
		resp, err := ctrl.StartCleaning(ctx, backup)
		return cleanDoneMsg{Resp: resp, Err: err}
	}
}

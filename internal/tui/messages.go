package tui

import (
	apigen "github.com/ensigniasec/cleaner-client/internal/api-gen"
	"github.com/ensigniasec/cleaner-client/internal/notify"
	"github.com/ensigniasec/cleaner-client/internal/store"
)

// Message types for Bubble Tea update loop.

// stateMsg carries a new store snapshot.
type stateMsg struct{ State store.State }

// stateClosedMsg means the store stopped publishing snapshots.
type stateClosedMsg struct{}

// toastMsg carries a notification from the notify center.
type toastMsg struct{ Toast notify.Toast }

// tickMsg refreshes the elapsed time and expires old notifications.
type tickMsg struct{}

// cleanDoneMsg reports the outcome of a cleanup started from the UI.
type cleanDoneMsg struct {
	Resp *apigen.CleanResponse
	Err  error
}

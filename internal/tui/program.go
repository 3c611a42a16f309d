package tui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/cleaner-client/internal/api"
	"github.com/ensigniasec/cleaner-client/internal/notify"
	"github.com/ensigniasec/cleaner-client/internal/store"
)

// Run starts the Bubble Tea TUI program on top of st. When categories is not
// empty a scan is started as soon as the UI is up.
func Run(ctx context.Context, st *store.Store, center *notify.Center, categories []string) error {
	watcher := st.Subscribe()
	defer watcher.Close()

	sink := notify.NewChanSink(toastBufferSize)
	center.AddSink(sink)
	defer sink.Close()

	model := NewModel(ctx, st, center, watcher.C(), sink.C())
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	// Silence external logs (WARN/ERRO) during TUI to avoid corrupting the view.
	prevOut := logrus.StandardLogger().Out
	logrus.SetOutput(io.Discard)
	defer logrus.SetOutput(prevOut)

	if len(categories) > 0 {
		go startScan(ctx, st, center, categories)
	}

	_, err := p.Run()
	return err
}

// startScan kicks off a scan and reports the outcome through center.
func startScan(ctx context.Context, st *store.Store, center *notify.Center, categories []string) {
	resp, err := st.StartScan(ctx, categories)
	if err != nil {
		logrus.WithError(err).Debug("tui: scan not started")
		// API failures are already reported by the client.
		if api.Classify(err) == api.KindUnknown {
			center.Failure(notify.KeyScanFailed, err.Error())
		}
		return
	}
	center.Success(notify.KeyScanStarted, resp.Message)
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	apigen "github.com/ensigniasec/cleaner-client/internal/api-gen"
	"github.com/ensigniasec/cleaner-client/internal/realtime"
)

//nolint:gochecknoglobals // flag bindings.
var (
	watchEvents   []string
	watchDuration time.Duration
)

//nolint:gochecknoinits // Cobra flag wiring.
func init() {
	watchCmd.Flags().StringSliceVarP(&watchEvents, "event", "e", nil, "Event names to follow (default: all)")
	watchCmd.Flags().DurationVar(&watchDuration, "duration", 0, "Stop after this long (default: until interrupted)")
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live events pushed by the backend",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			logrus.Fatal(err)
		}
		wsURL := cfg.WSURL
		if wsURL == "" {
			if wsURL, err = realtime.DialURL(cfg.APIURL); err != nil {
				logrus.Fatal(err)
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		if watchDuration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, watchDuration)
			defer cancel()
		}

		bridge, err := realtime.NewBridge(wsURL,
			realtime.WithToken(cfg.Token),
			realtime.WithStateHook(func(connected bool) {
				if connected {
					logrus.Infof("Connected to %s", wsURL)
				} else {
					logrus.Warn("Disconnected, reconnecting")
				}
			}),
		)
		if err != nil {
			logrus.Fatal(err)
		}

		names := make([]apigen.EventType, 0, len(watchEvents))
		for _, e := range watchEvents {
			names = append(names, apigen.EventType(e))
		}
		sub := bridge.Subscribe(names...)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for ev := range sub.C() {
				printEvent(ev)
			}
		}()

		_ = bridge.Run(ctx)
		<-done
	},
}

func printEvent(ev realtime.Event) {
	if jsonOutput {
		printJSON(apigen.Envelope{Type: ev.Type, Data: ev.Data})
		return
	}
	ts := ev.Received.Format(time.TimeOnly)
	switch ev.Type {
	case apigen.EventSystemUpdate:
		if u, err := realtime.DecodeSystemUpdate(ev); err == nil {
			fmt.Fprintf(os.Stdout, "%s  system    cpu %5.1f%%  memory %5.1f%%  disk %s\n", ts, u.CPU, u.Memory, rate(u.DiskIO))
			return
		}
	case apigen.EventScanProgress:
		if p, err := realtime.DecodeScanProgress(ev); err == nil {
			fmt.Fprintf(os.Stdout, "%s  scan      #%d %s %3.0f%%\n", ts, p.ScanID, p.Status, p.Progress*100)
			return
		}
	case apigen.EventScanComplete:
		if c, err := realtime.DecodeScanComplete(ev); err == nil {
			fmt.Fprintf(os.Stdout, "%s  scan      #%d complete: %d files, %s\n", ts, c.ScanID, c.TotalFiles, humanBytes(c.TotalSize))
			return
		}
	case apigen.EventCleaningProgress:
		if p, err := realtime.DecodeCleaningProgress(ev); err == nil {
			fmt.Fprintf(os.Stdout, "%s  cleaning  #%d %3.0f%% %d files %s\n", ts, p.ScanID, p.Progress*100, p.FilesProcessed, p.CurrentFile)
			return
		}
	case apigen.EventCleaningComplete:
		if c, err := realtime.DecodeCleaningComplete(ev); err == nil {
			fmt.Fprintf(os.Stdout, "%s  cleaning  #%d done: %d files, %s freed\n", ts, c.ScanID, c.FilesDeleted, humanBytes(c.BytesFreed))
			return
		}
	case apigen.EventSystemAlert:
		if a, err := realtime.DecodeSystemAlert(ev); err == nil {
			fmt.Fprintf(os.Stdout, "%s  alert     [%s] %s: %s\n", ts, a.Level, a.Title, a.Message)
			return
		}
	}
	fmt.Fprintf(os.Stdout, "%s  %-9s %s\n", ts, ev.Type, ev.Data)
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ensigniasec/cleaner-client/internal/autoscan"
	"github.com/ensigniasec/cleaner-client/internal/notify"
	"github.com/ensigniasec/cleaner-client/internal/store"
)

//nolint:gochecknoglobals // flag bindings.
var (
	autoSchedule  string
	autoMinSafety float64
	autoForce     bool
)

//nolint:gochecknoinits // Cobra flag wiring.
func init() {
	f := autoscanCmd.Flags()
	f.StringVar(&autoSchedule, "schedule", autoscan.DefaultSchedule, "Cron expression (minute hour day month weekday) or descriptor such as @daily")
	f.Float64Var(&autoMinSafety, "clean-above", 0, "After each scan, delete items whose safety score is at least this value (0 disables)")
	f.BoolVar(&autoForce, "force", false, "Run even when automatic scans are disabled in the preferences")
	f.BoolVar(&noPush, "no-push", false, "Only poll for progress; do not open the push channel")
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var autoscanCmd = &cobra.Command{
	Use:   "autoscan",
	Short: "Scan periodically on a cron schedule",
	Long: "Stay in the foreground and start a scan at every activation of --schedule, using the categories " +
		"from the user settings. Honors the autoScan preference unless --force is given.",
	Run: func(cmd *cobra.Command, args []string) {
		if autoMinSafety < 0 || autoMinSafety > 1 {
			logrus.Fatal("--clean-above must be between 0 and 1")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		a := mustApp()
		if !a.prefs.Preferences().AutoScan && !autoForce {
			logrus.Warn("Automatic scans are disabled in the preferences; use --force or 'prefs set --auto-scan'")
			return
		}

		st := store.New(a.client,
			store.WithPollInterval(a.cfg.PollInterval),
			store.WithUserID(a.cfg.UserID),
		)
		defer st.Close()
		_ = st.Initialize(ctx)
		if !noPush {
			startPush(ctx, a, st)
		}

		sched, err := autoscan.New(autoSchedule, func(ctx context.Context) error {
			return autoscanRun(ctx, a, st)
		})
		if err != nil {
			logrus.Fatal(err)
		}
		logrus.Infof("Next scan at %s", sched.Next(time.Now()).Format(time.DateTime))

		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			logrus.Fatal(err)
		}
		s := sched.Stats()
		logrus.Infof("Stopped after %d runs (%d failed)", s.Runs, s.Failed)
	},
}

// autoscanRun is one scheduled scan, followed by an optional cleanup of the
// items the backend rates as safe enough.
func autoscanRun(ctx context.Context, a *app, st *store.Store) error {
	scan, err := runScan(ctx, a, st, resolveCategories(st.Snapshot()))
	if err != nil {
		return err
	}
	if scan.Phase != store.PhaseCompleted {
		return fmt.Errorf("scan #%d %s: %s", scan.ID, scan.Phase, scan.Error)
	}
	if autoMinSafety == 0 {
		return nil
	}

	st.ClearSelection()
	for _, it := range scan.Items() {
		if it.SafetyScore >= autoMinSafety {
			st.SelectItem(it.Path)
		}
	}
	if len(st.Snapshot().Selected) == 0 {
		logrus.Infof("Scan #%d: nothing rated %.2f or safer", scan.ID, autoMinSafety)
		return nil
	}

	resp, err := st.StartCleaning(ctx, true)
	if err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	if !resp.Success {
		a.center.Failure(notify.KeyCleaningFailed, resp.Message)
		return fmt.Errorf("cleanup of scan #%d failed: %s", scan.ID, resp.Message)
	}
	a.center.Success(notify.KeyCleaningCompleted,
		fmt.Sprintf("%d files, %s", resp.FilesDeleted, humanBytes(resp.BytesFreed)))
	return nil
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	apigen "github.com/ensigniasec/cleaner-client/internal/api-gen"
	"github.com/ensigniasec/cleaner-client/internal/notify"
	"github.com/ensigniasec/cleaner-client/internal/realtime"
	"github.com/ensigniasec/cleaner-client/internal/sizing"
	"github.com/ensigniasec/cleaner-client/internal/store"
	"github.com/ensigniasec/cleaner-client/internal/tui"
)

//nolint:gochecknoglobals // flag bindings.
var (
	scanCategories []string
	cleanAfter     bool
	selectPaths    []string
	selectAll      bool
	noBackup       bool
	assumeYes      bool
	noPush         bool
	itemsShown     int

	historyLimit    int
	historyCleaning bool
	historyScanID   int64
)

//nolint:gochecknoinits // Cobra flag wiring.
func init() {
	f := scanCmd.Flags()
	f.StringSliceVarP(&scanCategories, "category", "c", nil, "Categories to scan (default: the categories in the user settings)")
	f.BoolVar(&tuiMode, "tui", false, "Follow the scan in the interactive TUI")
	f.BoolVar(&cleanAfter, "clean", false, "Delete the selected items once the scan completes")
	f.StringSliceVar(&selectPaths, "select", nil, "Paths to select for cleanup (with --clean)")
	f.BoolVar(&selectAll, "select-all", false, "Select every item found (with --clean)")
	f.BoolVar(&noBackup, "no-backup", false, "Do not back up files before deleting them")
	f.BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation before deleting")
	f.BoolVar(&noPush, "no-push", false, "Only poll for progress; do not open the push channel")
	f.IntVar(&itemsShown, "items", 10, "Items listed per category in the summary")

	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of entries to list")
	historyCmd.Flags().BoolVar(&historyCleaning, "cleaning", false, "List cleanup runs instead of scans")
	historyCmd.Flags().Int64Var(&historyScanID, "scan-id", 0, "Only list cleanup runs of this scan (with --cleaning)")
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for files that can be cleaned up, optionally deleting them",
	Long: "Start a scan on the backend and follow it until it completes. With --clean the selected " +
		"items (--select, --select-all) are deleted afterwards, after a local size preview and confirmation.",
	Run: func(cmd *cobra.Command, args []string) {
		if jsonOutput && tuiMode {
			logrus.Fatal("Cannot use --json and --tui flags together")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		a := mustApp()
		st := store.New(a.client,
			store.WithPollInterval(a.cfg.PollInterval),
			store.WithUserID(a.cfg.UserID),
		)
		defer st.Close()
		_ = st.Initialize(ctx)

		if !noPush {
			startPush(ctx, a, st)
		}

		categories := resolveCategories(st.Snapshot())
		if tuiMode {
			if err := tui.Run(ctx, st, a.center, categories); err != nil {
				logrus.Fatalf("TUI mode failed: %v", err)
			}
			return
		}

		scan, err := runScan(ctx, a, st, categories)
		if err != nil {
			fail(err)
		}
		if scan.Phase != store.PhaseCompleted {
			fail(fmt.Errorf("scan #%d %s: %s", scan.ID, scan.Phase, scan.Error))
		}
		if !cleanAfter {
			if jsonOutput {
				printJSON(scanView(scan))
				return
			}
			printScan(scan)
			return
		}
		if !jsonOutput {
			printScan(scan)
		}
		runCleanup(ctx, a, st)
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past scans or cleanup runs",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		if historyCleaning {
			h, err := a.client.CleaningHistory(cmd.Context(), historyScanID, historyLimit)
			if err != nil {
				fail(err)
			}
			if jsonOutput {
				printJSON(h)
				return
			}
			t := newTable("ID", "SCAN", "WHEN", "FILES", "FREED", "BACKUP", "OK")
			for _, r := range h.History {
				scan, backup := "-", "-"
				if r.ScanID != nil {
					scan = strconv.FormatInt(*r.ScanID, 10)
				}
				if r.BackupPath != nil {
					backup = *r.BackupPath
				}
				t.Row(strconv.FormatInt(r.ID, 10), scan, humanize.Time(r.Timestamp.Time),
					strconv.Itoa(len(r.FilesDeleted)), humanBytes(r.TotalSizeFreed), backup, strconv.FormatBool(r.Success))
			}
			fmt.Fprintln(os.Stdout, t.Render())
			return
		}

		h, err := a.client.ScanHistory(cmd.Context(), historyLimit)
		if err != nil {
			fail(err)
		}
		if jsonOutput {
			printJSON(h)
			return
		}
		t := newTable("ID", "WHEN", "DURATION", "FILES", "SIZE", "CLEANED", "FREED")
		for _, r := range h.Scans {
			t.Row(strconv.FormatInt(r.ID, 10), humanize.Time(r.Timestamp.Time),
				time.Duration(r.DurationSeconds*float64(time.Second)).Truncate(time.Millisecond).String(),
				humanize.Comma(r.TotalFiles), humanBytes(r.TotalSize), humanize.Comma(r.CleanedFiles), humanBytes(r.FreedSpace))
		}
		fmt.Fprintln(os.Stdout, t.Render())
	},
}

// resolveCategories picks the flag value, then the user settings, then the defaults.
func resolveCategories(st store.State) []string {
	if len(scanCategories) > 0 {
		return scanCategories
	}
	if st.Settings != nil && len(st.Settings.SelectedCategories) > 0 {
		return st.Settings.SelectedCategories
	}
	return apigen.DefaultCategories
}

// startPush opens the push channel in the background and feeds it to the store
// and the notify center. Polling keeps working while it is down.
func startPush(ctx context.Context, a *app, st *store.Store) {
	wsURL := a.cfg.WSURL
	if wsURL == "" {
		u, err := realtime.DialURL(a.cfg.APIURL)
		if err != nil {
			logrus.WithError(err).Debug("push channel disabled")
			return
		}
		wsURL = u
	}
	bridge, err := realtime.NewBridge(wsURL, realtime.WithToken(a.cfg.Token))
	if err != nil {
		logrus.WithError(err).Debug("push channel disabled")
		return
	}
	alerts := bridge.Subscribe(apigen.EventSystemAlert)
	go func() {
		_ = bridge.Run(ctx)
	}()
	go st.AttachBridge(ctx, bridge)
	go forwardAlerts(a.center, alerts)
}

func forwardAlerts(center *notify.Center, sub *realtime.Subscription) {
	for ev := range sub.C() {
		alert, err := realtime.DecodeSystemAlert(ev)
		if err != nil {
			logrus.WithError(err).Debug("ignoring malformed alert")
			continue
		}
		center.Alert(alert)
	}
}

// runScan starts a scan and blocks until it settles, printing progress to stderr.
func runScan(ctx context.Context, a *app, st *store.Store, categories []string) (store.Scan, error) {
	w := st.Subscribe()
	defer w.Close()

	resp, err := st.StartScan(ctx, categories)
	if err != nil {
		return store.Scan{}, err
	}
	logrus.Infof("Scan #%d started (%s)", resp.ScanID, strings.Join(categories, ", "))

	done := make(chan struct{})
	go func() {
		defer close(done)
		last := -1
		for s := range w.C() {
			cur := s.CurrentScan
			if cur == nil || cur.ID != resp.ScanID {
				continue
			}
			if pct := int(cur.Progress * 100); pct != last && !jsonOutput {
				last = pct
				fmt.Fprintf(os.Stderr, "\r%-10s %3d%%", cur.Status, pct)
			}
			if !s.Scanning {
				return
			}
		}
	}()

	scan, err := st.Wait(ctx)
	if err != nil {
		if ctx.Err() != nil && st.StopScan() {
			logrus.Warnf("Stopped following scan #%d", resp.ScanID)
		}
		return scan, err
	}
	w.Close()
	<-done
	if !jsonOutput {
		fmt.Fprintln(os.Stderr)
	}

	switch scan.Phase {
	case store.PhaseCompleted:
		a.center.Success(notify.KeyScanCompleted,
			fmt.Sprintf("%s files, %s", humanize.Comma(scan.TotalFiles), humanBytes(scan.TotalSize)))
	case store.PhaseFailed:
		a.center.Failure(notify.KeyScanFailed, scan.Error)
	}
	return scan, nil
}

// runCleanup selects the requested items, previews and confirms, then deletes them.
func runCleanup(ctx context.Context, a *app, st *store.Store) {
	if selectAll {
		st.SelectAll()
	}
	for _, p := range selectPaths {
		st.SelectItem(p)
	}
	selected := st.Snapshot().Selected
	if len(selected) == 0 {
		logrus.Warn("Nothing selected; use --select or --select-all")
		return
	}

	rep, err := sizing.MeasurePaths(ctx, selected)
	if err != nil {
		fail(err)
	}
	if !jsonOutput {
		fmt.Fprintf(os.Stdout, "\nSelected %d items: %s in %s files on this machine",
			len(selected), humanBytes(rep.TotalSize), humanize.Comma(rep.TotalFiles))
		if rep.Missing > 0 {
			fmt.Fprintf(os.Stdout, " (%d not found locally)", rep.Missing)
		}
		fmt.Fprintln(os.Stdout)
	}

	if !assumeYes && !confirm(fmt.Sprintf("Delete %d items", len(selected))) {
		logrus.Info("Cleanup cancelled")
		return
	}

	resp, err := st.StartCleaning(ctx, !noBackup)
	if err != nil {
		fail(err)
	}
	if resp == nil {
		return
	}
	if !resp.Success {
		a.center.Failure(notify.KeyCleaningFailed, resp.Message)
	} else {
		a.center.Success(notify.KeyCleaningCompleted,
			fmt.Sprintf("%d files, %s", resp.FilesDeleted, humanBytes(resp.BytesFreed)))
	}
	if jsonOutput {
		printJSON(resp)
		return
	}
	fmt.Fprintf(os.Stdout, "Deleted %d files, freed %s\n", resp.FilesDeleted, humanBytes(resp.BytesFreed))
	if resp.BackupPath != nil {
		fmt.Fprintf(os.Stdout, "Backup: %s\n", *resp.BackupPath)
	}
}

// confirm asks on the terminal. Without one there is nobody to answer, so it
// declines and the caller has to pass --yes.
func confirm(prompt string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		logrus.Warn("stdin is not a terminal; pass --yes to delete without confirmation")
		return false
	}
	fmt.Fprintf(os.Stdout, "%s? [y/N] ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "j", "ja":
		return true
	default:
		return false
	}
}

// scanOutput is the --json shape of a finished scan.
type scanOutput struct {
	ScanID     int64                            `json:"scan_id"`
	Status     string                           `json:"status"`
	TotalFiles int64                            `json:"total_files"`
	TotalSize  int64                            `json:"total_size"`
	Categories []string                         `json:"categories"`
	Results    map[string]apigen.CategoryResult `json:"results"`
}

func scanView(s store.Scan) scanOutput {
	return scanOutput{
		ScanID:     s.ID,
		Status:     s.Status,
		TotalFiles: s.TotalFiles,
		TotalSize:  s.TotalSize,
		Categories: s.Categories,
		Results:    s.Results,
	}
}

func printScan(s store.Scan) {
	fmt.Fprintf(os.Stdout, "Scan #%d: %s files, %s\n", s.ID, humanize.Comma(s.TotalFiles), humanBytes(s.TotalSize))
	names := make([]string, 0, len(s.Results))
	for name := range s.Results {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		res := s.Results[name]
		fmt.Fprintf(os.Stdout, "\n%s: %d items, %s\n", name, res.TotalCount, humanBytes(res.TotalSize))
		for i, it := range res.Items {
			if i == itemsShown {
				fmt.Fprintf(os.Stdout, "  ... %d more\n", len(res.Items)-itemsShown)
				break
			}
			fmt.Fprintf(os.Stdout, "  %10s  %s\n", humanBytes(it.Size), it.Path)
		}
	}
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ensigniasec/cleaner-client/internal/api"
	"github.com/ensigniasec/cleaner-client/internal/config"
	"github.com/ensigniasec/cleaner-client/internal/notify"
	"github.com/ensigniasec/cleaner-client/internal/storage"
	"github.com/ensigniasec/cleaner-client/internal/validate"
)

//nolint:gochecknoglobals // Cobra requires package-level vars for flag bindings in current structure.
var (
	// Used for flags.
	configPath string
	apiURL     string
	apiToken   string
	userID     string
	verbose    bool
	jsonOutput bool
	tuiMode    bool

	rootCmd = &cobra.Command{
		Use:   "cleanerctl",
		Short: "Terminal front end for the system cleaner backend.",
		Long: `cleanerctl talks to a running system cleaner backend: it shows system information, ` +
			`starts scans, follows their progress, deletes the selected findings and manages settings and local preferences.`,
		SilenceUsage: true,
	}
)

//nolint:gochecknoinits // Cobra command wiring performed in init in current structure.
func init() {
	// Route logs to stderr to avoid polluting stdout, especially for --json output.
	logrus.SetOutput(os.Stderr)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the YAML config file (default "+config.DefaultPath+")")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend API base URL, e.g. http://localhost:8000/api")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "", "Bearer token sent with every request")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "", "User id for scans, cleanups and settings")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable detailed logging output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output results in JSON format instead of rich text")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		setLogLevel()
	}

	rootCmd.AddCommand(infoCmd, statusCmd, usageCmd, processesCmd)
	rootCmd.AddCommand(scanCmd, historyCmd, autoscanCmd)
	rootCmd.AddCommand(chatCmd, modelsCmd)
	rootCmd.AddCommand(settingsCmd, prefsCmd)
	rootCmd.AddCommand(watchCmd, configCmd)

	// Built-in version flag: set version string and a custom template.
	rootCmd.Version = api.BuildVersion
	rootCmd.Annotations = map[string]string{"commit": api.BuildCommit, "date": api.BuildDate}
	rootCmd.SetVersionTemplate("{{printf \"%s %s\\ncommit: %s\\ndate: %s\\n\" .DisplayName .Version (index .Annotations \"commit\") (index .Annotations \"date\")}}")
}

// setLogLevel applies --verbose, --json and --tui.
func setLogLevel() {
	switch {
	case verbose:
		logrus.SetLevel(logrus.DebugLevel)
	case jsonOutput || tuiMode:
		logrus.SetLevel(logrus.WarnLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fail(err)
	}
}

func main() {
	Execute()
}

// fail exits with status 1. Errors raised by the API client were already
// reported as toasts, so they are not logged a second time.
func fail(err error) {
	switch api.Classify(err) {
	case api.KindUnknown, api.KindNone, api.KindCanceled:
		logrus.Fatal(err)
	default:
		logrus.Debug(err)
		os.Exit(1)
	}
}

// app bundles what most commands need.
type app struct {
	cfg    config.Config
	prefs  *storage.Storage
	center *notify.Center
	client *api.Client
}

// loadConfig reads the config file and environment, then applies the global flags.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if apiURL != "" {
		cfg.APIURL = strings.TrimRight(apiURL, "/")
	}
	if apiToken != "" {
		cfg.Token = apiToken
	}
	if userID != "" {
		cfg.UserID = userID
	}
	if err := validate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newApp loads configuration and preferences and connects to the backend.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	prefs, err := storage.NewOrExistingStorage(cfg.PreferencesPath)
	if err != nil {
		return nil, fmt.Errorf("unable to open or create preferences: %w", err)
	}
	center := notify.NewCenter(prefs.Preferences().Language, notify.LogSink{Logger: logrus.StandardLogger()})

	client, err := api.NewClient(
		api.WithBaseURL(cfg.APIURL),
		api.WithToken(cfg.Token),
		api.WithUserID(cfg.UserID),
		api.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		api.WithErrorReporter(center),
	)
	if errors.Is(err, api.ErrOffline) {
		center.Failure(notify.KeyOffline, cfg.APIURL)
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("api client init failed: %w", err)
	}
	return &app{cfg: cfg, prefs: prefs, center: center, client: client}, nil
}

// mustApp is newApp for command handlers.
func mustApp() *app {
	a, err := newApp()
	if err != nil {
		fail(err)
	}
	return a
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logrus.Fatalf("encoding output: %v", err)
	}
}

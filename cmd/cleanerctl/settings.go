package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ensigniasec/cleaner-client/internal/notify"
	"github.com/ensigniasec/cleaner-client/internal/storage"
	"github.com/ensigniasec/cleaner-client/internal/validate"
)

//nolint:gochecknoglobals // flag bindings shared by `settings set` and `prefs set`.
var (
	setTheme       string
	setLanguage    string
	setAutoScan    bool
	setDataSharing bool
	setCategories  []string
)

//nolint:gochecknoinits // Cobra command wiring.
func init() {
	for _, c := range []*cobra.Command{settingsSetCmd, prefsSetCmd} {
		c.Flags().StringVar(&setTheme, "theme", "", "Theme: "+strings.Join(validate.Themes, ", "))
		c.Flags().StringVar(&setLanguage, "language", "", "Language: "+strings.Join(validate.Languages, ", "))
		c.Flags().BoolVar(&setAutoScan, "auto-scan", false, "Scan automatically on start")
		c.Flags().BoolVar(&setDataSharing, "data-sharing", false, "Share anonymous usage data")
	}
	settingsSetCmd.Flags().StringSliceVar(&setCategories, "categories", nil, "Default scan categories")

	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)
	prefsCmd.AddCommand(prefsShowCmd, prefsSetCmd, prefsPathCmd)
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the settings stored on the backend",
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the backend settings of the current user",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		s, err := a.client.GetSettings(cmd.Context(), a.cfg.UserID)
		if err != nil {
			fail(err)
		}
		if jsonOutput {
			printJSON(s)
			return
		}
		fmt.Fprintf(os.Stdout, "User:          %s\n", s.UserID)
		fmt.Fprintf(os.Stdout, "Theme:         %s\n", s.Theme)
		fmt.Fprintf(os.Stdout, "Language:      %s\n", s.Language)
		fmt.Fprintf(os.Stdout, "Auto scan:     %t\n", s.AutoScanEnabled)
		fmt.Fprintf(os.Stdout, "Data sharing:  %t\n", s.DataSharingEnabled)
		fmt.Fprintf(os.Stdout, "Categories:    %s\n", strings.Join(s.SelectedCategories, ", "))
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change backend settings; only the given flags are updated",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		s, err := a.client.GetSettings(cmd.Context(), a.cfg.UserID)
		if err != nil {
			fail(err)
		}
		f := cmd.Flags()
		if f.Changed("theme") {
			if err := validate.Var(setTheme, "theme"); err != nil {
				logrus.Fatalf("Invalid theme %q, expected one of %s", setTheme, strings.Join(validate.Themes, ", "))
			}
			s.Theme = setTheme
		}
		if f.Changed("language") {
			if err := validate.Var(setLanguage, "language"); err != nil {
				logrus.Fatalf("Invalid language %q, expected one of %s", setLanguage, strings.Join(validate.Languages, ", "))
			}
			s.Language = setLanguage
		}
		if f.Changed("auto-scan") {
			s.AutoScanEnabled = setAutoScan
		}
		if f.Changed("data-sharing") {
			s.DataSharingEnabled = setDataSharing
		}
		if f.Changed("categories") {
			s.SelectedCategories = setCategories
		}
		resp, err := a.client.UpdateSettings(cmd.Context(), s)
		if err != nil {
			fail(err)
		}
		if jsonOutput {
			printJSON(resp)
			return
		}
		a.center.Success(notify.KeySettingsSaved, resp.Message)
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or change the local preferences",
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var prefsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the local preferences",
	Run: func(cmd *cobra.Command, args []string) {
		s := openPrefs()
		p := s.Preferences()
		if jsonOutput {
			printJSON(p)
			return
		}
		fmt.Fprintf(os.Stdout, "Theme:         %s\n", p.Theme)
		fmt.Fprintf(os.Stdout, "Language:      %s\n", p.Language)
		fmt.Fprintf(os.Stdout, "Auto scan:     %t\n", p.AutoScan)
		fmt.Fprintf(os.Stdout, "Data sharing:  %t\n", p.DataSharing)
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var prefsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change local preferences; only the given flags are updated",
	Run: func(cmd *cobra.Command, args []string) {
		s := openPrefs()
		f := cmd.Flags()
		err := s.Update(func(p *storage.Preferences) {
			if f.Changed("theme") {
				p.Theme = setTheme
			}
			if f.Changed("language") {
				p.Language = setLanguage
			}
			if f.Changed("auto-scan") {
				p.AutoScan = setAutoScan
			}
			if f.Changed("data-sharing") {
				p.DataSharing = setDataSharing
			}
		})
		if err != nil {
			logrus.Fatalf("Invalid preferences: %v", err)
		}
		notify.NewCenter(s.Preferences().Language, notify.LogSink{Logger: logrus.StandardLogger()}).
			Success(notify.KeySettingsSaved, s.Path)
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var prefsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the preferences file location",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(os.Stdout, openPrefs().Path)
	},
}

// openPrefs opens the preferences file without contacting the backend.
func openPrefs() *storage.Storage {
	cfg, err := loadConfig()
	if err != nil {
		logrus.Fatal(err)
	}
	s, err := storage.NewOrExistingStorage(cfg.PreferencesPath)
	if err != nil {
		logrus.Fatalf("Unable to open or create preferences: %v", err)
	}
	return s
}

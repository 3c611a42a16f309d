package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration (file, environment and flags) with the token masked",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			logrus.Fatal(err)
		}
		cfg = cfg.Redacted()
		if jsonOutput {
			printJSON(cfg)
			return
		}
		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close()
		if err := enc.Encode(cfg); err != nil {
			logrus.Fatal(err)
		}
	},
}

package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/rowanfield/ccledger/internal/cli"
	"github.com/rowanfield/ccledger/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg := loadConfig()

	state := "defaults (no file)"
	if config.Exists() {
		state = config.ConfigPath()
	}

	rows := [][]string{
		{"config", state},
		{"log_dir", config.LogDir(cfg)},
		{"db_path", config.DBPath(cfg)},
		{"watch.interval", cfg.Watch.Interval().String()},
		{"watch.recency_window", cfg.Watch.RecencyWindow().String()},
		{"pricing.version", config.PricingVersion(cfg)},
	}

	if n := len(cfg.Pricing.Overrides); n > 0 {
		names := make([]string, 0, n)
		for name := range cfg.Pricing.Overrides {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			rows = append(rows, []string{"pricing.override", name})
		}
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Configuration",
		Headers: []string{"Setting", "Value"},
		Rows:    rows,
	}))
	fmt.Println()
	return nil
}

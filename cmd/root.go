// Package cmd wires the ccledger command-line interface.
package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/rowanfield/ccledger/internal/config"
	"github.com/rowanfield/ccledger/internal/pricing"
	"github.com/rowanfield/ccledger/internal/store"
)

var (
	flagLogDir string
	flagDBPath string
	flagQuiet  bool
)

var rootCmd = &cobra.Command{
	Use:   "ccledger",
	Short: "Local usage ledger for coding-assistant session logs",
	Long: "ccledger ingests assistant session logs into a local SQLite ledger\n" +
		"and materializes daily and dimensional usage rollups.",
	RunE: runIngest,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagLogDir, "log-dir", "d", "", "Session log root (default ~/.claude)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Ledger database path")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
}

// loadConfig applies flag overrides on top of the config file.
func loadConfig() config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("config: %v, using defaults", err)
	}
	if flagLogDir != "" {
		cfg.General.LogDir = flagLogDir
	}
	if flagDBPath != "" {
		cfg.General.DBPath = flagDBPath
	}
	return cfg
}

// openStore opens the ledger database for the effective config.
func openStore(cfg config.Config) (*store.Store, error) {
	st, err := store.Open(config.DBPath(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	return st, nil
}

// newResolver builds the pricing resolver, with fallback warnings routed to
// stderr unless quieted.
func newResolver(cfg config.Config) (*pricing.Resolver, error) {
	warnf := func(format string, args ...any) {
		if !flagQuiet {
			fmt.Fprintf(os.Stderr, "  "+format+"\n", args...)
		}
	}
	return pricing.NewResolver(config.PriceTable(cfg), config.PricingVersion(cfg), warnf)
}

package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/rowanfield/ccledger/internal/cli"
	"github.com/rowanfield/ccledger/internal/config"
	"github.com/rowanfield/ccledger/internal/source"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive first-time setup",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	cfg := loadConfig()

	logDir := config.LogDir(cfg)
	dbPath := config.DBPath(cfg)
	interval := strconv.Itoa(cfg.Watch.IntervalSecs)
	confirm := true

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Session log directory").
				Description("Where the assistant writes its JSONL session logs.").
				Value(&logDir).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("log directory is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Ledger database path").
				Value(&dbPath),
			huh.NewSelect[string]().
				Title("Watch interval").
				Options(
					huh.NewOption("15 seconds", "15"),
					huh.NewOption("30 seconds (default)", "30"),
					huh.NewOption("60 seconds", "60"),
					huh.NewOption("5 minutes", "300"),
				).
				Value(&interval),
			huh.NewConfirm().
				Title("Save configuration?").
				Value(&confirm),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}
	if !confirm {
		fmt.Println("Setup aborted, nothing saved.")
		return nil
	}

	cfg.General.LogDir = logDir
	cfg.General.DBPath = dbPath
	if n, err := strconv.Atoi(interval); err == nil && n > 0 {
		cfg.Watch.IntervalSecs = n
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\n  Saved to %s\n", config.ConfigPath())

	files, err := source.ScanDir(logDir)
	if err == nil && len(files) > 0 {
		fmt.Printf("  Found %s session files across %d projects.\n",
			cli.FormatNumber(int64(len(files))), source.CountProjects(files))
		fmt.Println("  Run `ccledger ingest` to build the ledger.")
	} else {
		fmt.Fprintf(os.Stderr, "  No session files found under %s yet.\n", logDir)
	}
	fmt.Println()

	return nil
}

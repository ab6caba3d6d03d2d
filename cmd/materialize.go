package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rowanfield/ccledger/internal/cli"
	"github.com/rowanfield/ccledger/internal/pipeline"
)

var flagDates []string

var materializeCmd = &cobra.Command{
	Use:   "materialize",
	Short: "Rebuild rollup tables from the canonical ledger",
	Long: "Recompute daily summaries and dimensional rollups from the stored\n" +
		"turns, tool calls, and sessions. With no --date flags, every date is\n" +
		"rebuilt.",
	RunE: runMaterialize,
}

func init() {
	materializeCmd.Flags().StringArrayVar(&flagDates, "date", nil, "Restrict to a date (YYYY-MM-DD, repeatable)")
	rootCmd.AddCommand(materializeCmd)
}

func runMaterialize(_ *cobra.Command, _ []string) error {
	for _, d := range flagDates {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return fmt.Errorf("invalid date %q, want YYYY-MM-DD", d)
		}
	}

	cfg := loadConfig()
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	var dates []string
	if len(flagDates) > 0 {
		dates = flagDates
	}

	stats, err := pipeline.Materialize(st, dates, time.Local)
	if err != nil {
		return err
	}

	if !flagQuiet {
		scope := "all dates"
		if dates != nil {
			scope = fmt.Sprintf("%d date(s)", len(dates))
		}
		fmt.Printf("Materialized %s: %s daily rows, %s dimension rows\n",
			scope,
			cli.FormatNumber(int64(stats.DatesWritten)),
			cli.FormatNumber(int64(stats.DimensionRows)),
		)
	}
	return nil
}

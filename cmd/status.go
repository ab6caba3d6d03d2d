package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rowanfield/ccledger/internal/cli"
	"github.com/rowanfield/ccledger/internal/config"
	"github.com/rowanfield/ccledger/internal/model"
)

var (
	flagStatusDays int
	flagStatusBy   string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ledger contents and recent daily activity",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().IntVarP(&flagStatusDays, "days", "n", 14, "Daily rows to show")
	statusCmd.Flags().StringVar(&flagStatusBy, "by", "", "Dimension breakdown: model, project, branch, tool, language, version, kind, actor")
	rootCmd.AddCommand(statusCmd)
}

var statusDimensions = map[string]bool{
	model.DimModel: true, model.DimProject: true, model.DimBranch: true,
	model.DimTool: true, model.DimLanguage: true, model.DimVersion: true,
	model.DimKind: true, model.DimActor: true,
}

func runStatus(_ *cobra.Command, _ []string) error {
	if flagStatusBy != "" && !statusDimensions[flagStatusBy] {
		return fmt.Errorf("unknown dimension %q", flagStatusBy)
	}

	cfg := loadConfig()
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	counts, err := st.Count()
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("CCLEDGER STATUS"))
	fmt.Println()
	fmt.Printf("  Database: %s\n", config.DBPath(cfg))
	fmt.Printf("  Log dir:  %s\n\n", config.LogDir(cfg))

	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Ledger",
		Headers: []string{"Table", "Rows"},
		Rows: [][]string{
			{"sessions", cli.FormatNumber(int64(counts.Sessions))},
			{"turns", cli.FormatNumber(int64(counts.Turns))},
			{"tool calls", cli.FormatNumber(int64(counts.ToolCalls))},
			{"tracked files", cli.FormatNumber(int64(counts.Files))},
		},
	}))

	if flagStatusBy != "" {
		return printDimension(st, flagStatusBy)
	}
	return printDaily(st, flagStatusDays)
}

func printDaily(st statusStore, days int) error {
	rows, err := st.DailySummaries(days)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("  No rollups yet. Run `ccledger ingest` first.")
		fmt.Println()
		return nil
	}

	var table [][]string
	costs := make([]float64, 0, len(rows))
	for _, r := range rows {
		table = append(table, []string{
			r.Date,
			cli.FormatNumber(int64(r.Turns)),
			cli.FormatNumber(int64(r.ToolCalls)),
			cli.FormatPercent(r.ErrorRate),
			cli.FormatTokens(r.InputTokens + r.OutputTokens + r.CacheReadTokens + r.CacheWriteTokens),
			cli.FormatNetLines(r.NetLines),
			cli.FormatCost(r.Cost),
		})
		costs = append(costs, r.Cost)
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Title:   fmt.Sprintf("Daily (last %d)", len(rows)),
		Headers: []string{"Date", "Turns", "Tools", "Err", "Tokens", "Net LoC", "Cost"},
		Rows:    table,
	}))
	fmt.Printf("  cost trend  %s\n\n", cli.RenderSparkline(costs))
	return nil
}

func printDimension(st statusStore, dim string) error {
	rows, err := st.DimensionRollups(dim)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("  No rollups yet. Run `ccledger ingest` first.")
		fmt.Println()
		return nil
	}

	var table [][]string
	for _, r := range rows {
		table = append(table, []string{
			r.Key,
			cli.FormatNumber(int64(r.Turns)),
			cli.FormatNumber(int64(r.ToolCalls)),
			cli.FormatNumber(int64(r.ToolErrors)),
			cli.FormatTokens(r.InputTokens + r.OutputTokens + r.CacheReadTokens + r.CacheWriteTokens),
			cli.FormatCost(r.Cost),
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "By " + dim,
		Headers: []string{dim, "Turns", "Tools", "Errors", "Tokens", "Cost"},
		Rows:    table,
	}))
	fmt.Println()
	return nil
}

// statusStore is the slice of the store the status views read from.
type statusStore interface {
	DailySummaries(limit int) ([]model.DailySummary, error)
	DimensionRollups(dimension string) ([]model.DimensionRollup, error)
}

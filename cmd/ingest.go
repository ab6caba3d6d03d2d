package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rowanfield/ccledger/internal/cli"
	"github.com/rowanfield/ccledger/internal/config"
	"github.com/rowanfield/ccledger/internal/pipeline"
)

var flagForce bool

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest changed session logs and refresh touched rollups",
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&flagForce, "force", false, "Re-parse every file regardless of fingerprint")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(_ *cobra.Command, _ []string) error {
	cfg := loadConfig()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	resolver, err := newResolver(cfg)
	if err != nil {
		return err
	}

	progress := func(done, total int) {
		if flagQuiet {
			return
		}
		if done%50 == 0 || done == total {
			fmt.Fprintf(os.Stderr, "\r  Parsing [%d/%d]", done, total)
		}
	}

	stats, err := pipeline.Run(st, resolver, pipeline.Options{
		LogDir:        config.LogDir(cfg),
		Force:         flagForce,
		RecencyWindow: cfg.Watch.RecencyWindow(),
		Progress:      progress,
		Logf:          warnLogf(),
	})
	if err != nil {
		return err
	}
	if !flagQuiet && stats.FilesProcessed > 0 {
		fmt.Fprintf(os.Stderr, "\r%40s\r", "")
	}

	var mat *pipeline.MaterializeStats
	if len(stats.DatesTouched) > 0 {
		mat, err = pipeline.Materialize(st, stats.DatesTouched, time.Local)
		if err != nil {
			return err
		}
	}

	printRunStats(stats, mat)
	return nil
}

func printRunStats(stats *pipeline.RunStats, mat *pipeline.MaterializeStats) {
	rows := [][]string{
		{"Files seen", cli.FormatNumber(int64(stats.FilesSeen))},
		{"Processed", cli.FormatNumber(int64(stats.FilesProcessed))},
		{"Skipped (unchanged)", cli.FormatNumber(int64(stats.FilesSkipped))},
		{"Projects", cli.FormatNumber(int64(stats.Projects))},
		{"Entries", cli.FormatNumber(int64(stats.Entries))},
		{"New turns", cli.FormatNumber(int64(stats.NewTurns))},
		{"New tool calls", cli.FormatNumber(int64(stats.NewToolCalls))},
	}
	if stats.FilesErrored > 0 {
		rows = append(rows, []string{"File errors", cli.FormatNumber(int64(stats.FilesErrored))})
	}
	if stats.Malformed > 0 || stats.Invalid > 0 {
		rows = append(rows, []string{"Rejected lines",
			fmt.Sprintf("%d malformed, %d invalid", stats.Malformed, stats.Invalid)})
	}
	if mat != nil {
		rows = append(rows, []string{"Dates refreshed", cli.FormatNumber(int64(mat.DatesWritten))})
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Ingest",
		Headers: []string{"Metric", "Value"},
		Rows:    rows,
	}))
	fmt.Println()
}

func warnLogf() func(format string, args ...any) {
	return func(format string, args ...any) {
		if !flagQuiet {
			fmt.Fprintf(os.Stderr, "  "+format+"\n", args...)
		}
	}
}

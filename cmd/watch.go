package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/rowanfield/ccledger/internal/cli"
	"github.com/rowanfield/ccledger/internal/config"
	"github.com/rowanfield/ccledger/internal/pricing"
	"github.com/rowanfield/ccledger/internal/store"
	"github.com/rowanfield/ccledger/internal/tui"
	"github.com/rowanfield/ccledger/internal/watch"
)

var (
	flagInterval time.Duration
	flagTUI      bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Continuously ingest new session activity",
	Long: "Scan the log directory on an interval, ingest whatever changed,\n" +
		"and keep the rollups current. Stops cleanly on Ctrl-C.",
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVarP(&flagInterval, "interval", "i", 0, "Scan interval (default from config, 30s)")
	watchCmd.Flags().BoolVar(&flagTUI, "tui", false, "Render a live terminal view instead of line output")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(_ *cobra.Command, _ []string) error {
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

	interval := cfg.Watch.Interval()
	if flagInterval > 0 {
		interval = flagInterval
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if !flagTUI || flagQuiet {
		return runWatchPlain(ctx, st, resolver, cfg, interval)
	}

	cycles := make(chan watch.CycleStats, 4)
	w := watch.New(st, resolver, watch.Config{
		LogDir:        config.LogDir(cfg),
		Interval:      interval,
		RecencyWindow: cfg.Watch.RecencyWindow(),
		OnCycle: func(cs watch.CycleStats) {
			select {
			case cycles <- cs:
			default:
			}
		},
	})

	watchDone := make(chan error, 1)
	go func() {
		watchDone <- w.Run(ctx)
		close(cycles)
	}()

	view := tui.NewWatchView(w, cycles, cancel)
	if _, err := tea.NewProgram(view, tea.WithContext(ctx)).Run(); err != nil && ctx.Err() == nil {
		cancel()
		<-watchDone
		return fmt.Errorf("watch view: %w", err)
	}

	cancel()
	return <-watchDone
}

func runWatchPlain(ctx context.Context, st *store.Store, resolver *pricing.Resolver, cfg config.Config, interval time.Duration) error {
	w := watch.New(st, resolver, watch.Config{
		LogDir:        config.LogDir(cfg),
		Interval:      interval,
		RecencyWindow: cfg.Watch.RecencyWindow(),
		Logf:          warnLogf(),
		OnCycle: func(cs watch.CycleStats) {
			if flagQuiet || cs.Run == nil {
				return
			}
			if cs.Run.NewTurns == 0 && cs.Run.NewToolCalls == 0 && cs.Err == nil {
				return
			}
			line := fmt.Sprintf("%s  +%s turns, +%s tool calls (%d files)",
				cs.Finished.Format("15:04:05"),
				cli.FormatNumber(int64(cs.Run.NewTurns)),
				cli.FormatNumber(int64(cs.Run.NewToolCalls)),
				cs.Run.FilesProcessed,
			)
			if cs.Err != nil {
				line += "  " + cli.Error(cs.Err.Error())
			}
			fmt.Println(line)
		},
	})

	if !flagQuiet {
		fmt.Printf("Watching %s every %s. Ctrl-C to stop.\n", config.LogDir(cfg), interval)
	}
	return w.Run(ctx)
}

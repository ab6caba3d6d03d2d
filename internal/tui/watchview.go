// Package tui provides the live terminal view for the watch loop.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rowanfield/ccledger/internal/cli"
	"github.com/rowanfield/ccledger/internal/watch"
)

// tickMsg drives the periodic redraw.
type tickMsg time.Time

// cycleMsg carries a completed watch cycle into the model.
type cycleMsg watch.CycleStats

// WatchView is a compact live dashboard over a running watcher. The watcher
// runs in its own goroutine; the view only observes it.
type WatchView struct {
	watcher *watch.Watcher
	cycles  <-chan watch.CycleStats
	cancel  func()

	spin    spinner.Model
	started time.Time
	last    *watch.CycleStats

	totalNewTurns int
	totalNewCalls int
	cycleCount    int

	width int
	done  bool
}

// NewWatchView builds the view. cycles receives each completed cycle (wire
// it to the watcher's OnCycle callback); cancel stops the watcher when the
// user quits.
func NewWatchView(w *watch.Watcher, cycles <-chan watch.CycleStats, cancel func()) *WatchView {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(cli.ColorAccent)

	return &WatchView{
		watcher: w,
		cycles:  cycles,
		cancel:  cancel,
		spin:    sp,
		started: time.Now(),
	}
}

// Init implements tea.Model.
func (v *WatchView) Init() tea.Cmd {
	return tea.Batch(v.spin.Tick, v.waitForCycle(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (v *WatchView) waitForCycle() tea.Cmd {
	return func() tea.Msg {
		cs, ok := <-v.cycles
		if !ok {
			return nil
		}
		return cycleMsg(cs)
	}
}

// Update implements tea.Model.
func (v *WatchView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			v.done = true
			v.cancel()
			return v, tea.Quit
		}

	case tea.WindowSizeMsg:
		v.width = msg.Width

	case tickMsg:
		return v, tick()

	case cycleMsg:
		cs := watch.CycleStats(msg)
		v.last = &cs
		v.cycleCount++
		if cs.Run != nil {
			v.totalNewTurns += cs.Run.NewTurns
			v.totalNewCalls += cs.Run.NewToolCalls
		}
		return v, v.waitForCycle()

	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spin, cmd = v.spin.Update(msg)
		return v, cmd
	}

	return v, nil
}

var (
	viewTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(cli.ColorText)
	viewLabelStyle = lipgloss.NewStyle().Foreground(cli.ColorTextMuted)
	viewValueStyle = lipgloss.NewStyle().Foreground(cli.ColorText)
	viewStateStyle = lipgloss.NewStyle().Foreground(cli.ColorAccent)
	viewErrStyle   = lipgloss.NewStyle().Foreground(cli.ColorRed)
	viewBoxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(cli.ColorBorder).
			Padding(0, 2)
)

// View implements tea.Model.
func (v *WatchView) View() string {
	if v.done {
		return ""
	}

	var b strings.Builder

	state := v.watcher.State()
	b.WriteString(fmt.Sprintf("%s %s  %s\n\n",
		v.spin.View(),
		viewTitleStyle.Render("ccledger watch"),
		viewStateStyle.Render(state.String()),
	))

	row := func(label, value string) {
		b.WriteString(fmt.Sprintf("  %s %s\n",
			viewLabelStyle.Render(fmt.Sprintf("%-14s", label)),
			viewValueStyle.Render(value),
		))
	}

	row("uptime", cli.FormatDuration(int64(time.Since(v.started).Seconds())))
	row("cycles", cli.FormatNumber(int64(v.cycleCount)))
	row("new turns", cli.FormatNumber(int64(v.totalNewTurns)))
	row("new tool calls", cli.FormatNumber(int64(v.totalNewCalls)))

	if v.last != nil {
		b.WriteString("\n")
		b.WriteString(viewLabelStyle.Render("  last cycle"))
		b.WriteString("\n")
		if run := v.last.Run; run != nil {
			row("files", fmt.Sprintf("%d seen, %d processed, %d skipped",
				run.FilesSeen, run.FilesProcessed, run.FilesSkipped))
			row("entries", cli.FormatNumber(int64(run.Entries)))
			if run.Malformed > 0 || run.Invalid > 0 {
				row("rejected", fmt.Sprintf("%d malformed, %d invalid", run.Malformed, run.Invalid))
			}
		}
		if m := v.last.Materialized; m != nil {
			row("materialized", fmt.Sprintf("%d dates, %d dimension rows", m.DatesWritten, m.DimensionRows))
		}
		if v.last.Err != nil {
			b.WriteString(fmt.Sprintf("  %s\n", viewErrStyle.Render(v.last.Err.Error())))
		}
	}

	b.WriteString("\n")
	b.WriteString(viewLabelStyle.Render("  q to quit"))
	b.WriteString("\n")

	return viewBoxStyle.Render(b.String()) + "\n"
}

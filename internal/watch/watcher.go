// Package watch provides the long-running ingest loop: scan the log
// directory on an interval, ingest whatever changed, and rematerialize the
// touched dates.
package watch

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rowanfield/ccledger/internal/pipeline"
	"github.com/rowanfield/ccledger/internal/pricing"
	"github.com/rowanfield/ccledger/internal/source"
	"github.com/rowanfield/ccledger/internal/store"
)

// State is the watcher's externally visible phase.
type State int

// Watcher states. Transitions only happen on cycle boundaries, so a stop
// request never interrupts a half-written file.
const (
	StateIdle State = iota
	StateScanning
	StateProcessing
	StateSleeping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateProcessing:
		return "processing"
	case StateSleeping:
		return "sleeping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config controls the watch loop.
type Config struct {
	LogDir        string
	Interval      time.Duration
	RecencyWindow time.Duration
	Logf          func(format string, args ...any)

	// OnFile, when non-nil, receives per-file parse progress within a cycle.
	OnFile pipeline.ProgressFunc

	// OnCycle, when non-nil, receives every completed cycle's stats.
	OnCycle func(CycleStats)
}

// CycleStats summarizes one watch cycle.
type CycleStats struct {
	Started      time.Time
	Finished     time.Time
	Run          *pipeline.RunStats
	Materialized *pipeline.MaterializeStats
	Err          error
}

// fingerprint is the watcher's own change signal for one file. It is held
// in memory only, never persisted, so a fresh watcher treats every file as
// changed on its first cycle and re-reads it in full.
type fingerprint struct {
	mtimeNs int64
	size    int64
}

// Watcher drives repeated ingest runs against one store.
type Watcher struct {
	cfg      Config
	st       *store.Store
	resolver *pricing.Resolver

	// seen is only touched from Cycle, which callers must not run
	// concurrently with itself.
	seen map[string]fingerprint

	mu        sync.RWMutex
	state     State
	cycles    int64
	lastCycle CycleStats
}

// New returns a watcher with defaults applied: 30 second interval, 2 minute
// recency window.
func New(st *store.Store, resolver *pricing.Resolver, cfg Config) *Watcher {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.RecencyWindow < 0 {
		cfg.RecencyWindow = 0
	} else if cfg.RecencyWindow == 0 {
		cfg.RecencyWindow = 2 * time.Minute
	}
	return &Watcher{cfg: cfg, st: st, resolver: resolver, seen: make(map[string]fingerprint)}
}

// State returns the current phase.
func (w *Watcher) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// LastCycle returns the most recent completed cycle's stats.
func (w *Watcher) LastCycle() (CycleStats, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastCycle, w.cycles > 0
}

// Cycles returns how many cycles have completed.
func (w *Watcher) Cycles() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cycles
}

func (w *Watcher) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// markChanged diffs every discovered file against the watcher's in-memory
// fingerprints and clears the persisted ingest state of each changed file,
// forcing the following pipeline run to re-read it in full regardless of
// what the persisted detector alone would decide. A file counts as changed
// when its fingerprint differs (or was never seen by this watcher) or its
// mtime falls inside the recency window.
func (w *Watcher) markChanged() error {
	files, err := source.ScanDir(w.cfg.LogDir)
	if err != nil {
		return err
	}

	now := time.Now()
	onDisk := make(map[string]struct{}, len(files))
	for _, f := range files {
		onDisk[f.Path] = struct{}{}

		info, err := os.Stat(f.Path)
		if err != nil {
			// Vanished or unreadable; the pipeline deals with it.
			continue
		}
		fp := fingerprint{info.ModTime().UnixNano(), info.Size()}
		prev, known := w.seen[f.Path]
		recent := w.cfg.RecencyWindow > 0 && now.Sub(info.ModTime()) < w.cfg.RecencyWindow
		w.seen[f.Path] = fp
		if known && prev == fp && !recent {
			continue
		}
		if err := w.st.DeleteIngestState(f.Path); err != nil {
			if w.cfg.Logf != nil {
				w.cfg.Logf("clearing ingest state for %s: %v", f.Path, err)
			}
		}
	}

	for path := range w.seen {
		if _, ok := onDisk[path]; !ok {
			delete(w.seen, path)
		}
	}
	return nil
}

// Cycle runs one scan-ingest-materialize pass synchronously. Changed files
// have their persisted ingest state cleared up front, so they are re-read
// from byte zero; identifier dedup makes that harmless. Per-file errors are
// absorbed by the ingest run, so Err is only set when the whole cycle
// cannot proceed.
func (w *Watcher) Cycle() CycleStats {
	cs := CycleStats{Started: time.Now()}

	w.setState(StateScanning)
	if err := w.markChanged(); err != nil {
		cs.Err = err
		cs.Finished = time.Now()

		w.mu.Lock()
		w.cycles++
		w.lastCycle = cs
		w.mu.Unlock()

		if w.cfg.OnCycle != nil {
			w.cfg.OnCycle(cs)
		}
		return cs
	}

	run, err := pipeline.Run(w.st, w.resolver, pipeline.Options{
		LogDir:        w.cfg.LogDir,
		RecencyWindow: w.cfg.RecencyWindow,
		Progress:      w.cfg.OnFile,
		Logf:          w.cfg.Logf,
	})
	cs.Run = run
	if err != nil {
		cs.Err = err
	} else if len(run.DatesTouched) > 0 {
		w.setState(StateProcessing)
		cs.Materialized, cs.Err = pipeline.Materialize(w.st, run.DatesTouched, time.Local)
	}
	cs.Finished = time.Now()

	w.mu.Lock()
	w.cycles++
	w.lastCycle = cs
	w.mu.Unlock()

	if w.cfg.OnCycle != nil {
		w.cfg.OnCycle(cs)
	}
	return cs
}

// Run loops Cycle until the context is canceled. Each sleep is the interval
// minus the time the cycle took, floored at zero so a slow cycle rolls
// straight into the next scan. Cancellation is honored between cycles and
// during the sleep, never mid-cycle.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.setState(StateStopped)

	for {
		if ctx.Err() != nil {
			return nil
		}

		cs := w.Cycle()
		if cs.Err != nil && w.cfg.Logf != nil {
			w.cfg.Logf("watch cycle: %v", cs.Err)
		}

		sleep := w.cfg.Interval - cs.Finished.Sub(cs.Started)
		if sleep < 0 {
			sleep = 0
		}

		w.setState(StateSleeping)
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// Package pipeline orchestrates ingestion of session logs into the ledger
// and materialization of derived rollups.
package pipeline

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/rowanfield/ccledger/internal/model"
	"github.com/rowanfield/ccledger/internal/pricing"
	"github.com/rowanfield/ccledger/internal/source"
	"github.com/rowanfield/ccledger/internal/store"
)

// ProgressFunc reports files completed out of the total selected for parsing.
type ProgressFunc func(done, total int)

// Options controls one ingest run.
type Options struct {
	LogDir string

	// Force re-parses every discovered file regardless of fingerprint.
	Force bool

	// RecencyWindow re-parses files modified this recently even when the
	// fingerprint matches, to catch a writer that appended within the same
	// mtime granularity.
	RecencyWindow time.Duration

	Progress ProgressFunc
	Logf     func(format string, args ...any)

	// now is stubbed in tests.
	now func() time.Time
}

// RunStats summarizes one ingest run.
type RunStats struct {
	FilesSeen      int
	FilesProcessed int
	FilesSkipped   int
	FilesErrored   int
	Projects       int

	Entries   int
	Malformed int
	Invalid   int

	NewTurns     int
	NewToolCalls int

	// StatesPruned counts fingerprints dropped because their file vanished.
	StatesPruned int

	// DatesTouched are the local civil dates with activity in the files
	// that were processed, sorted ascending. They bound the scope a
	// follow-up materialization needs.
	DatesTouched []string
}

// fileExtractResult pairs a parse outcome with its source file.
type fileExtractResult struct {
	file    source.DiscoveredFile
	extract *source.FileExtract
	stats   source.ReadStats
	mtimeNs int64
	size    int64
	err     error
}

// Run ingests every changed file under the log directory. Files are
// processed strictly one at a time, parse then commit, one transaction per
// file. A file that vanishes or is locked mid-run is skipped, not fatal:
// the next run picks it up.
func Run(st *store.Store, resolver *pricing.Resolver, opts Options) (*RunStats, error) {
	if opts.now == nil {
		opts.now = time.Now
	}
	logf := opts.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	files, err := source.ScanDir(opts.LogDir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", opts.LogDir, err)
	}

	stats := &RunStats{
		FilesSeen: len(files),
		Projects:  source.CountProjects(files),
	}

	states, err := st.IngestStates()
	if err != nil {
		return nil, fmt.Errorf("reading ingest state: %w", err)
	}

	// Drop fingerprints for files that no longer exist. Canonical rows stay:
	// a deleted log does not un-happen the activity it recorded.
	onDisk := make(map[string]struct{}, len(files))
	for _, f := range files {
		onDisk[f.Path] = struct{}{}
	}
	for path := range states {
		if _, ok := onDisk[path]; ok {
			continue
		}
		if err := st.DeleteIngestState(path); err != nil {
			logf("pruning state for %s: %v", path, err)
			continue
		}
		stats.StatesPruned++
	}

	if len(files) == 0 {
		return stats, nil
	}

	type candidate struct {
		file    source.DiscoveredFile
		mtimeNs int64
		size    int64
	}
	var toParse []candidate
	now := opts.now()

	for _, f := range files {
		info, err := os.Stat(f.Path)
		if err != nil {
			stats.FilesErrored++
			logf("stat %s: %v", f.Path, err)
			continue
		}
		mtimeNs, size := info.ModTime().UnixNano(), info.Size()

		if !opts.Force {
			prev, tracked := states[f.Path]
			unchanged := tracked && prev.MtimeNs == mtimeNs && prev.SizeBytes == size
			recent := opts.RecencyWindow > 0 && now.Sub(info.ModTime()) < opts.RecencyWindow
			if unchanged && !recent {
				stats.FilesSkipped++
				continue
			}
		}

		toParse = append(toParse, candidate{f, mtimeNs, size})
	}

	if len(toParse) == 0 {
		return stats, nil
	}

	dates := make(map[string]struct{})
	for i, c := range toParse {
		r := parseFile(c.file, resolver)
		r.mtimeNs = c.mtimeNs
		r.size = c.size
		if opts.Progress != nil {
			opts.Progress(i+1, len(toParse))
		}

		if r.err != nil {
			stats.FilesErrored++
			if source.IsNotFound(r.err) || source.IsTransient(r.err) {
				logf("skipping %s: %v", r.file.Path, r.err)
			} else {
				logf("reading %s: %v", r.file.Path, r.err)
			}
			continue
		}

		ex := r.extract
		sess := ex.Session
		sess.FileMtimeNs = r.mtimeNs
		sess.FileSize = r.size

		state := &model.FileIngestState{
			FilePath:    r.file.Path,
			MtimeNs:     r.mtimeNs,
			SizeBytes:   r.size,
			ProcessedAt: now,
			EntryCount:  ex.Entries,
			ErrorCount:  r.stats.Malformed + ex.Invalid,
		}

		saved, err := st.SaveFile(&sess, ex.Turns, ex.ToolCalls, state)
		if err != nil {
			stats.FilesErrored++
			logf("saving %s: %v", r.file.Path, err)
			continue
		}

		stats.FilesProcessed++
		stats.Entries += ex.Entries
		stats.Malformed += r.stats.Malformed
		stats.Invalid += ex.Invalid
		stats.NewTurns += saved.NewTurns
		stats.NewToolCalls += saved.NewToolCalls

		for j := range ex.Turns {
			dates[LocalDate(ex.Turns[j].Timestamp, time.Local)] = struct{}{}
		}
	}

	stats.DatesTouched = make([]string, 0, len(dates))
	for d := range dates {
		stats.DatesTouched = append(stats.DatesTouched, d)
	}
	sort.Strings(stats.DatesTouched)
	if len(stats.DatesTouched) == 0 {
		stats.DatesTouched = nil
	}

	return stats, nil
}

// parseFile streams one file through an extractor. The whole file is always
// re-read; there is no byte-offset resume, so a rewritten or truncated file
// simply yields the same identifiers it did before.
func parseFile(f source.DiscoveredFile, resolver *pricing.Resolver) fileExtractResult {
	x := source.NewExtractor(f, resolver)
	stats, err := source.Stream(f.Path, func(_ int, e *source.RawEntry) error {
		x.Add(e)
		return nil
	})
	if err != nil {
		return fileExtractResult{file: f, err: err}
	}
	return fileExtractResult{file: f, extract: x.Finish(), stats: stats}
}

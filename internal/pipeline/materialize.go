package pipeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/rowanfield/ccledger/internal/model"
	"github.com/rowanfield/ccledger/internal/store"
)

// MaterializeStats summarizes one rollup rebuild.
type MaterializeStats struct {
	DatesWritten  int
	DimensionRows int
}

// LocalDate formats a timestamp as a civil date in the given location.
// Rollups bucket by the user's wall-clock day, not UTC.
func LocalDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// Materialize rebuilds the daily_summary rows for the given dates from the
// canonical tables, and the dimensional rollups in full. A nil date scope
// rebuilds every date. Rows in scope are deleted and rewritten wholesale,
// so running twice with the same canonical data is a no-op.
//
// Each canonical table is aggregated independently by date, then the
// partials are merged with an outer union: a date that has tool calls but
// no turns (or the reverse) still gets a complete row.
func Materialize(st *store.Store, dates []string, loc *time.Location) (*MaterializeStats, error) {
	if loc == nil {
		loc = time.Local
	}

	sessions, err := st.AllSessions()
	if err != nil {
		return nil, fmt.Errorf("reading sessions: %w", err)
	}
	turns, err := st.AllTurns()
	if err != nil {
		return nil, fmt.Errorf("reading turns: %w", err)
	}
	calls, err := st.AllToolCalls()
	if err != nil {
		return nil, fmt.Errorf("reading tool calls: %w", err)
	}

	var scope map[string]struct{}
	if dates != nil {
		scope = make(map[string]struct{}, len(dates))
		for _, d := range dates {
			scope[d] = struct{}{}
		}
	}
	inScope := func(date string) bool {
		if scope == nil {
			return true
		}
		_, ok := scope[date]
		return ok
	}

	byDate := make(map[string]*model.DailySummary)
	row := func(date string) *model.DailySummary {
		ds, ok := byDate[date]
		if !ok {
			ds = &model.DailySummary{Date: date}
			byDate[date] = ds
		}
		return ds
	}

	// Partial aggregate: sessions, attributed to their first activity.
	for i := range sessions {
		s := &sessions[i]
		if s.FirstTime.IsZero() {
			continue
		}
		date := LocalDate(s.FirstTime, loc)
		if !inScope(date) {
			continue
		}
		row(date).Sessions++
	}

	// Partial aggregate: turns.
	for i := range turns {
		t := &turns[i]
		date := LocalDate(t.Timestamp, loc)
		if !inScope(date) {
			continue
		}
		ds := row(date)
		ds.Turns++
		ds.InputTokens += t.Usage.Input
		ds.OutputTokens += t.Usage.Output
		ds.CacheReadTokens += t.Usage.CacheRead
		ds.CacheWriteTokens += t.Usage.CacheWrite
		ds.ThinkingChars += t.ThinkingChars
		ds.Cost += t.Cost
	}

	// Partial aggregate: tool calls.
	for i := range calls {
		c := &calls[i]
		date := LocalDate(c.Timestamp, loc)
		if !inScope(date) {
			continue
		}
		ds := row(date)
		ds.ToolCalls++
		if !c.Success {
			ds.ToolErrors++
		}
		ds.LinesWritten += c.LinesWritten
		ds.LinesAdded += c.LinesAdded
		ds.LinesDeleted += c.LinesDeleted
	}

	rows := make([]model.DailySummary, 0, len(byDate))
	for _, ds := range byDate {
		if ds.ToolCalls > 0 {
			ds.ErrorRate = float64(ds.ToolErrors) / float64(ds.ToolCalls)
		}
		ds.NetLines = ds.LinesAdded - ds.LinesDeleted
		rows = append(rows, *ds)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })

	if err := st.ReplaceDailySummaries(dates, rows); err != nil {
		return nil, fmt.Errorf("writing daily summaries: %w", err)
	}

	dims := buildDimensions(sessions, turns, calls)
	if err := st.ReplaceDimensionRollups(dims); err != nil {
		return nil, fmt.Errorf("writing dimension rollups: %w", err)
	}

	return &MaterializeStats{DatesWritten: len(rows), DimensionRows: len(dims)}, nil
}

// buildDimensions computes the dimensional rollups from scratch. Unlike the
// daily table these are never date-scoped: the whole set is cheap to rebuild
// and partial rebuilds would leave stale keys behind.
func buildDimensions(sessions []model.Session, turns []model.Turn, calls []model.ToolCall) []model.DimensionRollup {
	acc := make(map[[2]string]*model.DimensionRollup)
	get := func(dim, key string) *model.DimensionRollup {
		if key == "" {
			return nil
		}
		k := [2]string{dim, key}
		r, ok := acc[k]
		if !ok {
			r = &model.DimensionRollup{Dimension: dim, Key: key}
			acc[k] = r
		}
		return r
	}

	sessIdx := make(map[string]*model.Session, len(sessions))
	for i := range sessions {
		sessIdx[sessions[i].SessionID] = &sessions[i]
	}
	turnIdx := make(map[string]*model.Turn, len(turns))
	for i := range turns {
		turnIdx[turns[i].UUID] = &turns[i]
	}

	actorOf := func(sessionID string) string {
		if s, ok := sessIdx[sessionID]; ok && s.IsAgent {
			return "agent"
		}
		return "human"
	}

	turnDims := func(t *model.Turn) []*model.DimensionRollup {
		var out []*model.DimensionRollup
		out = append(out,
			get(model.DimModel, t.Model),
			get(model.DimKind, string(t.Kind)),
			get(model.DimActor, actorOf(t.SessionID)),
		)
		if s, ok := sessIdx[t.SessionID]; ok {
			out = append(out,
				get(model.DimProject, s.Project),
				get(model.DimBranch, s.GitBranch),
				get(model.DimVersion, s.Version),
			)
		}
		return out
	}

	for i := range turns {
		t := &turns[i]
		for _, r := range turnDims(t) {
			if r == nil {
				continue
			}
			r.Turns++
			r.InputTokens += t.Usage.Input
			r.OutputTokens += t.Usage.Output
			r.CacheReadTokens += t.Usage.CacheRead
			r.CacheWriteTokens += t.Usage.CacheWrite
			r.Cost += t.Cost
		}
	}

	for i := range calls {
		c := &calls[i]
		targets := []*model.DimensionRollup{
			get(model.DimTool, c.ToolName),
			get(model.DimLanguage, c.Language),
		}
		if t, ok := turnIdx[c.TurnUUID]; ok {
			targets = append(targets, turnDims(t)...)
		}
		for _, r := range targets {
			if r == nil {
				continue
			}
			r.ToolCalls++
			if !c.Success {
				r.ToolErrors++
			}
		}
	}

	rows := make([]model.DimensionRollup, 0, len(acc))
	for _, r := range acc {
		rows = append(rows, *r)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Dimension != rows[j].Dimension {
			return rows[i].Dimension < rows[j].Dimension
		}
		return rows[i].Key < rows[j].Key
	})
	return rows
}

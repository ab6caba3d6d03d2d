package store

import (
	"database/sql"
	"strings"

	"github.com/rowanfield/ccledger/internal/model"
)

// ReplaceDailySummaries rewrites the daily_summary rows for the given
// dates. A nil date scope means the whole table. Dates in scope that have
// no row in rows are deleted, so a date whose activity disappeared goes
// back to absent rather than holding a stale total.
func (s *Store) ReplaceDailySummaries(dates []string, rows []model.DailySummary) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if dates == nil {
		if _, err := tx.Exec("DELETE FROM daily_summary"); err != nil {
			return err
		}
	} else {
		if len(dates) == 0 {
			return tx.Commit()
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(dates)), ",")
		args := make([]any, len(dates))
		for i, d := range dates {
			args[i] = d
		}
		if _, err := tx.Exec("DELETE FROM daily_summary WHERE date IN ("+placeholders+")", args...); err != nil {
			return err
		}
	}

	stmt, err := tx.Prepare(`INSERT INTO daily_summary
		(date, sessions, turns, tool_calls, tool_errors, error_rate,
		 input_tokens, output_tokens, cache_read, cache_write,
		 thinking_chars, cost, lines_written, lines_added, lines_deleted, net_lines)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for i := range rows {
		r := &rows[i]
		_, err := stmt.Exec(
			r.Date, r.Sessions, r.Turns, r.ToolCalls, r.ToolErrors, r.ErrorRate,
			r.InputTokens, r.OutputTokens, r.CacheReadTokens, r.CacheWriteTokens,
			r.ThinkingChars, r.Cost, r.LinesWritten, r.LinesAdded, r.LinesDeleted, r.NetLines,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ReplaceDimensionRollups rebuilds the dimension_rollups table in full.
func (s *Store) ReplaceDimensionRollups(rows []model.DimensionRollup) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM dimension_rollups"); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO dimension_rollups
		(dimension, key, turns, tool_calls, tool_errors,
		 input_tokens, output_tokens, cache_read, cache_write, cost)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for i := range rows {
		r := &rows[i]
		_, err := stmt.Exec(
			r.Dimension, r.Key, r.Turns, r.ToolCalls, r.ToolErrors,
			r.InputTokens, r.OutputTokens, r.CacheReadTokens, r.CacheWriteTokens, r.Cost,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DailySummaries reads rollup rows ordered by date, newest last. A zero
// limit returns everything.
func (s *Store) DailySummaries(limit int) ([]model.DailySummary, error) {
	q := `SELECT date, sessions, turns, tool_calls, tool_errors, error_rate,
		input_tokens, output_tokens, cache_read, cache_write,
		thinking_chars, cost, lines_written, lines_added, lines_deleted, net_lines
		FROM daily_summary ORDER BY date`

	var rows *sql.Rows
	var err error
	if limit > 0 {
		// Newest N, still returned in ascending order.
		q = "SELECT * FROM (" + q + " DESC LIMIT ?) ORDER BY date"
		rows, err = s.db.Query(q, limit)
	} else {
		rows, err = s.db.Query(q)
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.DailySummary
	for rows.Next() {
		var r model.DailySummary
		err := rows.Scan(
			&r.Date, &r.Sessions, &r.Turns, &r.ToolCalls, &r.ToolErrors, &r.ErrorRate,
			&r.InputTokens, &r.OutputTokens, &r.CacheReadTokens, &r.CacheWriteTokens,
			&r.ThinkingChars, &r.Cost, &r.LinesWritten, &r.LinesAdded, &r.LinesDeleted, &r.NetLines,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DimensionRollups reads rollup rows for one dimension ordered by cost,
// highest first.
func (s *Store) DimensionRollups(dimension string) ([]model.DimensionRollup, error) {
	rows, err := s.db.Query(`SELECT dimension, key, turns, tool_calls, tool_errors,
		input_tokens, output_tokens, cache_read, cache_write, cost
		FROM dimension_rollups WHERE dimension = ? ORDER BY cost DESC, key`, dimension)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.DimensionRollup
	for rows.Next() {
		var r model.DimensionRollup
		err := rows.Scan(
			&r.Dimension, &r.Key, &r.Turns, &r.ToolCalls, &r.ToolErrors,
			&r.InputTokens, &r.OutputTokens, &r.CacheReadTokens, &r.CacheWriteTokens, &r.Cost,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

package store

import (
	"database/sql"
	"strings"
	"time"

	"github.com/rowanfield/ccledger/internal/model"
)

// SaveResult reports what a per-file save actually changed. Rows already
// present from an earlier ingest of the same content count as zero.
type SaveResult struct {
	NewTurns     int
	NewToolCalls int
}

// SaveFile persists one extracted file in a single transaction: session
// metadata, turns, tool calls, and the change-detector fingerprint. Either
// everything lands or nothing does.
//
// Dedup is identifier-level. Turns insert-or-ignore on uuid. Tool calls
// with a recorder-assigned id insert-or-ignore on tool_use_id; id-less
// calls have no stable key of their own, so they ride on their parent
// turn and are written only when that turn was new in this transaction.
func (s *Store) SaveFile(sess *model.Session, turns []model.Turn, calls []model.ToolCall, state *model.FileIngestState) (SaveResult, error) {
	var res SaveResult

	tx, err := s.db.Begin()
	if err != nil {
		return res, err
	}
	defer func() { _ = tx.Rollback() }()

	if sess != nil {
		if err := upsertSession(tx, sess); err != nil {
			return res, err
		}
	}

	newTurns, err := insertTurns(tx, turns)
	if err != nil {
		return res, err
	}
	res.NewTurns = len(newTurns)

	res.NewToolCalls, err = insertToolCalls(tx, calls, newTurns)
	if err != nil {
		return res, err
	}

	if state != nil {
		if err := upsertIngestState(tx, state); err != nil {
			return res, err
		}
	}

	return res, tx.Commit()
}

func upsertSession(tx *sql.Tx, sess *model.Session) error {
	_, err := tx.Exec(`INSERT OR REPLACE INTO sessions
		(session_id, project, project_path, file_path, is_agent, parent_session,
		 first_time, last_time, version, git_branch, models, file_mtime_ns, file_size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.SessionID, sess.Project, sess.ProjectPath, sess.FilePath,
		boolInt(sess.IsAgent), sess.ParentSession,
		timeStr(sess.FirstTime), timeStr(sess.LastTime),
		sess.Version, sess.GitBranch, strings.Join(sess.Models, ","),
		sess.FileMtimeNs, sess.FileSize,
	)
	return err
}

// insertTurns writes turns with INSERT OR IGNORE and returns the set of
// uuids that were actually new.
func insertTurns(tx *sql.Tx, turns []model.Turn) (map[string]bool, error) {
	newTurns := make(map[string]bool, len(turns))
	if len(turns) == 0 {
		return newTurns, nil
	}

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO turns
		(uuid, session_id, timestamp, kind, model,
		 input_tokens, output_tokens, cache_read, cache_write,
		 cost, pricing_version, parent_uuid, is_sidechain, is_meta,
		 thinking_chars, preview)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = stmt.Close() }()

	for i := range turns {
		t := &turns[i]
		var preview any
		if t.Preview != nil {
			preview = *t.Preview
		}
		r, err := stmt.Exec(
			t.UUID, t.SessionID, timeStr(t.Timestamp), string(t.Kind), t.Model,
			t.Usage.Input, t.Usage.Output, t.Usage.CacheRead, t.Usage.CacheWrite,
			t.Cost, t.PricingVersion, t.ParentUUID,
			boolInt(t.IsSidechain), boolInt(t.IsMeta),
			t.ThinkingChars, preview,
		)
		if err != nil {
			return nil, err
		}
		if n, _ := r.RowsAffected(); n > 0 {
			newTurns[t.UUID] = true
		}
	}

	return newTurns, nil
}

func insertToolCalls(tx *sql.Tx, calls []model.ToolCall, newTurns map[string]bool) (int, error) {
	if len(calls) == 0 {
		return 0, nil
	}

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO tool_calls
		(tool_use_id, turn_uuid, timestamp, tool_name, command,
		 success, error_category, error_message, file_path,
		 lines_written, lines_added, lines_deleted, language)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer func() { _ = stmt.Close() }()

	var inserted int
	for i := range calls {
		c := &calls[i]

		var id any
		if c.ToolUseID != "" {
			id = c.ToolUseID
		} else if !newTurns[c.TurnUUID] {
			// Id-less call under an already-known turn: re-inserting it
			// would duplicate the original ingest.
			continue
		}

		r, err := stmt.Exec(
			id, c.TurnUUID, timeStr(c.Timestamp), c.ToolName, c.Command,
			boolInt(c.Success), string(c.ErrorCategory), c.ErrorMessage, c.FilePath,
			c.LinesWritten, c.LinesAdded, c.LinesDeleted, c.Language,
		)
		if err != nil {
			return inserted, err
		}
		if n, _ := r.RowsAffected(); n > 0 {
			inserted++
		}
	}

	return inserted, nil
}

// AllSessions reads every session row.
func (s *Store) AllSessions() ([]model.Session, error) {
	rows, err := s.db.Query(`SELECT
		session_id, project, project_path, file_path, is_agent, parent_session,
		first_time, last_time, version, git_branch, models, file_mtime_ns, file_size
		FROM sessions`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var sessions []model.Session
	for rows.Next() {
		var sess model.Session
		var isAgent int
		var projectPath, parentSession, firstStr, lastStr, version, branch, models sql.NullString

		err := rows.Scan(
			&sess.SessionID, &sess.Project, &projectPath, &sess.FilePath,
			&isAgent, &parentSession, &firstStr, &lastStr,
			&version, &branch, &models, &sess.FileMtimeNs, &sess.FileSize,
		)
		if err != nil {
			return nil, err
		}

		sess.IsAgent = isAgent != 0
		sess.ProjectPath = projectPath.String
		sess.ParentSession = parentSession.String
		sess.Version = version.String
		sess.GitBranch = branch.String
		sess.FirstTime = parseTime(firstStr.String)
		sess.LastTime = parseTime(lastStr.String)
		if models.String != "" {
			sess.Models = strings.Split(models.String, ",")
		}

		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// AllTurns reads every turn row ordered by timestamp.
func (s *Store) AllTurns() ([]model.Turn, error) {
	rows, err := s.db.Query(`SELECT
		uuid, session_id, timestamp, kind, model,
		input_tokens, output_tokens, cache_read, cache_write,
		cost, pricing_version, parent_uuid, is_sidechain, is_meta,
		thinking_chars, preview
		FROM turns ORDER BY timestamp`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var turns []model.Turn
	for rows.Next() {
		var t model.Turn
		var ts, kind string
		var modelName, pricingVersion, parentUUID, preview sql.NullString
		var sidechain, meta int

		err := rows.Scan(
			&t.UUID, &t.SessionID, &ts, &kind, &modelName,
			&t.Usage.Input, &t.Usage.Output, &t.Usage.CacheRead, &t.Usage.CacheWrite,
			&t.Cost, &pricingVersion, &parentUUID, &sidechain, &meta,
			&t.ThinkingChars, &preview,
		)
		if err != nil {
			return nil, err
		}

		t.Timestamp = parseTime(ts)
		t.Kind = model.TurnKind(kind)
		t.Model = modelName.String
		t.PricingVersion = pricingVersion.String
		t.ParentUUID = parentUUID.String
		t.IsSidechain = sidechain != 0
		t.IsMeta = meta != 0
		if preview.Valid {
			p := preview.String
			t.Preview = &p
		}

		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// AllToolCalls reads every tool call row ordered by timestamp.
func (s *Store) AllToolCalls() ([]model.ToolCall, error) {
	rows, err := s.db.Query(`SELECT
		tool_use_id, turn_uuid, timestamp, tool_name, command,
		success, error_category, error_message, file_path,
		lines_written, lines_added, lines_deleted, language
		FROM tool_calls ORDER BY timestamp`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var calls []model.ToolCall
	for rows.Next() {
		var c model.ToolCall
		var ts string
		var id, command, category, message, filePath, language sql.NullString
		var success int

		err := rows.Scan(
			&id, &c.TurnUUID, &ts, &c.ToolName, &command,
			&success, &category, &message, &filePath,
			&c.LinesWritten, &c.LinesAdded, &c.LinesDeleted, &language,
		)
		if err != nil {
			return nil, err
		}

		c.ToolUseID = id.String
		c.Timestamp = parseTime(ts)
		c.Command = command.String
		c.Success = success != 0
		c.ErrorCategory = model.ErrorCategory(category.String)
		c.ErrorMessage = message.String
		c.FilePath = filePath.String
		c.Language = language.String

		calls = append(calls, c)
	}
	return calls, rows.Err()
}

// Counts summarizes canonical table sizes for status output.
type Counts struct {
	Sessions  int
	Turns     int
	ToolCalls int
	Files     int
}

// Count returns row counts across the canonical tables.
func (s *Store) Count() (Counts, error) {
	var c Counts
	for _, q := range []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM sessions", &c.Sessions},
		{"SELECT COUNT(*) FROM turns", &c.Turns},
		{"SELECT COUNT(*) FROM tool_calls", &c.ToolCalls},
		{"SELECT COUNT(*) FROM file_ingest_state", &c.Files},
	} {
		if err := s.db.QueryRow(q.sql).Scan(q.dest); err != nil {
			return c, err
		}
	}
	return c, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func timeStr(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

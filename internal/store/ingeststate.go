package store

import (
	"database/sql"

	"github.com/rowanfield/ccledger/internal/model"
)

// IngestStates returns the change-detector fingerprint for every tracked
// source file, keyed by path.
func (s *Store) IngestStates() (map[string]model.FileIngestState, error) {
	rows, err := s.db.Query(`SELECT file_path, mtime_ns, size_bytes, processed_at, entry_count, error_count
		FROM file_ingest_state`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	states := make(map[string]model.FileIngestState)
	for rows.Next() {
		var st model.FileIngestState
		var processed string
		if err := rows.Scan(&st.FilePath, &st.MtimeNs, &st.SizeBytes, &processed, &st.EntryCount, &st.ErrorCount); err != nil {
			return nil, err
		}
		st.ProcessedAt = parseTime(processed)
		states[st.FilePath] = st
	}
	return states, rows.Err()
}

func upsertIngestState(tx *sql.Tx, st *model.FileIngestState) error {
	_, err := tx.Exec(`INSERT OR REPLACE INTO file_ingest_state
		(file_path, mtime_ns, size_bytes, processed_at, entry_count, error_count)
		VALUES (?, ?, ?, ?, ?, ?)`,
		st.FilePath, st.MtimeNs, st.SizeBytes, timeStr(st.ProcessedAt), st.EntryCount, st.ErrorCount,
	)
	return err
}

// DeleteIngestState drops the fingerprint for a path so the next scan
// treats the file as changed. Canonical rows are untouched; identifier
// dedup makes the forced re-ingest a no-op for content already seen.
func (s *Store) DeleteIngestState(filePath string) error {
	_, err := s.db.Exec("DELETE FROM file_ingest_state WHERE file_path = ?", filePath)
	return err
}

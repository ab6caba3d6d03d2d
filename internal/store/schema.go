package store

// schemaVersion is the newest migration step below.
const schemaVersion = 2

// migrations maps a target version to the SQL that reaches it from the
// previous version. Statements are idempotent so a database created before
// versioning existed upgrades cleanly.
var migrations = map[int]string{
	1: migrationV1,
	2: migrationV2,
}

// v1: canonical tables. Dedup lives in the schema itself: turns key on
// uuid, tool calls on tool_use_id when the recorder assigned one.
const migrationV1 = `
CREATE TABLE IF NOT EXISTS sessions (
    session_id      TEXT PRIMARY KEY,
    project         TEXT NOT NULL,
    project_path    TEXT,
    file_path       TEXT NOT NULL,
    is_agent        INTEGER NOT NULL DEFAULT 0,
    parent_session  TEXT,
    first_time      TEXT,
    last_time       TEXT,
    version         TEXT,
    git_branch      TEXT,
    models          TEXT,
    file_mtime_ns   INTEGER NOT NULL DEFAULT 0,
    file_size       INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS turns (
    uuid            TEXT PRIMARY KEY,
    session_id      TEXT NOT NULL,
    timestamp       TEXT NOT NULL,
    kind            TEXT NOT NULL,
    model           TEXT,
    input_tokens    INTEGER NOT NULL DEFAULT 0,
    output_tokens   INTEGER NOT NULL DEFAULT 0,
    cache_read      INTEGER NOT NULL DEFAULT 0,
    cache_write     INTEGER NOT NULL DEFAULT 0,
    cost            REAL NOT NULL DEFAULT 0,
    pricing_version TEXT,
    parent_uuid     TEXT,
    is_sidechain    INTEGER NOT NULL DEFAULT 0,
    is_meta         INTEGER NOT NULL DEFAULT 0,
    thinking_chars  INTEGER NOT NULL DEFAULT 0,
    preview         TEXT
);

CREATE TABLE IF NOT EXISTS tool_calls (
    id              INTEGER PRIMARY KEY,
    tool_use_id     TEXT UNIQUE,
    turn_uuid       TEXT NOT NULL,
    timestamp       TEXT NOT NULL,
    tool_name       TEXT NOT NULL,
    command         TEXT,
    success         INTEGER NOT NULL DEFAULT 1,
    error_category  TEXT,
    error_message   TEXT,
    file_path       TEXT,
    lines_written   INTEGER NOT NULL DEFAULT 0,
    lines_added     INTEGER NOT NULL DEFAULT 0,
    lines_deleted   INTEGER NOT NULL DEFAULT 0,
    language        TEXT
);

CREATE TABLE IF NOT EXISTS file_ingest_state (
    file_path       TEXT PRIMARY KEY,
    mtime_ns        INTEGER NOT NULL,
    size_bytes      INTEGER NOT NULL,
    processed_at    TEXT NOT NULL,
    entry_count     INTEGER NOT NULL DEFAULT 0,
    error_count     INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id);
CREATE INDEX IF NOT EXISTS idx_turns_timestamp ON turns(timestamp);
CREATE INDEX IF NOT EXISTS idx_tool_calls_turn ON tool_calls(turn_uuid);
`

// v2: derived rollup tables.
const migrationV2 = `
CREATE TABLE IF NOT EXISTS daily_summary (
    date            TEXT PRIMARY KEY,
    sessions        INTEGER NOT NULL DEFAULT 0,
    turns           INTEGER NOT NULL DEFAULT 0,
    tool_calls      INTEGER NOT NULL DEFAULT 0,
    tool_errors     INTEGER NOT NULL DEFAULT 0,
    error_rate      REAL NOT NULL DEFAULT 0,
    input_tokens    INTEGER NOT NULL DEFAULT 0,
    output_tokens   INTEGER NOT NULL DEFAULT 0,
    cache_read      INTEGER NOT NULL DEFAULT 0,
    cache_write     INTEGER NOT NULL DEFAULT 0,
    thinking_chars  INTEGER NOT NULL DEFAULT 0,
    cost            REAL NOT NULL DEFAULT 0,
    lines_written   INTEGER NOT NULL DEFAULT 0,
    lines_added     INTEGER NOT NULL DEFAULT 0,
    lines_deleted   INTEGER NOT NULL DEFAULT 0,
    net_lines       INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS dimension_rollups (
    dimension       TEXT NOT NULL,
    key             TEXT NOT NULL,
    turns           INTEGER NOT NULL DEFAULT 0,
    tool_calls      INTEGER NOT NULL DEFAULT 0,
    tool_errors     INTEGER NOT NULL DEFAULT 0,
    input_tokens    INTEGER NOT NULL DEFAULT 0,
    output_tokens   INTEGER NOT NULL DEFAULT 0,
    cache_read      INTEGER NOT NULL DEFAULT 0,
    cache_write     INTEGER NOT NULL DEFAULT 0,
    cost            REAL NOT NULL DEFAULT 0,
    PRIMARY KEY (dimension, key)
);
`

package model

import "time"

// Session holds file-level metadata for one session log. The ID is derived
// from the filename, or from an ancestor session directory for nested
// subagent files. Rows use replace-on-conflict: latest metadata wins.
type Session struct {
	SessionID     string
	Project       string
	ProjectPath   string // cwd reported inside the log
	FilePath      string
	IsAgent       bool
	ParentSession string // subagents only
	FirstTime     time.Time
	LastTime      time.Time
	Version       string // recorder version, last seen wins
	GitBranch     string
	Models        []string // distinct models observed, sorted

	FileMtimeNs int64
	FileSize    int64
}

// FileIngestState is the persisted change-detector fingerprint for one
// source path. It is consulted only by the change detector; dedup of the
// records themselves is identifier-level.
type FileIngestState struct {
	FilePath    string
	MtimeNs     int64
	SizeBytes   int64
	ProcessedAt time.Time
	EntryCount  int
	ErrorCount  int
}

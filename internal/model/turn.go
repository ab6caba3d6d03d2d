// Package model defines domain types for ccledger canonical records and rollups.
package model

import "time"

// TurnKind classifies an ingested log record.
type TurnKind string

// Known turn kinds. Anything else maps to KindOther.
const (
	KindUser                TurnKind = "user"
	KindAssistant           TurnKind = "assistant"
	KindQueueOperation      TurnKind = "queue_operation"
	KindFileHistorySnapshot TurnKind = "file_history_snapshot"
	KindOther               TurnKind = "other"
)

// TokenUsage holds the per-token-type breakdown for one turn.
// All counts are clamped to >= 0 at extraction time.
type TokenUsage struct {
	Input      int64
	Output     int64
	CacheRead  int64
	CacheWrite int64
}

// Total returns the sum of all token types.
func (u TokenUsage) Total() int64 {
	return u.Input + u.Output + u.CacheRead + u.CacheWrite
}

// Turn is one ingested log record. UUID is the natural key and is unique
// across all files, including agent and subagent files. Rows are created
// once and never mutated.
type Turn struct {
	UUID           string
	SessionID      string
	Timestamp      time.Time
	Kind           TurnKind
	Model          string // empty when the record carries no model
	Usage          TokenUsage
	Cost           float64
	PricingVersion string
	ParentUUID     string // informational link, not enforced
	IsSidechain    bool
	IsMeta         bool
	ThinkingChars  int64
	Preview        *string // user turns only; nil = no content, "" = empty text
}

// ErrorCategory buckets tool failures by cause.
type ErrorCategory string

// Tool error categories, in classification order. First substring match wins.
const (
	ErrFileNotFound     ErrorCategory = "file_not_found"
	ErrPermissionDenied ErrorCategory = "permission_denied"
	ErrSyntax           ErrorCategory = "syntax_error"
	ErrTimeout          ErrorCategory = "timeout"
	ErrConnection       ErrorCategory = "connection"
	ErrNonZeroExit      ErrorCategory = "non_zero_exit"
	ErrNotUnique        ErrorCategory = "not_unique"
	ErrOther            ErrorCategory = "other"
)

// ToolCall is one capability invocation extracted from a turn, paired with
// its eventual result when one appears in the same file.
type ToolCall struct {
	ToolUseID     string // empty when the block carried no id; unique when present
	TurnUUID      string
	Timestamp     time.Time
	ToolName      string
	Command       string // shell invocations, from the result envelope
	Success       bool
	ErrorCategory ErrorCategory // set only on failure
	ErrorMessage  string        // truncated to 500 chars
	FilePath      string
	LinesWritten  int
	LinesAdded    int
	LinesDeleted  int
	Language      string
}

package model

// DailySummary is the derived per-date rollup. Rows are never hand-edited:
// materialization deletes and rewrites every date in scope from the
// canonical tables.
type DailySummary struct {
	Date string // local civil date, YYYY-MM-DD

	Sessions   int
	Turns      int
	ToolCalls  int
	ToolErrors int
	ErrorRate  float64 // 0.0 exactly when ToolCalls == 0

	InputTokens      int64
	OutputTokens     int64
	CacheReadTokens  int64
	CacheWriteTokens int64
	ThinkingChars    int64
	Cost             float64

	LinesWritten int
	LinesAdded   int
	LinesDeleted int
	NetLines     int // added - deleted, may be negative
}

// Rollup dimensions. Each names one grouping of the dimensional rebuild.
const (
	DimModel    = "model"
	DimProject  = "project"
	DimBranch   = "branch"
	DimTool     = "tool"
	DimLanguage = "language"
	DimVersion  = "version"
	DimKind     = "kind"
	DimActor    = "actor" // human vs agent
)

// DimensionRollup is one row of the per-dimension rollups, keyed by
// (dimension, key). The whole table is rebuilt on demand.
type DimensionRollup struct {
	Dimension string
	Key       string

	Turns      int
	ToolCalls  int
	ToolErrors int

	InputTokens      int64
	OutputTokens     int64
	CacheReadTokens  int64
	CacheWriteTokens int64
	Cost             float64
}

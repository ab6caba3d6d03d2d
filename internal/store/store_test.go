package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rowanfield/ccledger/internal/model"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func sampleTurn(uuid string) model.Turn {
	return model.Turn{
		UUID:           uuid,
		SessionID:      "sess-1",
		Timestamp:      ts("2025-06-01T10:00:00Z"),
		Kind:           model.KindAssistant,
		Model:          "model-x-4",
		Usage:          model.TokenUsage{Input: 10, Output: 20, CacheRead: 30, CacheWrite: 40},
		Cost:           0.5,
		PricingVersion: "builtin-2025-08",
	}
}

func TestOpen_Migrates(t *testing.T) {
	s := openTest(t)
	v, err := s.SchemaVersion()
	if err != nil {
		t.Fatal(err)
	}
	if v != schemaVersion {
		t.Errorf("schema version = %d, want %d", v, schemaVersion)
	}
}

func TestOpen_ReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveFile(nil, []model.Turn{sampleTurn("u1")}, nil, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = s2.Close() }()

	turns, err := s2.AllTurns()
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 1 || turns[0].UUID != "u1" {
		t.Errorf("turns after reopen = %+v", turns)
	}
}

func TestSaveFile_TurnDedup(t *testing.T) {
	s := openTest(t)

	res, err := s.SaveFile(nil, []model.Turn{sampleTurn("u1"), sampleTurn("u2")}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.NewTurns != 2 {
		t.Errorf("first save NewTurns = %d, want 2", res.NewTurns)
	}

	// Same content plus one new record, as after a file append.
	res, err = s.SaveFile(nil, []model.Turn{sampleTurn("u1"), sampleTurn("u2"), sampleTurn("u3")}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.NewTurns != 1 {
		t.Errorf("re-save NewTurns = %d, want 1", res.NewTurns)
	}

	turns, err := s.AllTurns()
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 3 {
		t.Errorf("total turns = %d, want 3", len(turns))
	}
}

func TestSaveFile_ToolCallDedup(t *testing.T) {
	s := openTest(t)

	turn := sampleTurn("u1")
	calls := []model.ToolCall{
		{ToolUseID: "toolu_1", TurnUUID: "u1", Timestamp: turn.Timestamp, ToolName: "Bash", Success: true},
		{ToolUseID: "", TurnUUID: "u1", Timestamp: turn.Timestamp, ToolName: "Read", Success: true},
	}

	res, err := s.SaveFile(nil, []model.Turn{turn}, calls, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.NewToolCalls != 2 {
		t.Errorf("first save NewToolCalls = %d, want 2", res.NewToolCalls)
	}

	// Full re-parse of the same file. The id-bearing call collides on its
	// id; the id-less call is skipped because its turn is already known.
	res, err = s.SaveFile(nil, []model.Turn{turn}, calls, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.NewTurns != 0 || res.NewToolCalls != 0 {
		t.Errorf("re-save = %+v, want all zero", res)
	}

	stored, err := s.AllToolCalls()
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 2 {
		t.Errorf("total tool calls = %d, want 2", len(stored))
	}
}

func TestSaveFile_SessionReplace(t *testing.T) {
	s := openTest(t)

	sess := model.Session{
		SessionID: "sess-1",
		Project:   "gitlore",
		FilePath:  "/logs/sess-1.jsonl",
		FirstTime: ts("2025-06-01T10:00:00Z"),
		LastTime:  ts("2025-06-01T11:00:00Z"),
		GitBranch: "main",
		Models:    []string{"model-x-4"},
	}
	if _, err := s.SaveFile(&sess, nil, nil, nil); err != nil {
		t.Fatal(err)
	}

	sess.LastTime = ts("2025-06-01T12:00:00Z")
	sess.GitBranch = "feature"
	sess.Models = []string{"model-x-4", "model-y-1"}
	if _, err := s.SaveFile(&sess, nil, nil, nil); err != nil {
		t.Fatal(err)
	}

	sessions, err := s.AllSessions()
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1 after replace", len(sessions))
	}
	got := sessions[0]
	if got.GitBranch != "feature" || !got.LastTime.Equal(ts("2025-06-01T12:00:00Z")) {
		t.Errorf("replaced session = %+v", got)
	}
	if len(got.Models) != 2 || got.Models[1] != "model-y-1" {
		t.Errorf("Models = %v", got.Models)
	}
}

func TestTurn_PreviewRoundTrip(t *testing.T) {
	s := openTest(t)

	empty := ""
	withPreview := sampleTurn("u1")
	withPreview.Kind = model.KindUser
	withPreview.Preview = &empty
	noPreview := sampleTurn("u2")

	if _, err := s.SaveFile(nil, []model.Turn{withPreview, noPreview}, nil, nil); err != nil {
		t.Fatal(err)
	}

	turns, err := s.AllTurns()
	if err != nil {
		t.Fatal(err)
	}
	byUUID := make(map[string]model.Turn)
	for _, tn := range turns {
		byUUID[tn.UUID] = tn
	}
	if p := byUUID["u1"].Preview; p == nil || *p != "" {
		t.Errorf("empty preview round-trip = %v, want pointer to empty string", p)
	}
	if p := byUUID["u2"].Preview; p != nil {
		t.Errorf("absent preview round-trip = %q, want nil", *p)
	}
}

func TestIngestStates(t *testing.T) {
	s := openTest(t)

	st := model.FileIngestState{
		FilePath:    "/logs/a.jsonl",
		MtimeNs:     123456789,
		SizeBytes:   4096,
		ProcessedAt: ts("2025-06-01T10:00:00Z"),
		EntryCount:  42,
		ErrorCount:  1,
	}
	if _, err := s.SaveFile(nil, nil, nil, &st); err != nil {
		t.Fatal(err)
	}

	states, err := s.IngestStates()
	if err != nil {
		t.Fatal(err)
	}
	got, ok := states["/logs/a.jsonl"]
	if !ok {
		t.Fatal("state not found")
	}
	if got.MtimeNs != 123456789 || got.EntryCount != 42 || got.ErrorCount != 1 {
		t.Errorf("state = %+v", got)
	}

	if err := s.DeleteIngestState("/logs/a.jsonl"); err != nil {
		t.Fatal(err)
	}
	states, err = s.IngestStates()
	if err != nil {
		t.Fatal(err)
	}
	if len(states) != 0 {
		t.Errorf("states after delete = %v", states)
	}
}

func TestReplaceDailySummaries_Scoped(t *testing.T) {
	s := openTest(t)

	initial := []model.DailySummary{
		{Date: "2025-06-01", Turns: 10, Cost: 1.0},
		{Date: "2025-06-02", Turns: 20, Cost: 2.0},
		{Date: "2025-06-03", Turns: 30, Cost: 3.0},
	}
	if err := s.ReplaceDailySummaries(nil, initial); err != nil {
		t.Fatal(err)
	}

	// Rewrite one date; leave its neighbors alone. 06-03 is in scope but
	// absent from the new rows, so it must disappear.
	err := s.ReplaceDailySummaries(
		[]string{"2025-06-02", "2025-06-03"},
		[]model.DailySummary{{Date: "2025-06-02", Turns: 25, Cost: 2.5}},
	)
	if err != nil {
		t.Fatal(err)
	}

	rows, err := s.DailySummaries(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %+v, want 2", rows)
	}
	if rows[0].Date != "2025-06-01" || rows[0].Turns != 10 {
		t.Errorf("out-of-scope row changed: %+v", rows[0])
	}
	if rows[1].Date != "2025-06-02" || rows[1].Turns != 25 {
		t.Errorf("rewritten row = %+v", rows[1])
	}
}

func TestDailySummaries_Limit(t *testing.T) {
	s := openTest(t)
	err := s.ReplaceDailySummaries(nil, []model.DailySummary{
		{Date: "2025-06-01"}, {Date: "2025-06-02"}, {Date: "2025-06-03"},
	})
	if err != nil {
		t.Fatal(err)
	}

	rows, err := s.DailySummaries(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0].Date != "2025-06-02" || rows[1].Date != "2025-06-03" {
		t.Errorf("limited rows = %+v, want newest two ascending", rows)
	}
}

func TestReplaceDimensionRollups(t *testing.T) {
	s := openTest(t)

	err := s.ReplaceDimensionRollups([]model.DimensionRollup{
		{Dimension: model.DimModel, Key: "model-x-4", Turns: 5, Cost: 2.0},
		{Dimension: model.DimModel, Key: "model-y-1", Turns: 3, Cost: 4.0},
		{Dimension: model.DimTool, Key: "Bash", ToolCalls: 7},
	})
	if err != nil {
		t.Fatal(err)
	}

	// Full rebuild drops rows that no longer exist.
	err = s.ReplaceDimensionRollups([]model.DimensionRollup{
		{Dimension: model.DimModel, Key: "model-x-4", Turns: 6, Cost: 2.5},
	})
	if err != nil {
		t.Fatal(err)
	}

	rows, err := s.DimensionRollups(model.DimModel)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Key != "model-x-4" || rows[0].Turns != 6 {
		t.Errorf("model rollups = %+v", rows)
	}

	tools, err := s.DimensionRollups(model.DimTool)
	if err != nil {
		t.Fatal(err)
	}
	if len(tools) != 0 {
		t.Errorf("tool rollups survived rebuild: %+v", tools)
	}
}

func TestCount(t *testing.T) {
	s := openTest(t)

	sess := model.Session{SessionID: "sess-1", Project: "p", FilePath: "/f"}
	st := model.FileIngestState{FilePath: "/f", ProcessedAt: ts("2025-06-01T10:00:00Z")}
	calls := []model.ToolCall{{ToolUseID: "toolu_1", TurnUUID: "u1", Timestamp: ts("2025-06-01T10:00:00Z"), ToolName: "Bash", Success: true}}
	if _, err := s.SaveFile(&sess, []model.Turn{sampleTurn("u1")}, calls, &st); err != nil {
		t.Fatal(err)
	}

	c, err := s.Count()
	if err != nil {
		t.Fatal(err)
	}
	want := Counts{Sessions: 1, Turns: 1, ToolCalls: 1, Files: 1}
	if c != want {
		t.Errorf("Count = %+v, want %+v", c, want)
	}
}

package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestStream_DecodesWellFormedLines(t *testing.T) {
	path := writeLog(t,
		`{"type":"user","uuid":"u1","timestamp":"2025-06-01T10:00:00Z"}`,
		`{"type":"assistant","uuid":"u2","timestamp":"2025-06-01T10:00:05Z"}`,
	)

	var uuids []string
	stats, err := Stream(path, func(_ int, e *RawEntry) error {
		uuids = append(uuids, e.UUID)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Lines != 2 || stats.Malformed != 0 {
		t.Errorf("stats = %+v, want 2 lines, 0 malformed", stats)
	}
	if len(uuids) != 2 || uuids[0] != "u1" || uuids[1] != "u2" {
		t.Errorf("uuids = %v", uuids)
	}
}

func TestStream_SkipsMalformedLines(t *testing.T) {
	path := writeLog(t,
		`not json at all`,
		`{"type":"user","uuid":"u1","timestamp":"2025-06-01T10:00:00Z"}`,
		`{"type":"assistant","broken json`,
	)

	var seen int
	stats, err := Stream(path, func(_ int, _ *RawEntry) error {
		seen++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Malformed != 2 {
		t.Errorf("Malformed = %d, want 2", stats.Malformed)
	}
	if seen != 1 {
		t.Errorf("callback invoked %d times, want 1", seen)
	}
}

func TestStream_OversizedLineSkippedNotFatal(t *testing.T) {
	defer func(old int) { readerMaxLine = old }(readerMaxLine)
	readerMaxLine = 1024

	// Longer than the read buffer too, so the discard path crosses several
	// buffered chunks.
	big := `{"type":"user","uuid":"huge","timestamp":"2025-06-01T10:00:00Z","message":{"role":"user","content":"` +
		strings.Repeat("x", 600*1024) + `"}}`
	path := writeLog(t,
		`{"type":"user","uuid":"u1","timestamp":"2025-06-01T10:00:00Z"}`,
		big,
		`{"type":"user","uuid":"u2","timestamp":"2025-06-01T10:00:01Z"}`,
	)

	var uuids []string
	stats, err := Stream(path, func(_ int, e *RawEntry) error {
		uuids = append(uuids, e.UUID)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Lines != 3 || stats.Malformed != 1 {
		t.Errorf("stats = %+v, want 3 lines, 1 malformed", stats)
	}
	if len(uuids) != 2 || uuids[0] != "u1" || uuids[1] != "u2" {
		t.Errorf("uuids = %v, want entries on both sides of the oversized line", uuids)
	}
}

func TestStream_MissingFile(t *testing.T) {
	_, err := Stream(filepath.Join(t.TempDir(), "nope.jsonl"), func(int, *RawEntry) error {
		t.Fatal("callback should not run")
		return nil
	})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false, want true", err)
	}
	if IsTransient(err) {
		t.Errorf("IsTransient(%v) = true, want false", err)
	}
}

func TestStream_EarlyStop(t *testing.T) {
	path := writeLog(t,
		`{"uuid":"u1"}`,
		`{"uuid":"u2"}`,
	)

	var seen int
	_, err := Stream(path, func(_ int, _ *RawEntry) error {
		seen++
		return ErrStop
	})
	if err != nil {
		t.Fatalf("ErrStop should not surface: %v", err)
	}
	if seen != 1 {
		t.Errorf("seen = %d, want 1", seen)
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		name  string
		entry RawEntry
		want  bool
	}{
		{"ok", RawEntry{UUID: "u1", Timestamp: "2025-06-01T10:00:00Z"}, true},
		{"nano precision", RawEntry{UUID: "u1", Timestamp: "2025-06-01T10:00:00.123Z"}, true},
		{"no uuid", RawEntry{Timestamp: "2025-06-01T10:00:00Z"}, false},
		{"no timestamp", RawEntry{UUID: "u1"}, false},
		{"garbage timestamp", RawEntry{UUID: "u1", Timestamp: "yesterday"}, false},
		{"offset timestamp", RawEntry{UUID: "u1", Timestamp: "2025-06-01T10:00:00+02:00"}, false},
		{"trailing Z on a malformed value", RawEntry{UUID: "u1", Timestamp: "2025-06-01T10:00:00+02:00Z"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Valid(&tt.entry); got != tt.want {
				t.Errorf("Valid = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRawEntry_ExtraBucket(t *testing.T) {
	var e RawEntry
	line := `{"type":"user","uuid":"u1","timestamp":"2025-06-01T10:00:00Z","userType":"external","requestId":"req_1"}`
	if err := e.UnmarshalJSON([]byte(line)); err != nil {
		t.Fatal(err)
	}
	if e.UUID != "u1" || e.Type != "user" {
		t.Errorf("known fields not decoded: %+v", e)
	}
	if len(e.Extra) != 2 {
		t.Errorf("Extra = %v, want userType and requestId only", e.Extra)
	}
	if _, ok := e.Extra["uuid"]; ok {
		t.Error("known key leaked into Extra")
	}
}

func FuzzRawEntryUnmarshal(f *testing.F) {
	f.Add([]byte(`{"type":"user","uuid":"u1","timestamp":"2025-06-01T10:00:00Z"}`))
	f.Add([]byte(`{"type":"assistant","message":{"content":[{"type":"text","text":"x"}]}}`))
	f.Add([]byte(`{"toolUseResult":"command failed"}`))
	f.Add([]byte(`{"toolUseResult":{"success":false,"command":"ls"}}`))
	f.Add([]byte(`{"message":{"content":"plain"}}`))
	f.Add([]byte(`{}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		var e RawEntry
		if err := e.UnmarshalJSON(data); err != nil {
			return
		}
		// Anything that decoded must survive downstream accessors.
		_ = e.Kind()
		_ = Valid(&e)
		if e.Message != nil {
			blocks, _, _ := e.Message.ContentBlocks()
			for i := range blocks {
				_ = blocks[i].ResultText()
			}
		}
	})
}

func TestRawEntry_Kind(t *testing.T) {
	tests := []struct {
		typ  string
		want string
	}{
		{"user", "user"},
		{"assistant", "assistant"},
		{"queue-operation", "queue_operation"},
		{"file-history-snapshot", "file_history_snapshot"},
		{"progress", "other"},
		{"", "other"},
	}
	for _, tt := range tests {
		e := RawEntry{Type: tt.typ}
		if got := string(e.Kind()); got != tt.want {
			t.Errorf("Kind(%q) = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

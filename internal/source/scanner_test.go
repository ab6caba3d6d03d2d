package source

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestScanDir_Layouts(t *testing.T) {
	root := t.TempDir()
	proj := filepath.Join(root, "projects", "-Users-casey-projects-gitlore")
	sessionDir := "0a1b2c3d-4e5f-6789-abcd-ef0123456789"

	touch(t, filepath.Join(proj, "main-session.jsonl"))
	touch(t, filepath.Join(proj, "agent-a1.jsonl"))
	touch(t, filepath.Join(proj, "subagents", "agent-a2.jsonl"))
	touch(t, filepath.Join(proj, sessionDir, "subagents", "agent-a3.jsonl"))
	touch(t, filepath.Join(proj, "notes.txt")) // ignored

	files, err := ScanDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 4 {
		t.Fatalf("found %d files, want 4", len(files))
	}

	byStem := make(map[string]DiscoveredFile)
	for _, f := range files {
		byStem[filepath.Base(f.Path)] = f
		if f.Project != "gitlore" {
			t.Errorf("Project = %q, want gitlore", f.Project)
		}
	}

	main := byStem["main-session.jsonl"]
	if main.IsAgent || main.SessionID != "main-session" {
		t.Errorf("main session = %+v", main)
	}

	agent := byStem["agent-a1.jsonl"]
	if !agent.IsAgent || agent.ParentSession != "" || agent.SessionID != "agent-a1" {
		t.Errorf("top-level agent = %+v", agent)
	}

	// subagents directly under the project: no session ancestor to attribute.
	sub := byStem["agent-a2.jsonl"]
	if !sub.IsAgent || sub.ParentSession != "" || sub.SessionID != "agent-a2" {
		t.Errorf("project-level subagent = %+v", sub)
	}

	// subagents nested under a per-session directory: the long dashed
	// ancestor name is taken as the parent session.
	nested := byStem["agent-a3.jsonl"]
	if !nested.IsAgent {
		t.Error("nested subagent not flagged as agent")
	}
	if nested.ParentSession != sessionDir {
		t.Errorf("ParentSession = %q, want %q", nested.ParentSession, sessionDir)
	}
	if nested.SessionID != sessionDir+"/agent-a3" {
		t.Errorf("SessionID = %q", nested.SessionID)
	}
}

func TestScanDir_ShortAncestorNotASession(t *testing.T) {
	root := t.TempDir()
	proj := filepath.Join(root, "projects", "-tmp-src-demo")
	touch(t, filepath.Join(proj, "misc-dir", "subagents", "agent-x.jsonl"))

	files, err := ScanDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Fatalf("found %d files, want 1", len(files))
	}
	f := files[0]
	if f.ParentSession != "" {
		t.Errorf("ParentSession = %q, want empty for short ancestor", f.ParentSession)
	}
	if f.SessionID != "agent-x" {
		t.Errorf("SessionID = %q", f.SessionID)
	}
}

func TestScanDir_MissingRoot(t *testing.T) {
	files, err := ScanDir(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("missing root should not error: %v", err)
	}
	if files != nil {
		t.Errorf("files = %v, want nil", files)
	}
}

func TestDecodeProjectName(t *testing.T) {
	tests := []struct {
		dir  string
		want string
	}{
		{"-Users-casey-projects-gitlore", "gitlore"},
		{"-Users-casey-projects-my-cool-project", "my-cool-project"},
		{"-home-dev-widget", "widget"},
		{"-opt-thing", "thing"},
	}
	for _, tt := range tests {
		if got := decodeProjectName(tt.dir); got != tt.want {
			t.Errorf("decodeProjectName(%q) = %q, want %q", tt.dir, got, tt.want)
		}
	}
}

package source

import (
	"os"
	"path/filepath"
	"strings"
)

// ScanDir walks the log root's projects directory and discovers all JSONL
// session files: main sessions, agent-* files, and subagent files under
// "subagents/" directories (optionally nested one level under a per-session
// directory for sub-agents spawned mid-session).
func ScanDir(logDir string) ([]DiscoveredFile, error) {
	projectsDir := filepath.Join(logDir, "projects")

	info, err := os.Stat(projectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, nil
	}

	var files []DiscoveredFile

	err = filepath.WalkDir(projectsDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // intentionally skip unreadable entries
		}
		if d.IsDir() || filepath.Ext(path) != ".jsonl" {
			return nil
		}

		rel, _ := filepath.Rel(projectsDir, path)
		parts := strings.Split(rel, string(filepath.Separator))
		if len(parts) < 2 {
			return nil
		}

		name := d.Name()
		stem := strings.TrimSuffix(name, ".jsonl")

		df := DiscoveredFile{
			Path:       path,
			Project:    decodeProjectName(parts[0]),
			ProjectDir: parts[0],
			SessionID:  stem,
		}

		if idx := subagentsIndex(parts); idx >= 0 {
			df.IsAgent = true
			// A sub-agent spawned mid-session lives one level down, under a
			// directory named after its parent session. There is no explicit
			// marker; a long dashed directory name is taken as a session id.
			if idx >= 2 && looksLikeSessionDir(parts[idx-1]) {
				df.ParentSession = parts[idx-1]
				df.SessionID = parts[idx-1] + "/" + stem
			}
		} else if strings.HasPrefix(name, "agent-") {
			df.IsAgent = true
		}

		files = append(files, df)
		return nil
	})

	return files, err
}

// subagentsIndex returns the position of a "subagents" path component
// between the project directory and the file name, or -1.
func subagentsIndex(parts []string) int {
	for i := 1; i < len(parts)-1; i++ {
		if parts[i] == "subagents" {
			return i
		}
	}
	return -1
}

// looksLikeSessionDir reports whether a directory name reads as a session
// identifier: dashed and longer than 30 characters, like a UUID.
func looksLikeSessionDir(name string) bool {
	return strings.Contains(name, "-") && len(name) > 30
}

// decodeProjectName extracts a display name from the encoded directory name.
// The recorder encodes absolute paths by replacing "/" with "-", so:
//
//	"-Users-casey-projects-gitlore" -> "gitlore"
//	"-Users-casey-projects-my-cool-project" -> "my-cool-project"
//
// We find the last known parent component and take everything after it,
// falling back to the last non-empty segment.
func decodeProjectName(dirName string) string {
	parts := strings.Split(dirName, "-")

	knownParents := map[string]bool{
		"projects": true, "repos": true, "src": true,
		"code": true, "workspace": true, "dev": true,
	}

	for i := len(parts) - 2; i >= 0; i-- {
		if knownParents[strings.ToLower(parts[i])] {
			name := strings.Join(parts[i+1:], "-")
			if name != "" {
				return name
			}
		}
	}

	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			return parts[i]
		}
	}

	return dirName
}

// CountProjects returns the number of unique projects in a discovery set.
func CountProjects(files []DiscoveredFile) int {
	seen := make(map[string]struct{})
	for _, f := range files {
		seen[f.Project] = struct{}{}
	}
	return len(seen)
}

// Package linecount provides pure helpers for counting code lines and
// detecting languages from file paths. It performs no I/O.
package linecount

import (
	"path/filepath"
	"strings"
)

var languageByExt = map[string]string{
	".go":    "go",
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".rs":    "rust",
	".rb":    "ruby",
	".java":  "java",
	".kt":    "kotlin",
	".c":     "c",
	".h":     "c",
	".cc":    "cpp",
	".cpp":   "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".php":   "php",
	".swift": "swift",
	".scala": "scala",
	".sh":    "shell",
	".bash":  "shell",
	".zsh":   "shell",
	".sql":   "sql",
	".html":  "html",
	".css":   "css",
	".scss":  "css",
	".json":  "json",
	".yaml":  "yaml",
	".yml":   "yaml",
	".toml":  "toml",
	".md":    "markdown",
	".proto": "protobuf",
	".tf":    "terraform",
	".lua":   "lua",
	".ex":    "elixir",
	".exs":   "elixir",
	".hs":    "haskell",
	".ml":    "ocaml",
	".zig":   "zig",
	".vim":   "vimscript",
	".dart":  "dart",
	".r":     "r",
}

// Count returns the number of lines in content and the language detected
// from the path extension. An empty language means no detection.
func Count(content, path string) (int, string) {
	return Lines(content), Language(path)
}

// Lines counts lines the way an editor status bar would: a trailing newline
// does not start a new line, and empty content has zero lines.
func Lines(content string) int {
	if content == "" {
		return 0
	}
	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}

// Language returns the detected language for a path, or "" when unknown.
func Language(path string) string {
	if path == "" {
		return ""
	}
	ext := strings.ToLower(filepath.Ext(path))
	return languageByExt[ext]
}

// Delta compares old and new text by total line count only, not a real
// diff: a growth shows up entirely as added lines, a shrink as deleted.
func Delta(oldText, newText string) (added, deleted int) {
	oldN := Lines(oldText)
	newN := Lines(newText)
	if newN > oldN {
		return newN - oldN, 0
	}
	return 0, oldN - newN
}

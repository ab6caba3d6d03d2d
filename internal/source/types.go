// Package source discovers, reads, validates, and extracts records from
// Claude Code style JSONL session logs.
package source

import (
	"encoding/json"

	"github.com/rowanfield/ccledger/internal/model"
)

// RawEntry is one decoded log line. Known fields are typed; everything the
// recorder writes that we don't model lands in Extra so nothing is consumed
// through dynamic lookups.
type RawEntry struct {
	Type        string
	UUID        string
	ParentUUID  string
	SessionID   string
	Timestamp   string
	IsSidechain bool
	IsMeta      bool
	Cwd         string
	Version     string
	GitBranch   string

	Message       *RawMessage
	ToolUseResult *RawToolUseResult

	// Extra buckets top-level keys this struct does not model.
	Extra map[string]json.RawMessage
}

// rawEntryKnown mirrors RawEntry for the typed half of decoding.
type rawEntryKnown struct {
	Type          string            `json:"type"`
	UUID          string            `json:"uuid"`
	ParentUUID    string            `json:"parentUuid"`
	SessionID     string            `json:"sessionId"`
	Timestamp     string            `json:"timestamp"`
	IsSidechain   bool              `json:"isSidechain"`
	IsMeta        bool              `json:"isMeta"`
	Cwd           string            `json:"cwd"`
	Version       string            `json:"version"`
	GitBranch     string            `json:"gitBranch"`
	Message       *RawMessage       `json:"message"`
	ToolUseResult *RawToolUseResult `json:"toolUseResult"`
}

var knownEntryKeys = []string{
	"type", "uuid", "parentUuid", "sessionId", "timestamp",
	"isSidechain", "isMeta", "cwd", "version", "gitBranch",
	"message", "toolUseResult",
}

// UnmarshalJSON decodes the known fields and routes everything else into
// Extra.
func (e *RawEntry) UnmarshalJSON(data []byte) error {
	var known rawEntryKnown
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range knownEntryKeys {
		delete(all, k)
	}

	*e = RawEntry{
		Type:          known.Type,
		UUID:          known.UUID,
		ParentUUID:    known.ParentUUID,
		SessionID:     known.SessionID,
		Timestamp:     known.Timestamp,
		IsSidechain:   known.IsSidechain,
		IsMeta:        known.IsMeta,
		Cwd:           known.Cwd,
		Version:       known.Version,
		GitBranch:     known.GitBranch,
		Message:       known.Message,
		ToolUseResult: known.ToolUseResult,
	}
	if len(all) > 0 {
		e.Extra = all
	}
	return nil
}

// Kind maps the record's type tag onto the turn kind union.
func (e *RawEntry) Kind() model.TurnKind {
	switch e.Type {
	case "user":
		return model.KindUser
	case "assistant":
		return model.KindAssistant
	case "queue-operation":
		return model.KindQueueOperation
	case "file-history-snapshot":
		return model.KindFileHistorySnapshot
	default:
		return model.KindOther
	}
}

// RawMessage is the message envelope carried by user and assistant records.
// Content is either a plain JSON string or a list of content blocks.
type RawMessage struct {
	Role    string          `json:"role"`
	Model   string          `json:"model"`
	Content json.RawMessage `json:"content"`
	Usage   *RawUsage       `json:"usage"`
}

// ContentBlocks decodes the content field. ok is false when content is a
// plain string (returned as text) or absent.
func (m *RawMessage) ContentBlocks() (blocks []RawContentBlock, text string, ok bool) {
	if m == nil || len(m.Content) == 0 || string(m.Content) == "null" {
		return nil, "", false
	}
	if m.Content[0] == '"' {
		_ = json.Unmarshal(m.Content, &text)
		return nil, text, false
	}
	if err := json.Unmarshal(m.Content, &blocks); err != nil {
		return nil, "", false
	}
	return blocks, "", true
}

// RawContentBlock is one element of a content list. The Type tag decides
// which fields are meaningful.
type RawContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	Thinking  string          `json:"thinking"`
	ID        string          `json:"id"`   // tool_use
	Name      string          `json:"name"` // tool_use
	Input     json.RawMessage `json:"input"`
	ToolUseID string          `json:"tool_use_id"` // tool_result
	Content   json.RawMessage `json:"content"`     // tool_result payload
	IsError   bool            `json:"is_error"`
}

// ResultText flattens a tool_result payload (string or text-block list)
// into plain text.
func (b *RawContentBlock) ResultText() string {
	if len(b.Content) == 0 {
		return ""
	}
	if b.Content[0] == '"' {
		var s string
		_ = json.Unmarshal(b.Content, &s)
		return s
	}
	var inner []RawContentBlock
	if err := json.Unmarshal(b.Content, &inner); err != nil {
		return ""
	}
	var out string
	for _, blk := range inner {
		if blk.Type != "text" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += blk.Text
	}
	return out
}

// RawToolInput covers the tool input shapes we mine for code-line metrics.
type RawToolInput struct {
	FilePath  string `json:"file_path"`
	Content   string `json:"content"`
	OldString string `json:"old_string"`
	NewString string `json:"new_string"`
	Command   string `json:"command"`
}

// RawUsage holds token counts from the API response. Null fields decode to
// zero; negatives are clamped during extraction.
type RawUsage struct {
	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
}

// RawToolUseResult is the out-of-band result envelope some records carry
// beside their tool_result block. When present it overrides the
// block-derived success flag and may name the executed command.
type RawToolUseResult struct {
	Success *bool  `json:"success"`
	Command string `json:"command"`
	Error   string `json:"error"`
}

// UnmarshalJSON tolerates the envelope being a bare string (older recorder
// versions wrote the error text directly).
func (r *RawToolUseResult) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = RawToolUseResult{Error: s}
		return nil
	}
	type alias RawToolUseResult
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		// Unknown envelope shape: ignore rather than fail the whole line.
		*r = RawToolUseResult{}
		return nil
	}
	*r = RawToolUseResult(a)
	return nil
}

// DiscoveredFile is one JSONL session file found during the directory scan.
type DiscoveredFile struct {
	Path          string
	Project       string // decoded display name
	ProjectDir    string // raw directory name
	SessionID     string
	IsAgent       bool
	ParentSession string // for subagents: parent session identifier
}

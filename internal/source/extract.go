package source

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rowanfield/ccledger/internal/linecount"
	"github.com/rowanfield/ccledger/internal/model"
	"github.com/rowanfield/ccledger/internal/pricing"
)

// previewLimit caps the stored user-text preview.
const previewLimit = 500

// FileExtract is everything one file's ingestion produced.
type FileExtract struct {
	Session   model.Session
	Turns     []model.Turn
	ToolCalls []model.ToolCall
	Entries   int // records that passed validation
	Invalid   int // records rejected by validation
}

// Extractor turns validated records from one file into Turn and ToolCall
// rows plus session metadata. The tool correlation map is file-scoped: it
// lives for one file's ingestion and is discarded with the extractor, so a
// tool invocation never pairs with a result from another file.
type Extractor struct {
	file     DiscoveredFile
	resolver *pricing.Resolver

	turns   []model.Turn
	calls   []*model.ToolCall
	pending map[string]*model.ToolCall

	entries int
	invalid int

	firstTime time.Time
	lastTime  time.Time
	cwd       string
	version   string
	branch    string
	models    map[string]struct{}
}

// NewExtractor returns an extractor for one discovered file.
func NewExtractor(file DiscoveredFile, resolver *pricing.Resolver) *Extractor {
	return &Extractor{
		file:     file,
		resolver: resolver,
		pending:  make(map[string]*model.ToolCall),
		models:   make(map[string]struct{}),
	}
}

// Add consumes one decoded record. Invalid records are counted and dropped;
// they contribute nothing downstream.
func (x *Extractor) Add(e *RawEntry) {
	if !Valid(e) {
		x.invalid++
		return
	}
	x.entries++

	ts, _ := ParseTimestamp(e.Timestamp)
	x.observe(e, ts)

	turn := model.Turn{
		UUID:           e.UUID,
		SessionID:      x.file.SessionID,
		Timestamp:      ts,
		Kind:           e.Kind(),
		ParentUUID:     e.ParentUUID,
		IsSidechain:    e.IsSidechain,
		IsMeta:         e.IsMeta,
		PricingVersion: x.resolver.Version(),
	}

	if m := e.Message; m != nil {
		turn.Model = m.Model
		if u := m.Usage; u != nil {
			turn.Usage = model.TokenUsage{
				Input:      clampTokens(u.InputTokens),
				Output:     clampTokens(u.OutputTokens),
				CacheRead:  clampTokens(u.CacheReadInputTokens),
				CacheWrite: clampTokens(u.CacheCreationInputTokens),
			}
		}
		if m.Model != "" {
			x.models[m.Model] = struct{}{}
		}
	}
	turn.Cost = x.resolver.Cost(turn.Model, turn.Usage)

	blocks, plain, isList := blocksOf(e.Message)
	for i := range blocks {
		if blocks[i].Type == "thinking" {
			turn.ThinkingChars += int64(utf8.RuneCountInString(blocks[i].Thinking))
		}
	}

	switch turn.Kind {
	case model.KindUser:
		turn.Preview = userPreview(e.Message, blocks, plain, isList)
		x.applyToolResults(e, blocks)
	case model.KindAssistant:
		x.collectToolUses(&turn, blocks)
	}

	x.turns = append(x.turns, turn)
}

// observe folds a record's metadata into the session accumulator.
func (x *Extractor) observe(e *RawEntry, ts time.Time) {
	if x.firstTime.IsZero() || ts.Before(x.firstTime) {
		x.firstTime = ts
	}
	if x.lastTime.IsZero() || ts.After(x.lastTime) {
		x.lastTime = ts
	}
	if x.cwd == "" && e.Cwd != "" {
		x.cwd = e.Cwd
	}
	if e.Version != "" {
		x.version = e.Version
	}
	if e.GitBranch != "" {
		x.branch = e.GitBranch
	}
}

// collectToolUses registers each tool_use block as a pending tool call and
// mines its input for file paths and code-line metrics.
func (x *Extractor) collectToolUses(turn *model.Turn, blocks []RawContentBlock) {
	for i := range blocks {
		b := &blocks[i]
		if b.Type != "tool_use" {
			continue
		}

		call := &model.ToolCall{
			ToolUseID: b.ID,
			TurnUUID:  turn.UUID,
			Timestamp: turn.Timestamp,
			ToolName:  b.Name,
			Success:   true, // until a result says otherwise
		}

		if len(b.Input) > 0 {
			var in RawToolInput
			if err := json.Unmarshal(b.Input, &in); err == nil {
				call.FilePath = in.FilePath
				call.Command = in.Command
				call.Language = linecount.Language(in.FilePath)
				if in.Content != "" {
					call.LinesWritten = linecount.Lines(in.Content)
				}
				if in.OldString != "" || in.NewString != "" {
					call.LinesAdded, call.LinesDeleted = linecount.Delta(in.OldString, in.NewString)
				}
			}
		}

		x.calls = append(x.calls, call)
		if b.ID != "" {
			x.pending[b.ID] = call
		}
	}
}

// applyToolResults pairs tool_result blocks (and the out-of-band result
// envelope) with pending tool calls from earlier records in this file.
func (x *Extractor) applyToolResults(e *RawEntry, blocks []RawContentBlock) {
	for i := range blocks {
		b := &blocks[i]
		if b.Type != "tool_result" || b.ToolUseID == "" {
			continue
		}
		call, ok := x.pending[b.ToolUseID]
		if !ok {
			continue // result without an invocation in this file's scope
		}

		if b.IsError {
			call.Success = false
			call.ErrorMessage = truncateChars(b.ResultText(), previewLimit)
			call.ErrorCategory = ClassifyError(call.ErrorMessage)
		}

		if env := e.ToolUseResult; env != nil {
			if env.Success != nil {
				call.Success = *env.Success
			}
			if env.Command != "" {
				call.Command = env.Command
			}
			if !call.Success && call.ErrorMessage == "" && env.Error != "" {
				call.ErrorMessage = truncateChars(env.Error, previewLimit)
				call.ErrorCategory = ClassifyError(call.ErrorMessage)
			}
		}
	}
}

// Finish returns the accumulated extract. The extractor must not be reused.
func (x *Extractor) Finish() *FileExtract {
	models := make([]string, 0, len(x.models))
	for m := range x.models {
		models = append(models, m)
	}
	sort.Strings(models)

	calls := make([]model.ToolCall, len(x.calls))
	for i, c := range x.calls {
		calls[i] = *c
	}

	return &FileExtract{
		Session: model.Session{
			SessionID:     x.file.SessionID,
			Project:       x.file.Project,
			ProjectPath:   x.cwd,
			FilePath:      x.file.Path,
			IsAgent:       x.file.IsAgent,
			ParentSession: x.file.ParentSession,
			FirstTime:     x.firstTime,
			LastTime:      x.lastTime,
			Version:       x.version,
			GitBranch:     x.branch,
			Models:        models,
		},
		Turns:     x.turns,
		ToolCalls: calls,
		Entries:   x.entries,
		Invalid:   x.invalid,
	}
}

// userPreview builds the stored preview for a user record. The distinction
// matters downstream: nil means the record carried no content at all, an
// empty string means a content list whose text came up empty.
func userPreview(m *RawMessage, blocks []RawContentBlock, plain string, isList bool) *string {
	if m == nil || len(m.Content) == 0 || string(m.Content) == "null" {
		return nil
	}

	if !isList {
		p := truncateChars(plain, previewLimit)
		return &p
	}

	// Strict join: every pair of text blocks gets one separator, even when
	// a side is empty.
	var parts []string
	for i := range blocks {
		if blocks[i].Type == "text" {
			parts = append(parts, blocks[i].Text)
		}
	}
	p := truncateChars(strings.Join(parts, " "), previewLimit)
	return &p
}

func blocksOf(m *RawMessage) (blocks []RawContentBlock, plain string, isList bool) {
	if m == nil {
		return nil, "", false
	}
	return m.ContentBlocks()
}

func clampTokens(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}

// truncateChars limits a string to n characters, not bytes.
func truncateChars(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

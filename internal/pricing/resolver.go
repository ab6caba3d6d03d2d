// Package pricing resolves model identifiers to per-token-type prices and
// computes exact per-turn costs.
package pricing

import (
	"errors"
	"sort"
	"strings"

	"github.com/rowanfield/ccledger/internal/model"
)

// Price holds $/MTok prices for one model, per token type.
type Price struct {
	Input      float64
	Output     float64
	CacheRead  float64
	CacheWrite float64
}

// Table maps model identifiers to prices. A "default" row is mandatory.
type Table map[string]Price

// DefaultKey is the mandatory terminal row of every table.
const DefaultKey = "default"

// syntheticModel is the placeholder the recorder writes for internally
// generated turns. Falling back to default for it is expected and silent.
const syntheticModel = "<synthetic>"

// ErrNoDefault is returned when a table lacks the mandatory default row.
var ErrNoDefault = errors.New("pricing: table has no default row")

// Match reports which step of the resolution chain supplied a price.
type Match int

// Resolution chain steps, in order.
const (
	MatchExact Match = iota
	MatchPrefix
	MatchFamily
	MatchDefault
)

func (m Match) String() string {
	switch m {
	case MatchExact:
		return "exact"
	case MatchPrefix:
		return "prefix"
	case MatchFamily:
		return "family"
	default:
		return "default"
	}
}

// Resolver resolves model identifiers against a fixed table using an
// explicit ordered chain: exact, configured-id prefix, configured-id family
// (trailing dash segment stripped), then the default row.
type Resolver struct {
	table   Table
	version string

	// configured ids sorted longest-first so the most specific prefix wins
	ids []string

	warned map[string]struct{}
	warnf  func(format string, args ...any)
}

// NewResolver builds a resolver over the table. warnf, when non-nil, receives
// a one-shot diagnostic per model that falls back to the default row.
func NewResolver(table Table, version string, warnf func(format string, args ...any)) (*Resolver, error) {
	if _, ok := table[DefaultKey]; !ok {
		return nil, ErrNoDefault
	}

	ids := make([]string, 0, len(table))
	for id := range table {
		if id != DefaultKey {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		if len(ids[i]) != len(ids[j]) {
			return len(ids[i]) > len(ids[j])
		}
		return ids[i] < ids[j]
	})

	return &Resolver{
		table:   table,
		version: version,
		ids:     ids,
		warned:  make(map[string]struct{}),
		warnf:   warnf,
	}, nil
}

// Version returns the pricing-version tag stored alongside priced turns.
func (r *Resolver) Version() string {
	return r.version
}

// Resolve returns the price for a model and the chain step that matched.
// An empty model resolves straight to default with no diagnostic.
func (r *Resolver) Resolve(modelID string) (Price, Match) {
	if modelID != "" {
		if p, ok := r.table[modelID]; ok {
			return p, MatchExact
		}

		for _, id := range r.ids {
			if strings.HasPrefix(modelID, id) {
				return r.table[id], MatchPrefix
			}
		}

		// A dated release still matches its family: strip the trailing dash
		// segment from each configured id and prefix-match against that.
		for _, id := range r.ids {
			dash := strings.LastIndex(id, "-")
			if dash <= 0 {
				continue
			}
			if strings.HasPrefix(modelID, id[:dash]) {
				return r.table[id], MatchFamily
			}
		}

		if modelID != syntheticModel {
			if _, seen := r.warned[modelID]; !seen {
				r.warned[modelID] = struct{}{}
				if r.warnf != nil {
					r.warnf("pricing: no entry for model %q, using default rates", modelID)
				}
			}
		}
	}

	return r.table[DefaultKey], MatchDefault
}

// Cost computes the exact cost for one turn's usage at that turn's own
// model rates. Token counts are clamped to >= 0 before summation.
func (r *Resolver) Cost(modelID string, usage model.TokenUsage) float64 {
	p, _ := r.Resolve(modelID)

	cost := float64(clamp(usage.Input)) * p.Input / 1_000_000
	cost += float64(clamp(usage.Output)) * p.Output / 1_000_000
	cost += float64(clamp(usage.CacheRead)) * p.CacheRead / 1_000_000
	cost += float64(clamp(usage.CacheWrite)) * p.CacheWrite / 1_000_000
	return cost
}

func clamp(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}

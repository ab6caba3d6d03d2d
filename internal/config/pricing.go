package config

import "github.com/rowanfield/ccledger/internal/pricing"

// builtinPricingVersion tags turns priced from the builtin table, for later
// repricing audits. Bump when the table below changes.
const builtinPricingVersion = "builtin-2025-08"

// builtinPrices maps model base names to $/MTok prices. The "default" row is
// mandatory: it is the terminal step of the resolution chain.
var builtinPrices = pricing.Table{
	"claude-opus-4-6": {
		Input: 5.00, Output: 25.00, CacheRead: 0.50, CacheWrite: 6.25,
	},
	"claude-opus-4-5": {
		Input: 5.00, Output: 25.00, CacheRead: 0.50, CacheWrite: 6.25,
	},
	"claude-opus-4-1": {
		Input: 15.00, Output: 75.00, CacheRead: 1.50, CacheWrite: 18.75,
	},
	"claude-opus-4": {
		Input: 15.00, Output: 75.00, CacheRead: 1.50, CacheWrite: 18.75,
	},
	"claude-sonnet-4-6": {
		Input: 3.00, Output: 15.00, CacheRead: 0.30, CacheWrite: 3.75,
	},
	"claude-sonnet-4-5": {
		Input: 3.00, Output: 15.00, CacheRead: 0.30, CacheWrite: 3.75,
	},
	"claude-sonnet-4": {
		Input: 3.00, Output: 15.00, CacheRead: 0.30, CacheWrite: 3.75,
	},
	"claude-haiku-4-5": {
		Input: 1.00, Output: 5.00, CacheRead: 0.10, CacheWrite: 1.25,
	},
	"claude-haiku-3-5": {
		Input: 0.80, Output: 4.00, CacheRead: 0.08, CacheWrite: 1.00,
	},
	pricing.DefaultKey: {
		Input: 3.00, Output: 15.00, CacheRead: 0.30, CacheWrite: 3.75,
	},
}

// PricingOverrides allows user-defined prices for specific models.
type PricingOverrides struct {
	Overrides map[string]ModelPriceOverride `toml:"overrides,omitempty"`
}

// ModelPriceOverride holds per-model price overrides, $/MTok.
type ModelPriceOverride struct {
	InputPerMTok      *float64 `toml:"input_per_mtok,omitempty"`
	OutputPerMTok     *float64 `toml:"output_per_mtok,omitempty"`
	CacheReadPerMTok  *float64 `toml:"cache_read_per_mtok,omitempty"`
	CacheWritePerMTok *float64 `toml:"cache_write_per_mtok,omitempty"`
}

// PriceTable returns the builtin table with any config overrides applied.
// Overriding an unknown model adds a new row seeded from the default row.
func PriceTable(cfg Config) pricing.Table {
	table := make(pricing.Table, len(builtinPrices))
	for name, p := range builtinPrices {
		table[name] = p
	}

	for name, o := range cfg.Pricing.Overrides {
		p, ok := table[name]
		if !ok {
			p = table[pricing.DefaultKey]
		}
		if o.InputPerMTok != nil {
			p.Input = *o.InputPerMTok
		}
		if o.OutputPerMTok != nil {
			p.Output = *o.OutputPerMTok
		}
		if o.CacheReadPerMTok != nil {
			p.CacheRead = *o.CacheReadPerMTok
		}
		if o.CacheWritePerMTok != nil {
			p.CacheWrite = *o.CacheWritePerMTok
		}
		table[name] = p
	}

	return table
}

// PricingVersion returns the version tag stored on each priced turn.
func PricingVersion(cfg Config) string {
	if len(cfg.Pricing.Overrides) > 0 {
		return builtinPricingVersion + "+local"
	}
	return builtinPricingVersion
}

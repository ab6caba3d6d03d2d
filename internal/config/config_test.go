package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rowanfield/ccledger/internal/pricing"
)

func isolateConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_DATA_HOME", dir)
	return dir
}

func TestLoad_DefaultsWhenMissing(t *testing.T) {
	isolateConfig(t)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Watch.IntervalSecs != 30 || cfg.Watch.RecencyWindowSecs != 120 {
		t.Errorf("defaults = %+v", cfg.Watch)
	}
	if Exists() {
		t.Error("Exists() = true with no config file")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	isolateConfig(t)

	cfg := DefaultConfig()
	cfg.General.LogDir = "/var/log/assistant"
	cfg.Watch.IntervalSecs = 60
	in := 7.5
	cfg.Pricing.Overrides = map[string]ModelPriceOverride{
		"model-x-4": {InputPerMTok: &in},
	}

	if err := Save(cfg); err != nil {
		t.Fatal(err)
	}
	if !Exists() {
		t.Fatal("config file not written")
	}

	got, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.General.LogDir != "/var/log/assistant" {
		t.Errorf("LogDir = %q", got.General.LogDir)
	}
	if got.Watch.IntervalSecs != 60 {
		t.Errorf("IntervalSecs = %d", got.Watch.IntervalSecs)
	}
	o, ok := got.Pricing.Overrides["model-x-4"]
	if !ok || o.InputPerMTok == nil || *o.InputPerMTok != 7.5 {
		t.Errorf("override round-trip = %+v", got.Pricing.Overrides)
	}
}

func TestLoad_BadToml(t *testing.T) {
	dir := isolateConfig(t)
	path := filepath.Join(dir, "ccledger", "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not = [valid"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(); err == nil {
		t.Error("expected parse error")
	}
}

func TestPriceTable_Overrides(t *testing.T) {
	cfg := DefaultConfig()

	base := PriceTable(cfg)
	if _, ok := base[pricing.DefaultKey]; !ok {
		t.Fatal("builtin table has no default row")
	}

	in, out := 42.0, 84.0
	cfg.Pricing.Overrides = map[string]ModelPriceOverride{
		"claude-opus-4-6": {InputPerMTok: &in},
		"house-model":     {InputPerMTok: &in, OutputPerMTok: &out},
	}

	table := PriceTable(cfg)
	if table["claude-opus-4-6"].Input != 42.0 {
		t.Errorf("known-model override not applied: %+v", table["claude-opus-4-6"])
	}
	if table["claude-opus-4-6"].Output != base["claude-opus-4-6"].Output {
		t.Errorf("unoverridden field changed: %+v", table["claude-opus-4-6"])
	}

	// Unknown model seeds from the default row.
	house := table["house-model"]
	if house.Input != 42.0 || house.Output != 84.0 {
		t.Errorf("new-model override = %+v", house)
	}
	if house.CacheRead != base[pricing.DefaultKey].CacheRead {
		t.Errorf("new-model seed = %+v, want default cache rates", house)
	}

	// Builtin table itself must stay untouched.
	if builtinPrices["claude-opus-4-6"].Input == 42.0 {
		t.Error("override mutated the builtin table")
	}
}

func TestPricingVersion(t *testing.T) {
	cfg := DefaultConfig()
	if v := PricingVersion(cfg); v != builtinPricingVersion {
		t.Errorf("version = %q", v)
	}

	in := 1.0
	cfg.Pricing.Overrides = map[string]ModelPriceOverride{"m": {InputPerMTok: &in}}
	if v := PricingVersion(cfg); v != builtinPricingVersion+"+local" {
		t.Errorf("version with overrides = %q", v)
	}
}

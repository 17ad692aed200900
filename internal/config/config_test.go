package config

import (
	"os"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := t.TempDir() + "/config.yaml"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  log_level: debug
exchange:
  provider: binance
  symbol: ethusdt
engine:
  signal_cooldown_ms: 500
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.App.LogLevel != "debug" || cfg.Exchange.Symbol != "ethusdt" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Engine.SignalCooldownMs != 500 {
		t.Fatalf("engine override not applied: %d", cfg.Engine.SignalCooldownMs)
	}
	// Untouched keys keep the baseline.
	if cfg.Engine.ForgivingStreakLength != 25 {
		t.Fatalf("default lost: %d", cfg.Engine.ForgivingStreakLength)
	}
	if cfg.Engine.PercentileCapacity() != 9600 {
		t.Fatalf("percentile capacity = %d, want 9600", cfg.Engine.PercentileCapacity())
	}
}

func TestLoadRejectsBadEngineParams(t *testing.T) {
	path := writeConfig(t, `
engine:
  benchmark_lookback_minutes: -1
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("negative lookback must fail validation")
	}
}

func TestLoadRejectsBadArm(t *testing.T) {
	path := writeConfig(t, `
arms:
  - forgiving_streak_length: 0
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("invalid arm must fail validation")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(t.TempDir() + "/absent.yaml"); err == nil {
		t.Fatalf("missing file must error")
	}
}

func TestValidateConsensusBounds(t *testing.T) {
	p := DefaultParams()
	p.RegimeConsensusVotes = 4
	if err := p.Validate(); err == nil {
		t.Fatalf("consensus above the timeframe count must fail")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := t.TempDir() + "/out.yaml"
	cfg := Default()
	cfg.Exchange.Symbol = "solusdt"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded.Exchange.Symbol != "solusdt" {
		t.Fatalf("round trip lost symbol: %s", loaded.Exchange.Symbol)
	}
}

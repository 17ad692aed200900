// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Exchange describes the market data source the engine consumes.
type Exchange struct {
	Provider string `yaml:"provider"`
	Symbol   string `yaml:"symbol"`
	WSURL    string `yaml:"ws_url"`
}

// Bandit configures the softmax parameter switcher that rotates engine arms.
type Bandit struct {
	Enabled            bool    `yaml:"enabled"`
	SwitchEverySignals int     `yaml:"switch_every_signals"`
	Temperature        float64 `yaml:"temperature"`
	Decay              float64 `yaml:"decay"`
	PnLWindow          int     `yaml:"pnl_window"`
}

// Params groups every numeric knob of the decision pipeline. A Params value
// is swapped as a unit; swapping rebuilds all rolling-window state.
type Params struct {
	BenchmarkWarmupMinutes   float64 `yaml:"benchmark_warmup_minutes"`
	BenchmarkLookbackMinutes float64 `yaml:"benchmark_lookback_minutes"`
	BenchmarkSamplesPerSec   float64 `yaml:"benchmark_samples_per_sec"`

	LargeTradePercentile float64 `yaml:"large_trade_percentile"`
	TFILookbackTrades    int     `yaml:"tfi_lookback_trades"`
	SpreadVelocityTicks  int     `yaml:"spread_velocity_lookback_ticks"`
	SpreadVelocityMaxAbs float64 `yaml:"spread_velocity_max_abs"`
	TFIStdDevLookback    int     `yaml:"tfi_std_dev_lookback"`
	TFIStdDevMultiplier  float64 `yaml:"tfi_std_dev_multiplier"`

	AbsorptionZScoreThresh float64 `yaml:"absorption_z_score_thresh"`
	SignalCooldownMs       int     `yaml:"signal_cooldown_ms"`
	MinSignalStrength      float64 `yaml:"min_signal_strength"`
	MinPriceImpactConfirm  float64 `yaml:"min_price_impact_confirm"`

	ClusterMaxLookbackMs       int     `yaml:"cluster_max_lookback_ms"`
	WeakSignalStrength         float64 `yaml:"weak_signal_strength"`
	StrongEscalationThresh     float64 `yaml:"strong_escalation_thresh"`
	VerificationTradeLookahead int     `yaml:"verification_trade_lookahead"`
	VerificationMinNetFlow     int     `yaml:"verification_min_net_flow"`

	DominantFlowLookbackTrades int `yaml:"dominant_flow_lookback_trades"`

	ForgivingStreakLength     int     `yaml:"forgiving_streak_length"`
	ForgivingStreakMaxLives   int     `yaml:"forgiving_streak_max_lives"`
	ForgivingMaxCounterRatio  float64 `yaml:"forgiving_max_counter_volume_ratio"`
	ExhaustionStreakMinLength int     `yaml:"exhaustion_streak_min_length"`
	ExhaustionLogCooldownSecs float64 `yaml:"exhaustion_log_cooldown_secs"`

	RegimeTimeframesMinutes []float64 `yaml:"regime_timeframes_minutes"`
	RegimeDeltaThreshPct    float64   `yaml:"regime_delta_thresh_pct"`
	RegimeConsensusVotes    int       `yaml:"regime_consensus_votes"`

	ConvictionAnomalyHistorySize      int     `yaml:"conviction_anomaly_history_size"`
	ConvictionAnomalyBypassPercentile float64 `yaml:"conviction_anomaly_bypass_percentile"`

	TargetReturn             float64 `yaml:"target_return"`
	StopLossReturn           float64 `yaml:"stop_loss_return"`
	MaxHoldingTimeSeconds    float64 `yaml:"max_holding_time_seconds"`
	ReportingIntervalSignals int     `yaml:"reporting_interval_signals"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App      App      `yaml:"app"`
	Exchange Exchange `yaml:"exchange"`
	Engine   Params   `yaml:"engine"`
	Bandit   Bandit   `yaml:"bandit"`
	Arms     []Params `yaml:"arms"`
}

// DefaultParams returns the tuned baseline parameter bundle.
func DefaultParams() Params {
	return Params{
		BenchmarkWarmupMinutes:   4.0,
		BenchmarkLookbackMinutes: 8.0,
		BenchmarkSamplesPerSec:   20.0,

		LargeTradePercentile: 99.98,
		TFILookbackTrades:    18,
		SpreadVelocityTicks:  10,
		SpreadVelocityMaxAbs: 0.50,
		TFIStdDevLookback:    200,
		TFIStdDevMultiplier:  3.75,

		AbsorptionZScoreThresh: 4.0,
		SignalCooldownMs:       1000,
		MinSignalStrength:      2.9,
		MinPriceImpactConfirm:  0.8,

		ClusterMaxLookbackMs:       20000,
		WeakSignalStrength:         2.9,
		StrongEscalationThresh:     15.0,
		VerificationTradeLookahead: 17,
		VerificationMinNetFlow:     12,

		DominantFlowLookbackTrades: 1000,

		ForgivingStreakLength:     25,
		ForgivingStreakMaxLives:   5,
		ForgivingMaxCounterRatio:  0.30,
		ExhaustionStreakMinLength: 150,
		ExhaustionLogCooldownSecs: 5.0,

		RegimeTimeframesMinutes: []float64{3, 5, 15},
		RegimeDeltaThreshPct:    10.0,
		RegimeConsensusVotes:    2,

		ConvictionAnomalyHistorySize:      25,
		ConvictionAnomalyBypassPercentile: 95.0,

		TargetReturn:             0.0006,
		StopLossReturn:           -0.00008,
		MaxHoldingTimeSeconds:    120,
		ReportingIntervalSignals: 25,
	}
}

// Default returns a runnable configuration with the baseline engine arm.
func Default() *Config {
	return &Config{
		App: App{
			Name:        "tapebot",
			Env:         "dev",
			MetricsAddr: ":9109",
			LogLevel:    "info",
		},
		Exchange: Exchange{
			Provider: "binance",
			Symbol:   "btcusdt",
		},
		Engine: DefaultParams(),
		Bandit: Bandit{
			Enabled:            false,
			SwitchEverySignals: 20,
			Temperature:        0.3,
			Decay:              0.995,
			PnLWindow:          30,
		},
	}
}

// Validate rejects parameter bundles that would corrupt window invariants.
func (p Params) Validate() error {
	if p.BenchmarkLookbackMinutes <= 0 || p.BenchmarkSamplesPerSec <= 0 {
		return fmt.Errorf("benchmark lookback and sample rate must be positive")
	}
	if p.TFILookbackTrades <= 0 || p.TFIStdDevLookback <= 0 || p.SpreadVelocityTicks <= 0 {
		return fmt.Errorf("lookback windows must be positive")
	}
	if p.VerificationTradeLookahead <= 0 {
		return fmt.Errorf("verification_trade_lookahead must be positive")
	}
	if p.ForgivingStreakLength <= 0 || p.ForgivingStreakMaxLives < 0 {
		return fmt.Errorf("forgiving streak thresholds out of range")
	}
	if p.ConvictionAnomalyHistorySize <= 0 {
		return fmt.Errorf("conviction_anomaly_history_size must be positive")
	}
	if len(p.RegimeTimeframesMinutes) == 0 {
		return fmt.Errorf("at least one regime timeframe is required")
	}
	for _, m := range p.RegimeTimeframesMinutes {
		if m <= 0 {
			return fmt.Errorf("regime timeframes must be positive minutes")
		}
	}
	if p.RegimeConsensusVotes <= 0 || p.RegimeConsensusVotes > len(p.RegimeTimeframesMinutes) {
		return fmt.Errorf("regime_consensus_votes must be within the timeframe count")
	}
	return nil
}

// PercentileCapacity derives the trade-size percentile window from the
// configured lookback and sampling cadence.
func (p Params) PercentileCapacity() int {
	capacity := int(p.BenchmarkLookbackMinutes * 60.0 * p.BenchmarkSamplesPerSec)
	if capacity < 1 {
		capacity = 1
	}
	return capacity
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	config := Default()
	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := config.Engine.Validate(); err != nil {
		return nil, fmt.Errorf("engine params: %w", err)
	}
	for i, arm := range config.Arms {
		if err := arm.Validate(); err != nil {
			return nil, fmt.Errorf("arm %d: %w", i, err)
		}
	}
	return config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

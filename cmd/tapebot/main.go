package main

import (
	"context"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tapebot-go/internal/bandit"
	"tapebot-go/internal/capture"
	"tapebot-go/internal/config"
	"tapebot-go/internal/exchange"
	"tapebot-go/internal/market"
	"tapebot-go/internal/metrics"
	"tapebot-go/internal/outcome"
	"tapebot-go/internal/pulse"
	"tapebot-go/internal/util"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config")
	capturePath := flag.String("capture", "", "optional JSONL tick capture output")
	signalsPath := flag.String("signals", "", "optional JSONL signal record output")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback := util.NewLogger("info")
		fallback.Fatal().Err(err).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel)

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	feed := exchange.NewFeed(cfg.Exchange, log)
	ticks := make(chan market.Tick, 1024)
	go func() {
		if err := feed.Run(ctx, ticks); err != nil {
			log.Error().Err(err).Msg("feed stopped")
			cancel()
		}
	}()

	tracker := outcome.NewTracker(cfg.Engine, log)
	sinks := pulse.Sinks{tracker}
	if *signalsPath != "" {
		recorder, err := outcome.NewSignalRecorder(*signalsPath)
		if err != nil {
			log.Fatal().Err(err).Msg("open signal record")
		}
		defer recorder.Close()
		sinks = append(sinks, recorder)
	}

	var tickWriter *capture.TickWriter
	if *capturePath != "" {
		tickWriter, err = capture.NewTickWriter(*capturePath)
		if err != nil {
			log.Fatal().Err(err).Msg("open tick capture")
		}
		defer tickWriter.Close()
	}

	arms := cfg.Arms
	if len(arms) == 0 {
		arms = []config.Params{cfg.Engine}
	}
	tuner := bandit.NewManager(len(arms), cfg.Bandit, 0)
	session := pulse.NewSession(arms[0], log, sinks)
	lastSwitch := 0

	log.Info().
		Str("symbol", feed.Symbol()).
		Int("arms", len(arms)).
		Bool("bandit", cfg.Bandit.Enabled).
		Msg("signal engine started")

	for {
		select {
		case <-ctx.Done():
			tracker.Report()
			log.Info().Msg("shutting down")
			return
		case tk := <-ticks:
			if tickWriter != nil {
				tickWriter.Append(tk)
			}
			for _, res := range tracker.Evaluate(tk.Ts, tk.Mid()) {
				if cfg.Bandit.Enabled {
					tuner.RecordPnL(res.Return)
				}
			}
			session.OnTick(tk)

			if cfg.Bandit.Enabled && len(arms) > 1 &&
				session.SignalCount() >= lastSwitch+cfg.Bandit.SwitchEverySignals {
				lastSwitch = session.SignalCount()
				arm := tuner.SelectArm()
				log.Info().
					Int("arm", arm).
					Floats64("avg_pnls", tuner.Averages()).
					Msg("bandit switch")
				session.Swap(arms[arm])
			}
		}
	}
}

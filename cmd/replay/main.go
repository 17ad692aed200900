package main

import (
	"flag"

	"tapebot-go/internal/capture"
	"tapebot-go/internal/config"
	"tapebot-go/internal/market"
	"tapebot-go/internal/outcome"
	"tapebot-go/internal/pulse"
	"tapebot-go/internal/util"
)

// replay drives a recorded tick capture through the full pipeline at file
// speed and prints the performance scoreboard at the end.
func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config")
	ticksPath := flag.String("ticks", "", "JSONL tick capture to replay (required)")
	signalsPath := flag.String("signals", "", "optional JSONL signal record output")
	flag.Parse()

	log := util.NewLogger("info")
	if *ticksPath == "" {
		log.Fatal().Msg("-ticks is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	log = util.NewLogger(cfg.App.LogLevel)

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

	session := pulse.NewSession(cfg.Engine, log, sinks)
	processed := 0
	err = capture.ReadTicks(*ticksPath, func(tk market.Tick) error {
		tracker.Evaluate(tk.Ts, tk.Mid())
		session.OnTick(tk)
		processed++
		return nil
	})
	if err != nil {
		log.Fatal().Err(err).Msg("replay failed")
	}

	tracker.Report()
	log.Info().
		Int("ticks", processed).
		Int("signals", session.SignalCount()).
		Msg("replay complete")
}

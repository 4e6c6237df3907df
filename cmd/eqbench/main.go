package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/jeongseonghan/eqbench/internal/bench"
	"github.com/jeongseonghan/eqbench/internal/report"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "YAML experiment config (reference scenario if empty)")
	outPath := pflag.StringP("out", "o", "", "write results to this file as JSON")
	listen := pflag.StringP("listen", "l", "", "serve live progress over WebSocket on this address")
	seed := pflag.Int64("seed", 0, "override the experiment seed")
	methods := pflag.StringSlice("methods", nil, "override methods to run (linear, dfe, mlse-ideal, mlse-imperfect)")
	verbose := pflag.BoolP("verbose", "v", false, "per-block debug logging")
	pflag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "eqbench",
	})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	cfg := bench.Default()
	if *configPath != "" {
		var err error
		cfg, err = bench.Load(*configPath)
		if err != nil {
			logger.Fatal("load config", "err", err)
		}
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if len(*methods) > 0 {
		cfg.Methods = cfg.Methods[:0]
		for _, m := range *methods {
			cfg.Methods = append(cfg.Methods, bench.Method(m))
		}
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", "err", err)
	}

	rep := &progressReporter{logger: logger}
	if *listen != "" {
		hub := report.NewHub(logger)
		rep.hub = hub
		go func() {
			logger.Info("serving live progress", "addr", *listen)
			if err := hub.Serve(*listen); err != nil {
				logger.Error("progress server stopped", "err", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn("interrupted")
		os.Exit(1)
	}()

	logger.Info("starting sweep",
		"methods", cfg.Methods,
		"points", len(cfg.EbNoDB),
		"channel taps", len(cfg.ChannelTaps),
		"seed", cfg.Seed)

	results, err := bench.Run(cfg, rep)
	if err != nil {
		logger.Fatal("sweep failed", "err", err)
	}

	report.RenderTable(os.Stdout, results)

	if *outPath != "" {
		if err := report.WriteJSON(*outPath, results); err != nil {
			logger.Fatal("write results", "err", err)
		}
		logger.Info("results written", "path", *outPath)
	}
}

// progressReporter logs sweep progress and forwards it to the optional
// WebSocket hub.
type progressReporter struct {
	logger *log.Logger
	hub    *report.Hub
}

func (p *progressReporter) PointStarted(method bench.Method, ebNoDB float64) {
	p.logger.Info("point started", "method", method, "ebNo", ebNoDB)
	if p.hub != nil {
		p.hub.PointStarted(method, ebNoDB)
	}
}

func (p *progressReporter) BlockProcessed(method bench.Method, ebNoDB float64, acc bench.Accumulator, equalized []float64) {
	p.logger.Debug("block", "method", method, "ebNo", ebNoDB,
		"errors", acc.Errors, "bits", acc.Bits, "ber", acc.BER())
	if p.hub != nil {
		p.hub.BlockProcessed(method, ebNoDB, acc, equalized)
	}
}

func (p *progressReporter) PointDone(res bench.PointResult) {
	p.logger.Info("point done", "method", res.Method, "ebNo", res.EbNoDB,
		"ber", res.BER, "errors", res.Errors, "bits", res.Bits)
	if p.hub != nil {
		p.hub.PointDone(res)
	}
}

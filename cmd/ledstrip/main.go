package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-ledstrip/internal/app"
	"github.com/coreman2200/funtimes-ledstrip/internal/config"
	"github.com/coreman2200/funtimes-ledstrip/internal/diagnostics"
)

func main() {
	// ---- Flags (override config.yaml when set) ----
	var (
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		addr       = flag.String("addr", "", "HTTP listen address (default from config, :8080)")
		tickMs     = flag.Int("tick", 0, "animator tick in milliseconds (default from config, 20)")
		simOnly    = flag.Bool("sim-only", false, "force simulation (no hardware output)")
		debug      = flag.Bool("debug", false, "debug logging")
	)
	flag.Parse()

	// ---- Logging ----
	diags := diagnostics.NewLog(0)
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}).
		Hook(diagnostics.Hook{Log: diags})

	// ---- Config ----
	cfg, err := config.Load(*configPath)
	fromFile := err == nil
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Warn().Str("path", *configPath).Msg("no config file; using a single simulated strip")
		cfg = config.Default()
	case err != nil:
		log.Fatal().Err(err).Str("path", *configPath).Msg("config load failed")
	}
	if *addr != "" {
		cfg.Listen = *addr
	}
	if *tickMs > 0 {
		cfg.Animator.TickMs = *tickMs
	}
	if *simOnly {
		cfg.SimOnly()
	}

	// ---- Boot ----
	sub, err := app.New(cfg, diags)
	if err != nil {
		log.Fatal().Err(err).Msg("boot failed")
	}
	if fromFile {
		sub.ConfigPath = *configPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	log.Info().Str("addr", cfg.Listen).Strs("drivers", cfg.Drivers()).
		Int("leds", sub.Strips.Len()).Msg("ledstrip starting")
	err = sub.Run(ctx)
	stop()
	if err != nil {
		log.Fatal().Err(err).Msg("ledstrip stopped")
	}
	log.Info().Msg("bye")
}

// Package app assembles the LED subsystem from a config and runs it.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/coreman2200/funtimes-ledstrip/internal/animator"
	"github.com/coreman2200/funtimes-ledstrip/internal/config"
	"github.com/coreman2200/funtimes-ledstrip/internal/diagnostics"
	"github.com/coreman2200/funtimes-ledstrip/internal/led"
	"github.com/coreman2200/funtimes-ledstrip/internal/schedule"
	"github.com/coreman2200/funtimes-ledstrip/internal/strip"
	"github.com/coreman2200/funtimes-ledstrip/internal/ws"
)

// Subsystem is everything built at boot. Build it once with New, then Run.
type Subsystem struct {
	Config   *config.Config
	Strips   *strip.Registry
	Animator *animator.Animator
	Diags    *diagnostics.Log
	Schedule *schedule.Scheduler
	State    *ws.State

	// ConfigPath is where schedule changes are saved; empty keeps them in
	// memory only.
	ConfigPath string

	saveMu sync.Mutex
	log    zerolog.Logger
}

// New opens every strip channel and wires the animator, scheduler and
// network state. The first failure aborts and closes whatever was opened.
// diags may be nil.
func New(cfg *config.Config, diags *diagnostics.Log) (*Subsystem, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if diags == nil {
		diags = diagnostics.NewLog(0)
	}
	s := &Subsystem{
		Config: cfg,
		Strips: strip.NewRegistry(),
		Diags:  diags,
		log:    log.With().Str("component", "app").Logger(),
	}

	if err := s.openStrips(); err != nil {
		s.Strips.Close()
		return nil, err
	}

	a := cfg.Animator
	anim, err := animator.New(s.Strips, animator.Config{
		Tick:       a.Tick(),
		BlinkMin:   a.BlinkMin(),
		RainbowMin: a.RainbowMin(),
		RainbowMax: a.RainbowMax(),
		QueueDepth: a.QueueDepth,
		Observer:   animator.ObserverFunc(s.report),
	})
	if err != nil {
		s.Strips.Close()
		return nil, err
	}
	s.Animator = anim

	s.Schedule = schedule.New(anim, s.Strips, diags)
	for _, sc := range cfg.Schedules {
		if _, err := s.Schedule.Add(sc); err != nil {
			s.Strips.Close()
			return nil, err
		}
	}

	s.State = ws.NewState(ws.Options{
		Animator:       anim,
		Resolver:       s.Strips,
		Diags:          diags,
		Schedules:      s.Schedule,
		Driver:         strings.Join(cfg.Drivers(), ","),
		Persist:        s.saveSchedules,
		RatePerSec:     cfg.Control.RatePerSec,
		Burst:          cfg.Control.Burst,
		AllowedOrigins: cfg.Control.AllowedOrigins,
	})
	return s, nil
}

func (s *Subsystem) openStrips() error {
	for _, sc := range s.Config.Strips {
		p, err := sc.Profile()
		if err != nil {
			return fmt.Errorf("strip %q: %w", sc.Name, err)
		}
		ch, err := led.Open(sc.LedOptions(), p, sc.LEDs)
		if err != nil {
			return fmt.Errorf("strip %q: %w", sc.Name, err)
		}
		if err := s.Strips.Add(sc.Name, p, sc.LEDs, ch); err != nil {
			ch.Close()
			return err
		}
		s.log.Info().Str("strip", sc.Name).Str("type", p.Name).Int("leds", sc.LEDs).
			Str("driver", sc.Driver).Msg("strip ready")
	}
	return nil
}

// report turns Status replies into info diagnostics so /status clients see them.
func (s *Subsystem) report(r animator.Report) {
	d := diagnostics.Diagnostic{
		Severity: diagnostics.Info,
		Code:     "LED.status",
		Summary:  fmt.Sprintf("%s %s %s", r.Name, r.Mode, r.Colour),
		Evidence: map[string]any{"index": r.Index},
	}
	if r.Period > 0 {
		d.Evidence["period_ms"] = r.Period.Milliseconds()
	}
	s.Diags.Push(d)
}

// saveSchedules rewrites the schedule list in the file at ConfigPath. The
// file is reread so flag overrides applied at boot are not written back.
func (s *Subsystem) saveSchedules() error {
	if s.ConfigPath == "" {
		return nil
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	onDisk, err := config.Load(s.ConfigPath)
	if err != nil {
		return err
	}
	entries := s.Schedule.Entries()
	onDisk.Schedules = make([]config.Schedule, len(entries))
	for i, e := range entries {
		onDisk.Schedules[i] = config.Schedule{Name: e.Name, Spec: e.Spec, Command: e.Command}
	}
	if err := config.Save(s.ConfigPath, onDisk); err != nil {
		return err
	}
	s.log.Info().Str("path", s.ConfigPath).Int("schedules", len(entries)).Msg("schedules saved")
	return nil
}

// Run listens on the configured address and serves until ctx is done.
func (s *Subsystem) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Config.Listen)
	if err != nil {
		s.shutdown()
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve runs the animator, the scheduler and the HTTP server on ln until ctx
// is done or one of them fails. Every LED is switched off and the channels
// are closed before it returns.
func (s *Subsystem) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.State.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Animator.Run(gctx) })
	g.Go(func() error { return s.Schedule.Run(gctx) })
	g.Go(func() error {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("HTTP server starting")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(sctx)
		return errors.Join(err, s.State.Close())
	})

	err := g.Wait()
	return errors.Join(err, s.shutdown())
}

func (s *Subsystem) shutdown() error {
	s.log.Info().Msg("shutting down")
	var errs []error
	if err := s.Animator.Blackout(); err != nil {
		s.log.Warn().Err(err).Msg("blackout")
		errs = append(errs, err)
	}
	if err := s.Strips.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

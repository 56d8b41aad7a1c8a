// Package animator runs the per-LED animation state machines.
//
// One goroutine owns everything: it drains the command queue, advances every
// LED by one tick and pushes the resulting colours through the strip
// registry. Producers only ever touch the queue.
package animator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-ledstrip/internal/color"
	"github.com/coreman2200/funtimes-ledstrip/internal/errcode"
	"github.com/coreman2200/funtimes-ledstrip/internal/polltimer"
	"github.com/coreman2200/funtimes-ledstrip/internal/strip"
)

const (
	DefaultTick       = 20 * time.Millisecond
	DefaultRainbowMin = time.Second
	DefaultRainbowMax = time.Minute
	DefaultTestStep   = 500 * time.Millisecond
)

type Config struct {
	// Tick is the wake cadence and the quantum of every period.
	Tick time.Duration
	// BlinkMin is the shortest blink period; defaults to two ticks.
	BlinkMin   time.Duration
	RainbowMin time.Duration
	RainbowMax time.Duration
	// QueueDepth defaults to four slots per command kind.
	QueueDepth int
	// Clock drives blink timers; nil means polltimer.System.
	Clock    polltimer.Clock
	Observer Observer
}

func (c Config) withDefaults() Config {
	if c.Tick <= 0 {
		c.Tick = DefaultTick
	}
	if c.BlinkMin <= 0 {
		c.BlinkMin = 2 * c.Tick
	}
	if c.RainbowMin <= 0 {
		c.RainbowMin = DefaultRainbowMin
	}
	if c.RainbowMax <= 0 {
		c.RainbowMax = DefaultRainbowMax
	}
	if c.QueueDepth <= 0 {
		c.QueueDepth = 4 * Actions
	}
	if c.Clock == nil {
		c.Clock = polltimer.System
	}
	return c
}

// Stats are running counters, readable from any goroutine.
type Stats struct {
	Submitted uint64
	Dropped   uint64
	Applied   uint64
	Steps     uint64
}

type Animator struct {
	cfg   Config
	reg   *strip.Registry
	queue chan Command
	leds  []ledState
	names []string
	log   zerolog.Logger

	running   atomic.Bool
	submitted atomic.Uint64
	dropped   atomic.Uint64
	applied   atomic.Uint64
	steps     atomic.Uint64
	snapshot  atomic.Pointer[[]Report]
}

// New builds an animator over every LED in reg. The registry must not gain
// strips afterwards.
func New(reg *strip.Registry, cfg Config) (*Animator, error) {
	if reg == nil || reg.Len() == 0 {
		return nil, errcode.New(errcode.InvalidParams, "animator.New", "no LEDs registered")
	}
	cfg = cfg.withDefaults()
	if cfg.RainbowMin > cfg.RainbowMax {
		return nil, errcode.New(errcode.InvalidParams, "animator.New",
			fmt.Sprintf("rainbow bounds %s > %s", cfg.RainbowMin, cfg.RainbowMax))
	}
	a := &Animator{
		cfg:   cfg,
		reg:   reg,
		queue: make(chan Command, cfg.QueueDepth),
		leds:  make([]ledState, reg.Len()),
		names: make([]string, reg.Len()),
		log:   log.With().Str("component", "animator").Logger(),
	}
	for i := range a.leds {
		a.leds[i].blink.timer.Clock = cfg.Clock
		a.names[i], _ = reg.Index2Name(i)
	}
	a.publish()
	return a, nil
}

// Tick returns the configured cadence.
func (a *Animator) Tick() time.Duration { return a.cfg.Tick }

// Submit queues cmd for the next tick without blocking. A full queue drops
// the command and returns an errcode.Busy error.
func (a *Animator) Submit(cmd Command) error {
	if cmd == nil {
		return errcode.New(errcode.InvalidParams, "animator.Submit", "nil command")
	}
	select {
	case a.queue <- cmd:
		a.submitted.Add(1)
		return nil
	default:
		a.dropped.Add(1)
		a.log.Warn().Stringer("cmd", cmd).Int("depth", cap(a.queue)).Msg("command queue full, dropped")
		return errcode.New(errcode.Busy, "animator.Submit", "command queue full")
	}
}

// Step runs one tick: apply the commands queued when the tick began, then
// advance every LED. Commands submitted meanwhile wait for the next tick.
// It must only be called from the goroutine that owns the animator.
func (a *Animator) Step() {
	for n := len(a.queue); n > 0; n-- {
		a.apply(<-a.queue)
	}

	for i := range a.leds {
		a.stepLED(i)
	}
	a.flush()
	a.steps.Add(1)
	a.publish()
}

// Run steps the animator at start+n*Tick until ctx is done. Steps missed
// because a wake-up came late are run back to back.
func (a *Animator) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return errcode.New(errcode.Busy, "animator.Run", "already running")
	}
	defer a.running.Store(false)

	a.log.Info().Dur("tick", a.cfg.Tick).Int("leds", len(a.leds)).Msg("animator running")
	timer := time.NewTimer(0)
	<-timer.C
	defer timer.Stop()

	start := time.Now()
	for n := 1; ; n++ {
		if wait := time.Until(start.Add(time.Duration(n) * a.cfg.Tick)); wait > 0 {
			timer.Reset(wait)
			select {
			case <-ctx.Done():
				return nil
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			return nil
		}
		a.Step()
	}
}

// Blackout turns every LED off and refreshes every strip. It is meant for
// shutdown, after Run has returned.
func (a *Animator) Blackout() error {
	if a.running.Load() {
		return errcode.New(errcode.Busy, "animator.Blackout", "animator still running")
	}
	var errs []error
	for i := range a.leds {
		a.leds[i] = ledState{blink: blinkState{timer: polltimer.Timer{Clock: a.cfg.Clock}}}
		if err := a.reg.Set(i, color.Black); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.reg.Flush(); err != nil {
		errs = append(errs, err)
	}
	a.publish()
	return errors.Join(errs...)
}

func (a *Animator) Stats() Stats {
	return Stats{
		Submitted: a.submitted.Load(),
		Dropped:   a.dropped.Load(),
		Applied:   a.applied.Load(),
		Steps:     a.steps.Load(),
	}
}

// Snapshot returns every LED's state as of the last completed tick. Safe
// from any goroutine.
func (a *Animator) Snapshot() []Report {
	return *a.snapshot.Load()
}

func (a *Animator) publish() {
	out := make([]Report, len(a.leds))
	for i := range a.leds {
		out[i] = a.report(i)
	}
	a.snapshot.Store(&out)
}

func (a *Animator) report(i int) Report {
	s := &a.leds[i]
	return Report{Index: i, Name: a.names[i], Mode: s.mode, Colour: s.shown, Period: s.period()}
}

func (a *Animator) apply(cmd Command) {
	a.applied.Add(1)
	if _, ok := cmd.(Nop); ok {
		return
	}
	cmd.Targets().Each(func(i int) {
		if i >= len(a.leds) {
			a.log.Warn().Int("led", i).Stringer("cmd", cmd).Msg("led out of range, skipped")
			return
		}
		a.applyLED(i, cmd)
	})
	a.flush()
}

func (a *Animator) applyLED(i int, cmd Command) {
	s := &a.leds[i]
	switch c := cmd.(type) {
	case Off:
		a.reset(s, ModeOff)
		a.push(i, color.Black)

	case SetColour:
		mode := ModeOn
		if c.Colour.IsBlack() {
			mode = ModeOff
		}
		a.reset(s, mode)
		a.push(i, c.Colour)

	case Blink:
		other := color.Black
		if c.Alternate != nil {
			other = *c.Alternate
		}
		a.reset(s, ModeBlink)
		s.blink.period = a.blinkPeriod(c.Period)
		s.blink.next = other
		s.blink.other = c.Colour
		a.push(i, c.Colour)
		s.blink.timer.Start(s.blink.period/2, true)

	case Rainbow:
		a.reset(s, ModeRainbow)
		p := a.rainbowPeriod(c.Period)
		s.rainbow = rainbowState{total: int(p / a.cfg.Tick), period: p}
		a.push(i, color.Black)

	case Test:
		a.reset(s, ModeTest)
		set := c.LEDs & strip.Span(0, len(a.leds))
		p := a.testPeriod(c.Step)
		s.test = testState{
			pattern: c.Pattern,
			slot:    set.Rank(i),
			count:   set.Count(),
			hold:    int(p / a.cfg.Tick),
			period:  p,
		}
		a.push(i, s.test.colour())

	case Status:
		r := a.report(i)
		if a.cfg.Observer != nil {
			a.cfg.Observer.Report(r)
			return
		}
		a.log.Info().Int("led", r.Index).Str("name", r.Name).Stringer("mode", r.Mode).
			Stringer("colour", r.Colour).Dur("period", r.Period).Msg("status")
	}
}

// reset enters mode with fresh payloads; the blink timer is stopped.
func (a *Animator) reset(s *ledState, mode Mode) {
	s.blink.timer.Stop()
	timer := s.blink.timer
	*s = ledState{mode: mode, shown: s.shown}
	s.blink.timer = timer
}

func (a *Animator) stepLED(i int) {
	s := &a.leds[i]
	switch s.mode {
	case ModeBlink:
		if s.blink.timer.Expired() {
			a.push(i, s.blink.next)
			s.blink.next, s.blink.other = s.blink.other, s.blink.next
		}

	case ModeRainbow:
		r := &s.rainbow
		hue := 360 * r.tick / r.total % 360
		a.push(i, color.HSVToRGB(hue, 100, 100))
		r.tick++
		if r.tick >= r.total {
			r.tick = 0
		}

	case ModeTest:
		t := &s.test
		if c := t.colour(); c != s.shown {
			a.push(i, c)
		}
		t.tick++
		if t.tick >= t.hold*t.cycle() {
			t.tick = 0
		}
	}
}

func (a *Animator) push(i int, c color.Value) {
	if err := a.reg.Set(i, c); err != nil {
		a.log.Warn().Err(err).Int("led", i).Msg("set colour")
		return
	}
	a.leds[i].shown = c
}

func (a *Animator) flush() {
	if err := a.reg.Flush(); err != nil {
		a.log.Warn().Err(err).Msg("strip refresh")
	}
}

// snap rounds p up to a whole multiple of q.
func snap(p, q time.Duration) time.Duration {
	if p <= 0 {
		return q
	}
	return (p + q - 1) / q * q
}

func clamp(p, lo, hi time.Duration) time.Duration {
	if p < lo {
		return lo
	}
	if hi > 0 && p > hi {
		return hi
	}
	return p
}

// blinkPeriod snaps to the tick. An odd number of ticks leaves the half
// period between ticks; the reload timer keeps each swap within one tick.
func (a *Animator) blinkPeriod(p time.Duration) time.Duration {
	q := a.cfg.Tick
	return clamp(snap(p, q), snap(a.cfg.BlinkMin, q), 0)
}

// testPeriod is the time each pattern step is held, at least one tick.
func (a *Animator) testPeriod(p time.Duration) time.Duration {
	if p <= 0 {
		p = DefaultTestStep
	}
	return snap(p, a.cfg.Tick)
}

func (a *Animator) rainbowPeriod(p time.Duration) time.Duration {
	q := a.cfg.Tick
	lo := snap(a.cfg.RainbowMin, q)
	hi := a.cfg.RainbowMax / q * q
	if hi < lo {
		hi = lo
	}
	return clamp(snap(p, q), lo, hi)
}

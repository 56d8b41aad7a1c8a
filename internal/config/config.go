package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/funtimes-ledstrip/internal/errcode"
	"github.com/coreman2200/funtimes-ledstrip/internal/led"
	"github.com/coreman2200/funtimes-ledstrip/internal/nrz"
	"github.com/coreman2200/funtimes-ledstrip/internal/strip"
)

type SPI struct {
	Port    string `yaml:"port,omitempty"`     // spireg name, e.g. /dev/spidev0.0; empty = first port
	SpeedHz int    `yaml:"speed_hz,omitempty"` // spi: clock, nrzled: LED bit rate
}

type Strip struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`   // ws2812 | ws2812b | ws2811 | sk6812 | sk6812rgbw | apa106
	LEDs   int    `yaml:"leds"`   // LEDs on this strip
	Driver string `yaml:"driver"` // spi | nrzled | console | sim

	ColorOrder   string `yaml:"color_order,omitempty"`   // overrides the chip's byte order, e.g. RGB
	BlockSymbols int    `yaml:"block_symbols,omitempty"` // encoder symbol memory
	Fallback     bool   `yaml:"fallback,omitempty"`      // console preview if SPI is missing
	SPI          SPI    `yaml:"spi,omitempty"`
}

type Animator struct {
	TickMs       int `yaml:"tick_ms"`
	QueueDepth   int `yaml:"queue_depth,omitempty"`
	BlinkMinMs   int `yaml:"blink_min_ms,omitempty"`
	RainbowMinMs int `yaml:"rainbow_min_ms"`
	RainbowMaxMs int `yaml:"rainbow_max_ms"`
}

type Control struct {
	RatePerSec float64 `yaml:"rate_per_sec"` // commands per second per connection
	Burst      int     `yaml:"burst"`

	// AllowedOrigins limits websocket clients; empty allows any origin.
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

// Schedule submits Command whenever the cron Spec fires.
type Schedule struct {
	Name    string `yaml:"name,omitempty"`
	Spec    string `yaml:"spec"`    // cron spec with seconds, or @every 10s
	Command string `yaml:"command"` // e.g. "rainbow desk 5000"
}

type Config struct {
	Listen    string     `yaml:"listen"`
	Animator  Animator   `yaml:"animator"`
	Control   Control    `yaml:"control"`
	Strips    []Strip    `yaml:"strips"`
	Schedules []Schedule `yaml:"schedules,omitempty"`
}

// Default is a single simulated 8 LED strip.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		Animator: Animator{
			TickMs:       20,
			RainbowMinMs: 1000,
			RainbowMaxMs: 60000,
		},
		Control: Control{RatePerSec: 10, Burst: 20},
		Strips: []Strip{
			{Name: "strip", Type: "ws2812b", LEDs: 8, Driver: led.DriverSim},
		},
	}
}

// Load reads path over the defaults and validates the result. A file that
// sets strips replaces the default strip list.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	c.Strips = nil
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if len(c.Strips) == 0 {
		c.Strips = Default().Strips
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// Validate checks everything that can be checked without touching hardware.
func (c *Config) Validate() error {
	const op = "config.Validate"
	bad := func(format string, args ...any) error {
		return errcode.New(errcode.InvalidParams, op, fmt.Sprintf(format, args...))
	}

	a := c.Animator
	if a.TickMs <= 0 {
		return bad("animator.tick_ms must be positive")
	}
	if a.RainbowMinMs <= 0 || a.RainbowMaxMs < a.RainbowMinMs {
		return bad("animator rainbow bounds %d..%d ms", a.RainbowMinMs, a.RainbowMaxMs)
	}
	if a.BlinkMinMs < 0 || a.QueueDepth < 0 {
		return bad("animator blink_min_ms and queue_depth must not be negative")
	}
	if c.Control.RatePerSec < 0 || c.Control.Burst < 0 {
		return bad("control rate and burst must not be negative")
	}

	if len(c.Strips) == 0 {
		return bad("no strips")
	}
	seen := map[string]bool{}
	total := 0
	for i, s := range c.Strips {
		switch {
		case s.Name == "":
			return bad("strips[%d]: empty name", i)
		case strings.ContainsAny(s.Name, ": \t"):
			return bad("strip %q: name must not contain ':' or spaces", s.Name)
		case strings.HasPrefix(s.Name, "0x") || s.Name[0] >= '0' && s.Name[0] <= '9':
			return bad("strip %q: name must not look like an index", s.Name)
		case seen[s.Name]:
			return bad("strip %q: duplicate name", s.Name)
		case s.LEDs <= 0:
			return bad("strip %q: leds must be positive", s.Name)
		case s.BlockSymbols < 0 || s.SPI.SpeedHz < 0:
			return bad("strip %q: block_symbols and speed_hz must not be negative", s.Name)
		}
		seen[s.Name] = true
		total += s.LEDs

		if _, err := s.Profile(); err != nil {
			return err
		}
		switch strings.ToLower(s.Driver) {
		case "", led.DriverSPI, led.DriverNRZLED, led.DriverConsole, led.DriverSim:
		default:
			return bad("strip %q: unknown driver %q", s.Name, s.Driver)
		}
	}
	if total > strip.MaxLEDs {
		return bad("%d LEDs configured, at most %d", total, strip.MaxLEDs)
	}

	for i, s := range c.Schedules {
		if strings.TrimSpace(s.Spec) == "" || strings.TrimSpace(s.Command) == "" {
			return bad("schedules[%d]: spec and command are required", i)
		}
	}
	return nil
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func (a Animator) Tick() time.Duration       { return ms(a.TickMs) }
func (a Animator) BlinkMin() time.Duration   { return ms(a.BlinkMinMs) }
func (a Animator) RainbowMin() time.Duration { return ms(a.RainbowMinMs) }
func (a Animator) RainbowMax() time.Duration { return ms(a.RainbowMaxMs) }

// Profile is the chip profile for the strip's type with any color_order
// override applied.
func (s Strip) Profile() (nrz.Profile, error) {
	p, err := nrz.LookupProfile(s.Type)
	if err != nil {
		return p, fmt.Errorf("strip %q: %w", s.Name, err)
	}
	if s.ColorOrder == "" {
		return p, nil
	}
	order := strings.ToLower(s.ColorOrder)
	if len(order) < 3 || len(order) > 4 || strings.Trim(order, "rgbw") != "" {
		return p, errcode.New(errcode.InvalidParams, "config.Profile",
			fmt.Sprintf("strip %q: bad color_order %q", s.Name, s.ColorOrder))
	}
	p.Channels = order
	return p, nil
}

// SimOnly points every strip at the simulator.
func (c *Config) SimOnly() {
	for i := range c.Strips {
		c.Strips[i].Driver = led.DriverSim
	}
}

// Drivers lists the distinct strip drivers in strip order.
func (c *Config) Drivers() []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range c.Strips {
		d := strings.ToLower(s.Driver)
		if d == "" {
			d = led.DriverSim
		}
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}

// LedOptions maps the strip's driver settings onto led.Options.
func (s Strip) LedOptions() led.Options {
	return led.Options{
		Driver:       s.Driver,
		Port:         s.SPI.Port,
		Freq:         physic.Frequency(s.SPI.SpeedHz) * physic.Hertz,
		BlockSymbols: s.BlockSymbols,
		Fallback:     s.Fallback,
	}
}

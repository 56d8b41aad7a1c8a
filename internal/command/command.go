// Package command reads the one-line text form of animation commands used
// by scheduled jobs and the control socket.
//
//	nop
//	off     <addr>
//	colour  <addr> <colour|random>
//	blink   <addr> <colour|random> <period_ms> [<colour2|random>]
//	rainbow <addr> <period_ms>
//	status  <addr>
//	test    <addr> <sweep|rgb> [<step_ms>]
//
// "color" is accepted for "colour". Addresses follow the strip address
// grammar: a decimal index, a 0x bit mask, or name[:offset].
package command

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/coreman2200/funtimes-ledstrip/internal/animator"
	"github.com/coreman2200/funtimes-ledstrip/internal/color"
	"github.com/coreman2200/funtimes-ledstrip/internal/errcode"
	"github.com/coreman2200/funtimes-ledstrip/internal/strip"
)

// Resolver turns an address into an LED mask. *strip.Registry is one.
type Resolver interface {
	ParseAddress(addr string) (strip.Mask, error)
}

// Usage lists the accepted forms and colour names.
var Usage = `nop
off <addr>
colour <addr> <colour|random>
blink <addr> <colour|random> <period_ms> [<colour2|random>]
rainbow <addr> <period_ms>
status <addr>
test <addr> <sweep|rgb> [<step_ms>]
colours: ` + strings.Join(color.Names(), " ") + ` #RRGGBB 0xRRGGBB random`

const op = "command.Parse"

// Parse reads one command line. Errors carry errcode.NotFound for an unknown
// action, strip or colour name and errcode.InvalidParams for anything
// malformed. rnd picks "random" colours and may be nil when none are used.
func Parse(line string, res Resolver, rnd *rand.Rand) (animator.Command, error) {
	f := strings.Fields(line)
	if len(f) == 0 {
		return nil, errcode.New(errcode.InvalidParams, op, "empty command")
	}
	action, args := strings.ToLower(f[0]), f[1:]

	nargs := map[string][2]int{
		"nop":     {0, 0},
		"off":     {1, 1},
		"colour":  {2, 2},
		"color":   {2, 2},
		"blink":   {3, 4},
		"rainbow": {2, 2},
		"status":  {1, 1},
		"test":    {2, 3},
	}
	want, ok := nargs[action]
	if !ok {
		return nil, errcode.New(errcode.NotFound, op, "unknown action "+strconv.Quote(f[0]))
	}
	if len(args) < want[0] || len(args) > want[1] {
		return nil, errcode.New(errcode.InvalidParams, op,
			fmt.Sprintf("%s takes %d to %d arguments, got %d", action, want[0], want[1], len(args)))
	}
	if action == "nop" {
		return animator.Nop{}, nil
	}

	leds, err := res.ParseAddress(args[0])
	if err != nil {
		return nil, err
	}

	switch action {
	case "off":
		return animator.Off{LEDs: leds}, nil

	case "status":
		return animator.Status{LEDs: leds}, nil

	case "colour", "color":
		c, err := parseColour(args[1], rnd)
		if err != nil {
			return nil, err
		}
		return animator.SetColour{LEDs: leds, Colour: c}, nil

	case "rainbow":
		p, err := parsePeriod(args[1])
		if err != nil {
			return nil, err
		}
		return animator.Rainbow{LEDs: leds, Period: p}, nil

	case "test":
		pat, ok := animator.PatternByName(args[1])
		if !ok {
			return nil, errcode.New(errcode.NotFound, op, "unknown pattern "+strconv.Quote(args[1]))
		}
		cmd := animator.Test{LEDs: leds, Pattern: pat}
		if len(args) == 3 {
			p, err := parsePeriod(args[2])
			if err != nil {
				return nil, err
			}
			cmd.Step = p
		}
		return cmd, nil
	}

	// blink
	c, err := parseColour(args[1], rnd)
	if err != nil {
		return nil, err
	}
	p, err := parsePeriod(args[2])
	if err != nil {
		return nil, err
	}
	cmd := animator.Blink{LEDs: leds, Period: p, Colour: c}
	if len(args) == 4 {
		alt, err := parseColour(args[3], rnd)
		if err != nil {
			return nil, err
		}
		cmd.Alternate = &alt
	}
	return cmd, nil
}

func parseColour(s string, rnd *rand.Rand) (color.Value, error) {
	if strings.EqualFold(s, "random") {
		if rnd == nil {
			return color.Black, errcode.New(errcode.Unsupported, op, "random colour without a source")
		}
		return color.Random(rnd), nil
	}
	return color.Parse(s)
}

// parsePeriod reads a positive millisecond count. Inconvenient values are
// left for the animator to snap and clamp.
func parsePeriod(s string) (time.Duration, error) {
	ms, err := strconv.Atoi(s)
	if err != nil {
		return 0, errcode.New(errcode.InvalidParams, op, "bad period "+strconv.Quote(s))
	}
	if ms <= 0 {
		return 0, errcode.New(errcode.InvalidParams, op, fmt.Sprintf("period %dms must be positive", ms))
	}
	return time.Duration(ms) * time.Millisecond, nil
}

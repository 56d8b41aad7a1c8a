package animator

import (
	"fmt"
	"strings"
	"time"

	"github.com/coreman2200/funtimes-ledstrip/internal/color"
	"github.com/coreman2200/funtimes-ledstrip/internal/strip"
)

// Command is one animation request. The concrete types below are the only
// implementations.
type Command interface {
	// Targets is the set of LEDs the command applies to.
	Targets() strip.Mask
	fmt.Stringer
	command()
}

// Nop does nothing; producers use it to poke the queue.
type Nop struct{}

// Off turns LEDs off and cancels any animation on them.
type Off struct {
	LEDs strip.Mask
}

// SetColour shows a steady colour. Black is the same as Off.
type SetColour struct {
	LEDs   strip.Mask
	Colour color.Value
}

// Blink alternates Colour and Alternate, each shown for half of Period.
// A nil Alternate blinks against black.
type Blink struct {
	LEDs      strip.Mask
	Period    time.Duration
	Colour    color.Value
	Alternate *color.Value
}

// Rainbow sweeps the hue wheel once per Period.
type Rainbow struct {
	LEDs   strip.Mask
	Period time.Duration
}

// Pattern is a hardware check run by Test.
type Pattern uint8

const (
	// PatternSweep lights one LED of the set at a time, lowest index first,
	// to check index and name mapping.
	PatternSweep Pattern = iota
	// PatternRGB lights the whole set red, green, blue then white-channel
	// only, to check a strip's colour order.
	PatternRGB
)

func (p Pattern) String() string {
	if p == PatternRGB {
		return "rgb"
	}
	return "sweep"
}

// PatternByName reads "sweep" or "rgb".
func PatternByName(name string) (Pattern, bool) {
	switch strings.ToLower(name) {
	case "sweep":
		return PatternSweep, true
	case "rgb":
		return PatternRGB, true
	}
	return 0, false
}

// Test runs Pattern over LEDs, advancing every Step, until preempted.
type Test struct {
	LEDs    strip.Mask
	Pattern Pattern
	Step    time.Duration
}

// Status reports the LEDs' current state to the observer.
type Status struct {
	LEDs strip.Mask
}

func (Nop) Targets() strip.Mask         { return 0 }
func (c Off) Targets() strip.Mask       { return c.LEDs }
func (c SetColour) Targets() strip.Mask { return c.LEDs }
func (c Blink) Targets() strip.Mask     { return c.LEDs }
func (c Rainbow) Targets() strip.Mask   { return c.LEDs }
func (c Status) Targets() strip.Mask    { return c.LEDs }
func (c Test) Targets() strip.Mask      { return c.LEDs }

func (Nop) command()       {}
func (Off) command()       {}
func (SetColour) command() {}
func (Blink) command()     {}
func (Rainbow) command()   {}
func (Status) command()    {}
func (Test) command()      {}

func (Nop) String() string   { return "nop" }
func (c Off) String() string { return "off " + c.LEDs.String() }
func (c SetColour) String() string {
	return fmt.Sprintf("colour %s %s", c.LEDs, c.Colour)
}
func (c Blink) String() string {
	alt := color.Black
	if c.Alternate != nil {
		alt = *c.Alternate
	}
	return fmt.Sprintf("blink %s %s/%s %s", c.LEDs, c.Colour, alt, c.Period)
}
func (c Rainbow) String() string { return fmt.Sprintf("rainbow %s %s", c.LEDs, c.Period) }
func (c Status) String() string  { return "status " + c.LEDs.String() }
func (c Test) String() string {
	return fmt.Sprintf("test %s %s %s", c.LEDs, c.Pattern, c.Step)
}

// Actions is the number of distinct command kinds.
const Actions = 7

package animator

import (
	"time"

	"github.com/coreman2200/funtimes-ledstrip/internal/color"
	"github.com/coreman2200/funtimes-ledstrip/internal/polltimer"
)

// Mode is what an LED is currently doing.
type Mode uint8

const (
	ModeOff Mode = iota
	ModeOn
	ModeBlink
	ModeRainbow
	ModeTest
)

func (m Mode) String() string {
	switch m {
	case ModeOn:
		return "on"
	case ModeBlink:
		return "blink"
	case ModeRainbow:
		return "rainbow"
	case ModeTest:
		return "test"
	}
	return "off"
}

// ledState is tagged by mode; only the payload for the current mode is
// meaningful and it is zeroed whenever the mode changes.
type ledState struct {
	mode Mode
	// shown is the colour last pushed to the LED.
	shown   color.Value
	blink   blinkState
	rainbow rainbowState
	test    testState
}

type blinkState struct {
	next   color.Value // pushed at the next expiry
	other  color.Value
	period time.Duration
	timer  polltimer.Timer
}

type rainbowState struct {
	tick   int
	total  int
	period time.Duration
}

// testState runs a pattern; slot is this LED's place among count LEDs of
// the set and hold is the number of ticks per pattern step.
type testState struct {
	pattern Pattern
	slot    int
	count   int
	hold    int
	tick    int
	period  time.Duration
}

var rgbSteps = [...]color.Value{
	color.AsRGB(0xFF, 0, 0),
	color.AsRGB(0, 0xFF, 0),
	color.AsRGB(0, 0, 0xFF),
	color.AsWRGB(0xFF, 0, 0, 0),
}

// cycle is the number of pattern steps before the pattern repeats.
func (t *testState) cycle() int {
	if t.pattern == PatternRGB {
		return len(rgbSteps)
	}
	return t.count
}

// colour is what the LED shows at the current tick.
func (t *testState) colour() color.Value {
	step := t.tick / t.hold
	if t.pattern == PatternRGB {
		return rgbSteps[step%len(rgbSteps)]
	}
	if step%t.count == t.slot {
		return color.AsRGB(0xFF, 0xFF, 0xFF)
	}
	return color.Black
}

func (s *ledState) period() time.Duration {
	switch s.mode {
	case ModeBlink:
		return s.blink.period
	case ModeRainbow:
		return s.rainbow.period
	case ModeTest:
		return s.test.period
	}
	return 0
}

// Report is a snapshot of one LED.
type Report struct {
	Index  int
	Name   string
	Mode   Mode
	Colour color.Value
	Period time.Duration
}

// Observer receives Status reports. It is called on the animator goroutine
// and must not block.
type Observer interface {
	Report(r Report)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(Report)

func (f ObserverFunc) Report(r Report) { f(r) }

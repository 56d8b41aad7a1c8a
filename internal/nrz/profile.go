// Package nrz turns LED colour bytes into the high/low pulse waveform that
// single-wire addressable LEDs (WS281x, SK6812, APA106...) latch.
//
// Each data bit is one Symbol: a high phase followed by a low phase whose
// durations depend on the bit value. A frame ends with a long low Symbol
// that latches the data into the LEDs.
package nrz

import (
	"sort"
	"strings"
	"time"

	"github.com/coreman2200/funtimes-ledstrip/internal/errcode"
)

// BitOrder selects which bit of each byte is sent first.
type BitOrder uint8

const (
	MSBFirst BitOrder = iota
	LSBFirst
)

// Pulse is the high-then-low timing of one bit value.
type Pulse struct {
	High time.Duration
	Low  time.Duration
}

// Profile is the immutable timing and byte layout of one LED chip family.
type Profile struct {
	Name  string
	Bit0  Pulse
	Bit1  Pulse
	Order BitOrder
	// Channels is the per-LED byte order, e.g. "grb" or "grbw".
	// Its length is the number of bytes per LED.
	Channels string
	Reset    time.Duration
}

// BytesPerLED is the width of one LED in the colour buffer.
func (p Profile) BytesPerLED() int { return len(p.Channels) }

// FrameBytes is the colour buffer size for count LEDs.
func (p Profile) FrameBytes(count int) int { return count * p.BytesPerLED() }

var profiles = map[string]Profile{
	"ws2812": {
		Name:     "WS2812",
		Bit0:     Pulse{High: 350 * time.Nanosecond, Low: 800 * time.Nanosecond},
		Bit1:     Pulse{High: 700 * time.Nanosecond, Low: 600 * time.Nanosecond},
		Order:    MSBFirst,
		Channels: "grb",
		Reset:    50 * time.Microsecond,
	},
	"ws2812b": {
		Name:     "WS2812B",
		Bit0:     Pulse{High: 400 * time.Nanosecond, Low: 850 * time.Nanosecond},
		Bit1:     Pulse{High: 800 * time.Nanosecond, Low: 450 * time.Nanosecond},
		Order:    MSBFirst,
		Channels: "grb",
		Reset:    280 * time.Microsecond,
	},
	"ws2811": {
		Name:     "WS2811 (low speed)",
		Bit0:     Pulse{High: 500 * time.Nanosecond, Low: 2000 * time.Nanosecond},
		Bit1:     Pulse{High: 1200 * time.Nanosecond, Low: 1300 * time.Nanosecond},
		Order:    MSBFirst,
		Channels: "rgb",
		Reset:    50 * time.Microsecond,
	},
	"sk6812": {
		Name:     "SK6812",
		Bit0:     Pulse{High: 300 * time.Nanosecond, Low: 900 * time.Nanosecond},
		Bit1:     Pulse{High: 600 * time.Nanosecond, Low: 600 * time.Nanosecond},
		Order:    MSBFirst,
		Channels: "grb",
		Reset:    80 * time.Microsecond,
	},
	"sk6812rgbw": {
		Name:     "SK6812 RGBW",
		Bit0:     Pulse{High: 300 * time.Nanosecond, Low: 900 * time.Nanosecond},
		Bit1:     Pulse{High: 600 * time.Nanosecond, Low: 600 * time.Nanosecond},
		Order:    MSBFirst,
		Channels: "grbw",
		Reset:    80 * time.Microsecond,
	},
	"apa106": {
		Name:     "APA106",
		Bit0:     Pulse{High: 350 * time.Nanosecond, Low: 1360 * time.Nanosecond},
		Bit1:     Pulse{High: 1360 * time.Nanosecond, Low: 350 * time.Nanosecond},
		Order:    MSBFirst,
		Channels: "rgb",
		Reset:    50 * time.Microsecond,
	},
}

// LookupProfile returns the built-in profile for a chip type such as
// "ws2812b" or "sk6812rgbw".
func LookupProfile(name string) (Profile, error) {
	p, ok := profiles[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Profile{}, errcode.New(errcode.NotFound, "nrz.LookupProfile", "unknown LED type "+name)
	}
	return p, nil
}

// ProfileNames lists the built-in chip types.
func ProfileNames() []string {
	out := make([]string, 0, len(profiles))
	for k := range profiles {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

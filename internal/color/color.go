// Package color holds the packed LED colour word and the integer HSV maths
// used by the animations.
package color

import (
	"fmt"
	"image/color"
)

const (
	WhiteOffset uint8 = 0x18
	RedOffset   uint8 = 0x10
	GreenOffset uint8 = 0x08
	BlueOffset  uint8 = 0x0
)

// MaxRGB is the largest 24-bit colour.
const MaxRGB Value = 0xFFFFFF

// Value is a packed 0xWWRRGGBB colour word.
type Value uint32

// Black is every lane off.
const Black Value = 0

// AsRGB packs an RGB colour.
func AsRGB(r, g, b uint8) Value {
	return Value(uint32(r)<<RedOffset | uint32(g)<<GreenOffset | uint32(b)<<BlueOffset)
}

// AsWRGB packs an RGB colour with a white lane.
func AsWRGB(w, r, g, b uint8) Value {
	return AsRGB(r, g, b) | Value(uint32(w)<<WhiteOffset)
}

func setlane(c Value, n uint8, off uint8) Value {
	var mask uint32 = 0xFF << off
	return Value((uint32(c) &^ mask) | uint32(n)<<off)
}

func getlane(c Value, off uint8) uint8 {
	var mask uint32 = 0xFF << off
	return uint8((uint32(c) & mask) >> off)
}

func (c Value) R() uint8 { return getlane(c, RedOffset) }
func (c Value) G() uint8 { return getlane(c, GreenOffset) }
func (c Value) B() uint8 { return getlane(c, BlueOffset) }
func (c Value) W() uint8 { return getlane(c, WhiteOffset) }

func (c Value) WithR(r uint8) Value { return setlane(c, r, RedOffset) }
func (c Value) WithG(g uint8) Value { return setlane(c, g, GreenOffset) }
func (c Value) WithB(b uint8) Value { return setlane(c, b, BlueOffset) }
func (c Value) WithW(w uint8) Value { return setlane(c, w, WhiteOffset) }

// RGB drops the white lane.
func (c Value) RGB() Value { return c & MaxRGB }

// IsBlack reports whether every lane is off.
func (c Value) IsBlack() bool { return c == Black }

// Channel extracts the lane named by a channel-order letter (r, g, b or w,
// either case). ok is false for any other letter.
func (c Value) Channel(letter byte) (v uint8, ok bool) {
	switch letter {
	case 'r', 'R':
		return c.R(), true
	case 'g', 'G':
		return c.G(), true
	case 'b', 'B':
		return c.B(), true
	case 'w', 'W':
		return c.W(), true
	}
	return 0, false
}

// WithChannel is the setter counterpart of Channel.
func (c Value) WithChannel(letter byte, v uint8) (Value, bool) {
	switch letter {
	case 'r', 'R':
		return c.WithR(v), true
	case 'g', 'G':
		return c.WithG(v), true
	case 'b', 'B':
		return c.WithB(v), true
	case 'w', 'W':
		return c.WithW(v), true
	}
	return c, false
}

// NRGBA converts to an opaque image colour; the white lane is added to each
// of R, G and B, saturating.
func (c Value) NRGBA() color.NRGBA {
	add := func(a, w uint8) uint8 {
		if s := int(a) + int(w); s < 0xFF {
			return uint8(s)
		}
		return 0xFF
	}
	w := c.W()
	return color.NRGBA{R: add(c.R(), w), G: add(c.G(), w), B: add(c.B(), w), A: 0xFF}
}

func (c Value) String() string {
	if c.W() != 0 {
		return fmt.Sprintf("#%08X", uint32(c))
	}
	return fmt.Sprintf("#%06X", uint32(c))
}

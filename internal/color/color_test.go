package color_test

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/coreman2200/funtimes-ledstrip/internal/color"
	"github.com/coreman2200/funtimes-ledstrip/internal/errcode"
)

var TestWRGBIsExpectedColor = []struct {
	W      uint8
	R      uint8
	G      uint8
	B      uint8
	Expect Value
}{
	{0xFF, 0x11, 0x22, 0x33, 0xFF112233},
	{0x00, 0x2A, 0x44, 0x34, 0x002A4434},
	{0xAB, 0x3B, 0x88, 0x35, 0xAB3B8835},
	{0x22, 0x4C, 0xAA, 0x36, 0x224CAA36},
	{0xFF, 0x5D, 0xCC, 0x37, 0xFF5DCC37},
}

func TestColorsWRGB(t *testing.T) {
	for k, v := range TestWRGBIsExpectedColor {
		t.Run("Given WRGB"+strconv.Itoa(k), func(t *testing.T) {
			col := AsWRGB(v.W, v.R, v.G, v.B)
			assert.Equal(t, v.Expect, col, "should be same val")
			assert.Equal(t, v.R, col.R())
			assert.Equal(t, v.G, col.G())
			assert.Equal(t, v.B, col.B())
			assert.Equal(t, v.W, col.W())

			built := Black.WithW(v.W).WithR(v.R).WithG(v.G).WithB(v.B)
			assert.Equal(t, col, built)
		})
	}
}

func TestChannelLetters(t *testing.T) {
	c := AsWRGB(4, 1, 2, 3)
	for letter, want := range map[byte]uint8{'r': 1, 'G': 2, 'b': 3, 'W': 4} {
		got, ok := c.Channel(letter)
		assert.True(t, ok)
		assert.Equal(t, want, got, "letter %c", letter)
	}
	_, ok := c.Channel('x')
	assert.False(t, ok)

	built := Black
	for _, l := range []byte("grbw") {
		v, _ := c.Channel(l)
		built, ok = built.WithChannel(l, v)
		assert.True(t, ok)
	}
	assert.Equal(t, c, built)
	same, ok := c.WithChannel('x', 9)
	assert.False(t, ok)
	assert.Equal(t, c, same)
}

func TestStringAndBlack(t *testing.T) {
	assert.Equal(t, "#FF8000", AsRGB(0xFF, 0x80, 0).String())
	assert.Equal(t, "#01000000", AsWRGB(1, 0, 0, 0).String())
	assert.True(t, Black.IsBlack())
	assert.False(t, AsWRGB(1, 0, 0, 0).IsBlack())
	assert.Equal(t, AsRGB(1, 2, 3), AsWRGB(9, 1, 2, 3).RGB())
}

func TestHSVKnownValues(t *testing.T) {
	cases := []struct {
		h, s, v int
		want    Value
	}{
		{0, 100, 100, AsRGB(255, 0, 0)},
		{120, 100, 100, AsRGB(0, 255, 0)},
		{240, 100, 100, AsRGB(0, 0, 255)},
		{60, 100, 100, AsRGB(255, 255, 0)},
		{360, 100, 100, AsRGB(255, 0, 0)},
		{-120, 100, 100, AsRGB(0, 0, 255)},
		{0, 0, 100, AsRGB(255, 255, 255)},
		{200, 100, 0, Black},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, HSVToRGB(c.h, c.s, c.v), "hsv(%d,%d,%d)", c.h, c.s, c.v)
	}
}

func TestHueRoundTripWithinOneDegree(t *testing.T) {
	for h := 0; h < 360; h++ {
		got := RGBToHSV(HSVToRGB(h, 100, 100))
		d := got.H - h
		if d > 180 {
			d -= 360
		}
		if d < -180 {
			d += 360
		}
		assert.LessOrEqual(t, abs(d), 1, "hue %d came back as %d", h, got.H)
		assert.Equal(t, 100, got.S)
		assert.Equal(t, 100, got.V)
	}
}

func TestRGBToHSVGrey(t *testing.T) {
	got := RGBToHSV(AsRGB(128, 128, 128))
	assert.Equal(t, HSV{H: 0, S: 0, V: 50}, got)
}

func TestParse(t *testing.T) {
	cases := map[string]Value{
		"red":       AsRGB(255, 0, 0),
		"RD":        AsRGB(255, 0, 0),
		"#00ff00":   AsRGB(0, 255, 0),
		"0x0000FF":  AsRGB(0, 0, 255),
		"#10203040": AsWRGB(0x10, 0x20, 0x30, 0x40),
		"16777215":  MaxRGB,
		"0":         Black,
	}
	for in, want := range cases {
		got, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := Parse("chartreuse")
	assert.True(t, errors.Is(err, errcode.NotFound), fmt.Sprint(err))

	for _, bad := range []string{"", "#12345", "0xZZZZZZ", "16777216"} {
		_, err := Parse(bad)
		assert.Equal(t, errcode.InvalidParams, errcode.Of(err), "input %q", bad)
	}
}

func TestRandomNeverBlack(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		c := Random(r)
		assert.False(t, c.IsBlack())
		_, known := lookupValue(c)
		assert.True(t, known)
	}
}

func TestNamesResolve(t *testing.T) {
	names := Names()
	require.Len(t, names, len(Table()))
	assert.Equal(t, "black", names[0])
	assert.Contains(t, names, "warmwhite")
	for _, n := range names {
		e, ok := Lookup(n)
		require.True(t, ok, n)
		assert.Equal(t, n, e.Name)
	}
}

func lookupValue(c Value) (Entry, bool) {
	for _, e := range Table() {
		if e.Value == c {
			return e, true
		}
	}
	return Entry{}, false
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

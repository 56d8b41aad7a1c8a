package led

import (
	"bytes"
	"image"
	imgcolor "image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spitest"

	"github.com/coreman2200/funtimes-ledstrip/internal/color"
	"github.com/coreman2200/funtimes-ledstrip/internal/errcode"
	"github.com/coreman2200/funtimes-ledstrip/internal/nrz"
)

func profile(t *testing.T, name string) nrz.Profile {
	t.Helper()
	p, err := nrz.LookupProfile(name)
	require.NoError(t, err)
	return p
}

func TestSPIWaveformAt2400kHz(t *testing.T) {
	var buf bytes.Buffer
	sink, err := NewSPI(spitest.NewRecordRaw(&buf), 2400*physic.KiloHertz)
	require.NoError(t, err)

	p := profile(t, "ws2812b")
	tx, err := nrz.NewTransmitter(p, sink, 16)
	require.NoError(t, err)

	require.NoError(t, tx.Transmit([]byte{0x80, 0x00, 0x00}))
	assert.Equal(t, 0, buf.Len(), "nothing on the wire before Wait")
	require.NoError(t, tx.Wait())

	out := buf.Bytes()
	require.Greater(t, len(out), 9)
	// 0x80 -> 110 100 100 ..., 0x00 -> 100 100 100 ...
	assert.Equal(t, []byte{0xD2, 0x49, 0x24, 0x92, 0x49, 0x24, 0x92, 0x49, 0x24}, out[:9])

	tail := out[9:]
	assert.Equal(t, make([]byte, len(tail)), tail, "latch is all low")
	// 280us of low at ~417ns per bit.
	assert.GreaterOrEqual(t, len(tail)*8, 670)
	assert.Equal(t, 1, sink.Transactions())

	// An empty Wait issues nothing.
	require.NoError(t, tx.Wait())
	assert.Equal(t, 1, sink.Transactions())

	require.NoError(t, tx.Close())
	assert.Error(t, sink.Send([]nrz.Symbol{{High: 1}}))
}

func TestSPIRejectsZeroFrequency(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewSPI(spitest.NewRecordRaw(&buf), 0)
	assert.Error(t, err)
}

func TestSimRecordsFrames(t *testing.T) {
	p := profile(t, "sk6812rgbw")
	sim := NewSim()
	sim.Keep = 2
	tx, err := nrz.NewTransmitter(p, sim, 7)
	require.NoError(t, err)

	_, ok := sim.Last(p)
	assert.False(t, ok)

	for i := byte(1); i <= 3; i++ {
		frame := []byte{i, i + 1, i + 2, i + 3}
		require.NoError(t, tx.Transmit(frame))
		require.NoError(t, tx.Wait())
		got, ok := sim.Last(p)
		require.True(t, ok)
		assert.Equal(t, frame, got)
	}
	assert.Len(t, sim.Frames(), 2)

	require.NoError(t, tx.Close())
	assert.True(t, sim.Closed())
}

func TestUnpack(t *testing.T) {
	got := Unpack([]byte{0x20, 0x10, 0x30, 0x02, 0x01, 0x03}, "grb")
	assert.Equal(t, []color.Value{color.AsRGB(0x10, 0x20, 0x30), color.AsRGB(1, 2, 3)}, got)
	assert.Nil(t, Unpack([]byte{1}, ""))
}

type fakeDrawer struct {
	last   *image.NRGBA
	draws  int
	halted bool
}

func (f *fakeDrawer) String() string { return "fake" }
func (f *fakeDrawer) Halt() error { f.halted = true; return nil }
func (f *fakeDrawer) ColorModel() imgcolor.Model { return imgcolor.NRGBAModel }
func (f *fakeDrawer) Bounds() image.Rectangle { return image.Rect(0, 0, 3, 1) }
func (f *fakeDrawer) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	f.draws++
	f.last = src.(*image.NRGBA)
	return nil
}

func TestConsoleDrawsOneRow(t *testing.T) {
	d := &fakeDrawer{}
	c := newConsole(d, profile(t, "ws2812b"), 3)

	// grb order: LED0 red, LED1 green, LED2 off.
	require.NoError(t, c.Transmit([]byte{0x00, 0xFF, 0x00, 0xFF, 0x00, 0x00, 0, 0, 0}))
	require.NoError(t, c.Wait())
	assert.Equal(t, 1, d.draws)
	assert.Equal(t, 1, c.Frames())
	assert.Equal(t, imgcolor.NRGBA{R: 0xFF, A: 0xFF}, d.last.NRGBAAt(0, 0))
	assert.Equal(t, imgcolor.NRGBA{G: 0xFF, A: 0xFF}, d.last.NRGBAAt(1, 0))
	assert.Equal(t, imgcolor.NRGBA{A: 0xFF}, d.last.NRGBAAt(2, 0))

	require.NoError(t, c.Close())
	assert.True(t, d.halted)
}

func TestNRZLEDWritesToPort(t *testing.T) {
	var buf bytes.Buffer
	n, err := NewNRZLED(spitest.NewRecordRaw(&buf), profile(t, "ws2812b"), 2, 0)
	require.NoError(t, err)

	before := buf.Len()
	require.NoError(t, n.Transmit([]byte{1, 2, 3, 4, 5, 6}))
	require.NoError(t, n.Wait())
	assert.Greater(t, buf.Len(), before)
	assert.NotEmpty(t, n.String())
}

func TestOpen(t *testing.T) {
	p := profile(t, "ws2812b")

	ch, err := Open(Options{Driver: "sim"}, p, 4)
	require.NoError(t, err)
	require.NoError(t, ch.Transmit(make([]byte, 12)))
	require.NoError(t, ch.Wait())
	require.NoError(t, ch.Close())

	ch, err = Open(Options{Driver: DriverConsole}, p, 4)
	require.NoError(t, err)
	assert.IsType(t, &Console{}, ch)

	_, err = Open(Options{Driver: "pwm"}, p, 4)
	assert.Equal(t, errcode.Unsupported, errcode.Of(err))

	_, err = Open(Options{Driver: DriverSim}, p, 0)
	assert.Equal(t, errcode.InvalidParams, errcode.Of(err))
}

func TestOpenFallsBackToConsole(t *testing.T) {
	p := profile(t, "ws2812b")
	ch, err := Open(Options{Driver: DriverSPI, Port: "no-such-port", Fallback: true}, p, 2)
	require.NoError(t, err)
	assert.IsType(t, &Console{}, ch)

	_, err = Open(Options{Driver: DriverSPI, Port: "no-such-port"}, p, 2)
	assert.Error(t, err)
}

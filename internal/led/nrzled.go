package led

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/nrzled"

	"github.com/coreman2200/funtimes-ledstrip/internal/nrz"
)

// NRZLED hands frames to periph's nrzled driver, which does its own bit
// expansion. Only the profile's channel order and width are used; its pulse
// timings are ignored.
type NRZLED struct {
	dev      *nrzled.Dev
	port     spi.Port
	channels string
	raw      []byte
}

// NewNRZLED opens an nrzled device of count pixels on port. f is the LED
// bit rate (800kHz for ws281x class parts when zero).
func NewNRZLED(port spi.Port, p nrz.Profile, count int, f physic.Frequency) (*NRZLED, error) {
	if f == 0 {
		f = DefaultNRZFreq
	}
	d, err := nrzled.NewSPI(port, &nrzled.Opts{
		NumPixels: count,
		Channels:  p.BytesPerLED(),
		Freq:      f,
	})
	if err != nil {
		return nil, fmt.Errorf("led: nrzled: %w", err)
	}
	return &NRZLED{dev: d, port: port, channels: p.Channels}, nil
}

// Transmit converts the frame to the RGB(W) layout nrzled expects and
// writes it.
func (n *NRZLED) Transmit(frame []byte) error {
	n.raw = n.raw[:0]
	for _, c := range Unpack(frame, n.channels) {
		n.raw = append(n.raw, c.R(), c.G(), c.B())
		if len(n.channels) == 4 {
			n.raw = append(n.raw, c.W())
		}
	}
	if _, err := n.dev.Write(n.raw); err != nil {
		return fmt.Errorf("led: nrzled write: %w", err)
	}
	return nil
}

// Wait is a no-op; nrzled writes synchronously.
func (n *NRZLED) Wait() error { return nil }

func (n *NRZLED) Close() error {
	err := n.dev.Halt()
	if c, ok := n.port.(spi.PortCloser); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (n *NRZLED) String() string { return n.dev.String() }

// Package led holds the output side of a strip: channels that take an
// encoded colour buffer and get it onto the wire, a terminal, or memory.
package led

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/coreman2200/funtimes-ledstrip/internal/color"
	"github.com/coreman2200/funtimes-ledstrip/internal/errcode"
	"github.com/coreman2200/funtimes-ledstrip/internal/nrz"
)

// Channel is one strip's transmit path. Transmit hands over a whole colour
// buffer in the strip's byte order; Wait returns once it has been latched.
type Channel interface {
	Transmit(frame []byte) error
	Wait() error
	Close() error
}

const (
	DriverSPI     = "spi"
	DriverNRZLED  = "nrzled"
	DriverConsole = "console"
	DriverSim     = "sim"
)

// Defaults for SPI backed channels.
const (
	DefaultSPIFreq      = 2400 * physic.KiloHertz
	DefaultNRZFreq      = 800 * physic.KiloHertz
	DefaultBlockSymbols = 64
)

// Options selects and tunes a channel.
type Options struct {
	Driver string
	// Port is a spireg port name; empty picks the first registered port.
	Port string
	// Freq is the SPI clock for DriverSPI and the LED bit rate for
	// DriverNRZLED. Zero uses the driver default.
	Freq physic.Frequency
	// BlockSymbols is the encoder's symbol memory size.
	BlockSymbols int
	// Fallback swaps in a console preview when the SPI port cannot be opened.
	Fallback bool
}

// Open builds the channel for a strip of count LEDs using profile p.
func Open(o Options, p nrz.Profile, count int) (Channel, error) {
	if count <= 0 {
		return nil, errcode.New(errcode.InvalidParams, "led.Open", fmt.Sprintf("led count %d", count))
	}
	logger := log.With().Str("component", "led").Str("driver", o.Driver).Logger()

	switch strings.ToLower(o.Driver) {
	case "", DriverSim:
		return transmitter(p, NewSim(), o)

	case DriverConsole:
		return NewConsole(p, count), nil

	case DriverSPI, DriverNRZLED:
		port, err := openPort(o.Port)
		if err != nil {
			if o.Fallback {
				logger.Warn().Err(err).Str("port", o.Port).Msg("no SPI port; printing at the console")
				return NewConsole(p, count), nil
			}
			return nil, err
		}
		var ch Channel
		if strings.ToLower(o.Driver) == DriverSPI {
			ch, err = openSPI(port, o, p)
		} else {
			ch, err = NewNRZLED(port, p, count, o.Freq)
		}
		if err != nil {
			_ = port.Close()
			return nil, err
		}
		logger.Info().Str("port", port.String()).Str("profile", p.Name).Int("leds", count).Msg("channel open")
		return ch, nil
	}
	return nil, errcode.New(errcode.Unsupported, "led.Open", "unknown driver "+o.Driver)
}

func openPort(name string) (spi.PortCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("led: host init: %w", err)
	}
	port, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("led: open spi port %q: %w", name, err)
	}
	return port, nil
}

func openSPI(port spi.PortCloser, o Options, p nrz.Profile) (Channel, error) {
	f := o.Freq
	if f == 0 {
		f = DefaultSPIFreq
	}
	sink, err := NewSPI(port, f)
	if err != nil {
		return nil, err
	}
	return transmitter(p, sink, o)
}

func transmitter(p nrz.Profile, sink nrz.Sink, o Options) (Channel, error) {
	n := o.BlockSymbols
	if n <= 0 {
		n = DefaultBlockSymbols
	}
	tx, err := nrz.NewTransmitter(p, sink, n)
	if err != nil {
		_ = sink.Close()
		return nil, err
	}
	return tx, nil
}

// Unpack reads a colour buffer in channel order back into colour words.
func Unpack(frame []byte, channels string) []color.Value {
	n := len(channels)
	if n == 0 {
		return nil
	}
	out := make([]color.Value, len(frame)/n)
	for i := range out {
		var c color.Value
		for j := 0; j < n; j++ {
			c, _ = c.WithChannel(channels[j], frame[i*n+j])
		}
		out[i] = c
	}
	return out
}

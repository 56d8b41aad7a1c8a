// Package strip maps the flat logical LED index used by commands onto the
// registered strips and owns each strip's colour buffer.
//
// A Registry is built once at start-up. After that only the animator writes
// to it, so nothing here is locked.
package strip

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-ledstrip/internal/color"
	"github.com/coreman2200/funtimes-ledstrip/internal/errcode"
	"github.com/coreman2200/funtimes-ledstrip/internal/led"
	"github.com/coreman2200/funtimes-ledstrip/internal/nrz"
)

// MaxLEDs is the widest registry a Mask can address.
const MaxLEDs = 64

// Strip is one independently wired chain of LEDs.
type Strip struct {
	Name    string
	Profile nrz.Profile
	Count   int
	// Start is the logical index of the strip's first LED.
	Start int

	buf    []byte
	ch     led.Channel
	dirty  bool
	frames int
}

// Frame returns a copy of the colour buffer in wire byte order.
func (s *Strip) Frame() []byte {
	out := make([]byte, len(s.buf))
	copy(out, s.buf)
	return out
}

// Frames counts whole-strip transmits.
func (s *Strip) Frames() int { return s.frames }

func (s *Strip) String() string {
	return fmt.Sprintf("%s[%d..%d) %s", s.Name, s.Start, s.Start+s.Count, s.Profile.Name)
}

type Registry struct {
	strips []*Strip
	total  int
	closed bool
	log    zerolog.Logger
}

var errClosed = errors.New("strip: registry closed")

// NewRegistry returns an empty registry logging under the "strip" component.
func NewRegistry() *Registry {
	return &Registry{log: log.With().Str("component", "strip").Logger()}
}

// Add appends a strip of count LEDs driven through ch.
func (r *Registry) Add(name string, p nrz.Profile, count int, ch led.Channel) error {
	const op = "strip.Add"
	switch {
	case name == "":
		return errcode.New(errcode.InvalidParams, op, "empty strip name")
	case count <= 0:
		return errcode.New(errcode.InvalidParams, op, fmt.Sprintf("strip %q: led count %d", name, count))
	case ch == nil:
		return errcode.New(errcode.InvalidParams, op, fmt.Sprintf("strip %q: no channel", name))
	case p.BytesPerLED() == 0:
		return errcode.New(errcode.InvalidParams, op, fmt.Sprintf("strip %q: profile has no channels", name))
	case r.total+count > MaxLEDs:
		return errcode.New(errcode.Unsupported, op, fmt.Sprintf("strip %q: more than %d LEDs in total", name, MaxLEDs))
	}
	if _, ok := r.byName(name); ok {
		return errcode.New(errcode.InvalidParams, op, fmt.Sprintf("duplicate strip %q", name))
	}
	r.strips = append(r.strips, &Strip{
		Name:    name,
		Profile: p,
		Count:   count,
		Start:   r.total,
		buf:     make([]byte, p.FrameBytes(count)),
		ch:      ch,
	})
	r.total += count
	return nil
}

// Len is the number of logical LEDs.
func (r *Registry) Len() int { return r.total }

// Strips lists strips in registration order.
func (r *Registry) Strips() []*Strip { return r.strips }

func (r *Registry) byName(name string) (*Strip, bool) {
	for _, s := range r.strips {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Resolve maps a logical index to its strip and the offset inside it.
func (r *Registry) Resolve(index int) (*Strip, int, error) {
	if index >= 0 {
		off := index
		for _, s := range r.strips {
			if off < s.Count {
				return s, off, nil
			}
			off -= s.Count
		}
	}
	return nil, 0, errcode.New(errcode.NotFound, "strip.Resolve", fmt.Sprintf("led %d out of range", index))
}

// Set writes c into the colour buffer of LED index and marks its strip for
// the next Flush. Channel letters the colour word has no lane for are logged
// and skipped.
func (r *Registry) Set(index int, c color.Value) error {
	if r.closed {
		return errClosed
	}
	s, off, err := r.Resolve(index)
	if err != nil {
		return err
	}
	n := s.Profile.BytesPerLED()
	base := off * n
	for i := 0; i < n; i++ {
		letter := s.Profile.Channels[i]
		v, ok := c.Channel(letter)
		if !ok {
			r.log.Warn().Str("strip", s.Name).Str("channel", string(letter)).Msg("unsupported channel letter")
			continue
		}
		s.buf[base+i] = v
	}
	s.dirty = true
	return nil
}

// Colour reads back the colour held for LED index.
func (r *Registry) Colour(index int) (color.Value, error) {
	if r.closed {
		return color.Black, errClosed
	}
	s, off, err := r.Resolve(index)
	if err != nil {
		return color.Black, err
	}
	n := s.Profile.BytesPerLED()
	var c color.Value
	for i := 0; i < n; i++ {
		c, _ = c.WithChannel(s.Profile.Channels[i], s.buf[off*n+i])
	}
	return c, nil
}

// Flush transmits every strip written since the last Flush, once each,
// always as a whole buffer. It keeps going past a failing strip.
func (r *Registry) Flush() error {
	var errs []error
	for _, s := range r.strips {
		if !s.dirty {
			continue
		}
		if err := r.transmit(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetColour is Set followed by an immediate refresh of that LED's strip.
func (r *Registry) SetColour(index int, c color.Value) error {
	if err := r.Set(index, c); err != nil {
		return err
	}
	s, _, _ := r.Resolve(index)
	return r.transmit(s)
}

func (r *Registry) transmit(s *Strip) error {
	s.dirty = false
	if err := s.ch.Transmit(s.buf); err != nil {
		return fmt.Errorf("strip %s: transmit: %w", s.Name, err)
	}
	if err := s.ch.Wait(); err != nil {
		return fmt.Errorf("strip %s: wait: %w", s.Name, err)
	}
	s.frames++
	return nil
}

// Close releases every channel and drops the colour buffers.
func (r *Registry) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	var errs []error
	for _, s := range r.strips {
		if err := s.ch.Close(); err != nil {
			errs = append(errs, fmt.Errorf("strip %s: close: %w", s.Name, err))
		}
		s.buf = nil
	}
	return errors.Join(errs...)
}

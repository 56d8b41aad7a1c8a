package led

import (
	"image"
	"sync"

	"periph.io/x/conn/v3/display"
	"periph.io/x/extra/devices/screen"

	"github.com/coreman2200/funtimes-ledstrip/internal/nrz"
)

// Console previews a strip as one row of coloured cells on the terminal.
type Console struct {
	mu       sync.Mutex
	drawer   display.Drawer
	channels string
	img      *image.NRGBA
	frames   int
}

// NewConsole draws count LEDs on stdout.
func NewConsole(p nrz.Profile, count int) *Console {
	return newConsole(screen.New(count), p, count)
}

func newConsole(d display.Drawer, p nrz.Profile, count int) *Console {
	return &Console{
		drawer:   d,
		channels: p.Channels,
		img:      image.NewNRGBA(image.Rect(0, 0, count, 1)),
	}
}

func (c *Console) Transmit(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, v := range Unpack(frame, c.channels) {
		if i >= c.img.Rect.Dx() {
			break
		}
		c.img.SetNRGBA(i, 0, v.NRGBA())
	}
	c.frames++
	return c.drawer.Draw(c.img.Bounds(), c.img, image.Point{})
}

func (c *Console) Wait() error { return nil }

func (c *Console) Close() error { return c.drawer.Halt() }

// Frames counts frames drawn.
func (c *Console) Frames() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

package led

import (
	"sync"

	"github.com/coreman2200/funtimes-ledstrip/internal/nrz"
)

// Sim is an in-memory nrz.Sink. Each Wait closes off one frame.
type Sim struct {
	mu      sync.Mutex
	pending []nrz.Symbol
	frames  [][]nrz.Symbol
	closed  bool
	// Keep bounds memory; older frames are dropped. Zero keeps everything.
	Keep int
}

func NewSim() *Sim { return &Sim{Keep: 16} }

func (s *Sim) Send(symbols []nrz.Symbol) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, symbols...)
	return nil
}

func (s *Sim) Wait() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil
	}
	s.frames = append(s.frames, s.pending)
	s.pending = nil
	if s.Keep > 0 && len(s.frames) > s.Keep {
		s.frames = append(s.frames[:0], s.frames[len(s.frames)-s.Keep:]...)
	}
	return nil
}

func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Frames returns the recorded waveforms, oldest first.
func (s *Sim) Frames() [][]nrz.Symbol {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]nrz.Symbol, len(s.frames))
	copy(out, s.frames)
	return out
}

// Last decodes the most recent frame with profile p.
func (s *Sim) Last(p nrz.Profile) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return nil, false
	}
	return nrz.Decode(s.frames[len(s.frames)-1], p), true
}

func (s *Sim) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

package nrz

import (
	"errors"
	"fmt"
	"sync"
)

// Sink is the hardware end of a channel: it accepts filled symbol blocks in
// order and shifts them out.
type Sink interface {
	// Send queues one block. The slice is reused after Send returns.
	Send(symbols []Symbol) error
	// Wait blocks until everything sent so far is on the wire.
	Wait() error
	Close() error
}

// Transmitter drives an Encoder through a bounded Block into a Sink. It is a
// byte-level transmit channel: Transmit a whole colour buffer, then Wait.
type Transmitter struct {
	mu    sync.Mutex
	enc   *Encoder
	block *Block
	sink  Sink
	// Flushes counts blocks handed to the sink, for diagnostics.
	flushes int
}

// NewTransmitter couples a profile to a sink through a symbol memory of
// blockSize entries.
func NewTransmitter(p Profile, sink Sink, blockSize int) (*Transmitter, error) {
	if sink == nil {
		return nil, errors.New("nrz: nil sink")
	}
	if blockSize < 1 {
		return nil, fmt.Errorf("nrz: block size %d, need at least 1", blockSize)
	}
	if p.BytesPerLED() == 0 {
		return nil, fmt.Errorf("nrz: profile %q has no channels", p.Name)
	}
	return &Transmitter{
		enc:   NewEncoder(p),
		block: NewBlock(blockSize),
		sink:  sink,
	}, nil
}

// Transmit encodes frame and hands it to the sink block by block.
func (t *Transmitter) Transmit(frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.enc.Reset()
	for {
		st := t.enc.Encode(t.block, frame)
		if t.block.Len() > 0 {
			err := t.sink.Send(t.block.Symbols())
			t.block.Reset()
			t.flushes++
			if err != nil {
				t.enc.Reset()
				return fmt.Errorf("nrz: send: %w", err)
			}
		}
		if st == Complete {
			return nil
		}
	}
}

// Wait blocks until the sink has shifted out the last frame.
func (t *Transmitter) Wait() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sink.Wait()
}

func (t *Transmitter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sink.Close()
}

// Flushes returns how many symbol blocks have been sent.
func (t *Transmitter) Flushes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flushes
}

func (t *Transmitter) String() string {
	return fmt.Sprintf("nrz{%s,block=%d}", t.enc.Profile().Name, t.block.Cap())
}

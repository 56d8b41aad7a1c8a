package nrz

import "time"

// Symbol is one pulse on the wire: High then Low. The frame latch is a
// Symbol with no high phase.
type Symbol struct {
	High time.Duration
	Low  time.Duration
}

// IsReset reports whether s is a latch symbol.
func (s Symbol) IsReset() bool { return s.High == 0 }

// Block is the bounded symbol memory of a transmit channel.
type Block struct {
	buf []Symbol
}

// NewBlock allocates a block holding capacity symbols.
func NewBlock(capacity int) *Block {
	return &Block{buf: make([]Symbol, 0, capacity)}
}

func (b *Block) Cap() int  { return cap(b.buf) }
func (b *Block) Len() int  { return len(b.buf) }
func (b *Block) Free() int { return cap(b.buf) - len(b.buf) }

// Put appends s, reporting false when the block is full.
func (b *Block) Put(s Symbol) bool {
	if b.Free() == 0 {
		return false
	}
	b.buf = append(b.buf, s)
	return true
}

// Symbols returns the filled part of the block. It is only valid until the
// next Reset.
func (b *Block) Symbols() []Symbol { return b.buf }

// Reset empties the block.
func (b *Block) Reset() { b.buf = b.buf[:0] }

// Status is the outcome of one Encode call.
type Status uint8

const (
	// MemFull means the block filled before the frame finished; call Encode
	// again with an emptied block and the same data.
	MemFull Status = iota
	// Complete means the frame, latch included, has been emitted.
	Complete
)

func (s Status) String() string {
	if s == Complete {
		return "complete"
	}
	return "mem_full"
}

type phase uint8

const (
	phaseData phase = iota
	phaseReset
)

// Encoder is a resumable frame encoder. It emits the data bits of a colour
// buffer and then the latch, stopping whenever the destination block is
// full and continuing from the same bit on the next call.
type Encoder struct {
	prof  Profile
	phase phase
	pos   int   // byte index into the frame
	bit   uint8 // bits of data[pos] already emitted
	sym0  Symbol
	sym1  Symbol
	reset Symbol
}

// NewEncoder builds an encoder for one chip profile.
func NewEncoder(p Profile) *Encoder {
	return &Encoder{
		prof:  p,
		sym0:  Symbol{High: p.Bit0.High, Low: p.Bit0.Low},
		sym1:  Symbol{High: p.Bit1.High, Low: p.Bit1.Low},
		reset: Symbol{Low: p.Reset},
	}
}

// Profile returns the encoder's chip profile.
func (e *Encoder) Profile() Profile { return e.prof }

// Reset abandons a partially encoded frame.
func (e *Encoder) Reset() {
	e.phase = phaseData
	e.pos = 0
	e.bit = 0
}

// Encode writes as much of data as fits into dst.
func (e *Encoder) Encode(dst *Block, data []byte) Status {
	if e.phase == phaseData {
		for ; e.pos < len(data); e.pos++ {
			b := data[e.pos]
			for ; e.bit < 8; e.bit++ {
				var set bool
				if e.prof.Order == LSBFirst {
					set = b&(1<<e.bit) != 0
				} else {
					set = b&(0x80>>e.bit) != 0
				}
				s := e.sym0
				if set {
					s = e.sym1
				}
				if !dst.Put(s) {
					return MemFull
				}
			}
			e.bit = 0
		}
		e.phase = phaseReset
	}

	if !dst.Put(e.reset) {
		return MemFull
	}
	e.Reset()
	return Complete
}

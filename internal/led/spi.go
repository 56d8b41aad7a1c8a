package led

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/coreman2200/funtimes-ledstrip/internal/nrz"
)

// SPI is an nrz.Sink that samples the waveform at the SPI clock: every
// clock period a symbol is high becomes a 1 bit on MOSI, every period it is
// low a 0 bit. At 2.4MHz a WS2812B data bit comes out as 110 or 100.
//
// Blocks are accumulated and the whole frame is shifted out in one
// transaction on Wait, so the gaps between blocks never reach the wire.
type SPI struct {
	mu     sync.Mutex
	conn   spi.Conn
	port   io.Closer
	period time.Duration
	buf    []byte
	nbits  int
	txs    int
}

// NewSPI connects to port in mode 0, 8 bits per word, clocked at f.
func NewSPI(port spi.Port, f physic.Frequency) (*SPI, error) {
	if f <= 0 {
		return nil, errors.New("led: spi frequency must be positive")
	}
	c, err := port.Connect(f, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("led: spi connect: %w", err)
	}
	s := &SPI{conn: c, period: f.Period()}
	if pc, ok := port.(io.Closer); ok {
		s.port = pc
	}
	return s, nil
}

// ticks rounds d to the nearest whole clock period.
func (s *SPI) ticks(d time.Duration) int {
	return int((d + s.period/2) / s.period)
}

func (s *SPI) push(bit bool, n int) {
	for ; n > 0; n-- {
		if s.nbits%8 == 0 {
			s.buf = append(s.buf, 0)
		}
		if bit {
			s.buf[len(s.buf)-1] |= 0x80 >> (s.nbits % 8)
		}
		s.nbits++
	}
}

func (s *SPI) Send(symbols []nrz.Symbol) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return errors.New("led: spi closed")
	}
	for _, sym := range symbols {
		hi := s.ticks(sym.High)
		if hi == 0 && !sym.IsReset() {
			// Never let a data bit vanish at low clock rates.
			hi = 1
		}
		s.push(true, hi)
		s.push(false, s.ticks(sym.Low))
	}
	return nil
}

// Wait shifts out everything sent since the last Wait. The tail is padded
// with low bits to a whole byte.
func (s *SPI) Wait() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return errors.New("led: spi closed")
	}
	if len(s.buf) == 0 {
		return nil
	}
	defer func() {
		s.buf = s.buf[:0]
		s.nbits = 0
	}()

	chunk := len(s.buf)
	if l, ok := s.conn.(conn.Limits); ok && l.MaxTxSize() > 0 && l.MaxTxSize() < chunk {
		chunk = l.MaxTxSize()
	}
	for off := 0; off < len(s.buf); off += chunk {
		end := off + chunk
		if end > len(s.buf) {
			end = len(s.buf)
		}
		if err := s.conn.Tx(s.buf[off:end], nil); err != nil {
			return fmt.Errorf("led: spi tx: %w", err)
		}
		s.txs++
	}
	return nil
}

func (s *SPI) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = nil
	if s.port != nil {
		err := s.port.Close()
		s.port = nil
		return err
	}
	return nil
}

// Transactions counts SPI transfers issued.
func (s *SPI) Transactions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txs
}

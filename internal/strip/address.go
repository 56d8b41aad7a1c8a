package strip

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"

	"github.com/coreman2200/funtimes-ledstrip/internal/errcode"
)

// Mask is a set of logical LED indices, bit i for LED i.
type Mask uint64

// Bit is the mask holding only LED i.
func Bit(i int) Mask { return Mask(1) << uint(i) }

// Span is the mask of count LEDs starting at first.
func Span(first, count int) Mask {
	var m Mask
	for i := first; i < first+count && i < MaxLEDs; i++ {
		m |= Bit(i)
	}
	return m
}

func (m Mask) Has(i int) bool {
	return i >= 0 && i < MaxLEDs && m&Bit(i) != 0
}

// Count is the number of LEDs in the set.
func (m Mask) Count() int { return bits.OnesCount64(uint64(m)) }

// Rank is the number of set LEDs below index i.
func (m Mask) Rank(i int) int { return bits.OnesCount64(uint64(m & (Bit(i) - 1))) }

// Each calls fn for every index in the set, lowest first.
func (m Mask) Each(fn func(i int)) {
	for v := uint64(m); v != 0; v &= v - 1 {
		fn(bits.TrailingZeros64(v))
	}
}

func (m Mask) String() string { return fmt.Sprintf("0x%04X", uint64(m)) }

// All is the mask covering every registered LED.
func (r *Registry) All() Mask { return Span(0, r.total) }

// Index2Name renders a logical index as "name" for a single-LED strip or
// "name:offset" otherwise.
func (r *Registry) Index2Name(index int) (string, error) {
	s, off, err := r.Resolve(index)
	if err != nil {
		return "", err
	}
	if s.Count == 1 {
		return s.Name, nil
	}
	return s.Name + ":" + strconv.Itoa(off), nil
}

// Name2Index resolves "name" to the strip's first index and LED count, and
// "name:offset" to that single LED.
func (r *Registry) Name2Index(name string) (index, count int, err error) {
	const op = "strip.Name2Index"
	base, offStr, hasOff := strings.Cut(strings.TrimSpace(name), ":")
	s, ok := r.byName(base)
	if !ok {
		return 0, 0, errcode.New(errcode.NotFound, op, fmt.Sprintf("no strip %q", base))
	}
	if !hasOff {
		return s.Start, s.Count, nil
	}
	off, perr := strconv.Atoi(offStr)
	if perr != nil {
		return 0, 0, errcode.New(errcode.InvalidParams, op, fmt.Sprintf("bad offset %q", offStr))
	}
	if off < 0 || off >= s.Count {
		return 0, 0, errcode.New(errcode.NotFound, op, fmt.Sprintf("%s has no led %d", s.Name, off))
	}
	return s.Start + off, 1, nil
}

// ParseAddress reads the strip address grammar: a decimal logical index,
// a 0x-prefixed hex bit mask, or name[:offset].
func (r *Registry) ParseAddress(addr string) (Mask, error) {
	const op = "strip.ParseAddress"
	addr = strings.TrimSpace(addr)
	switch {
	case addr == "":
		return 0, errcode.New(errcode.InvalidParams, op, "empty address")

	case strings.HasPrefix(addr, "0x") || strings.HasPrefix(addr, "0X"):
		v, err := strconv.ParseUint(addr[2:], 16, 64)
		if err != nil {
			return 0, errcode.New(errcode.InvalidParams, op, fmt.Sprintf("bad mask %q", addr))
		}
		m := Mask(v)
		if m == 0 {
			return 0, errcode.New(errcode.InvalidParams, op, "empty mask")
		}
		if extra := m &^ r.All(); extra != 0 {
			return 0, errcode.New(errcode.NotFound, op, fmt.Sprintf("mask %s has no leds at %s", m, extra))
		}
		return m, nil

	case addr[0] >= '0' && addr[0] <= '9':
		i, err := strconv.Atoi(addr)
		if err != nil {
			return 0, errcode.New(errcode.InvalidParams, op, fmt.Sprintf("bad index %q", addr))
		}
		if i >= r.total {
			return 0, errcode.New(errcode.NotFound, op, fmt.Sprintf("led %d out of range", i))
		}
		return Bit(i), nil
	}

	idx, n, err := r.Name2Index(addr)
	if err != nil {
		return 0, err
	}
	return Span(idx, n), nil
}

package nrz

import "time"

// Decode recovers the bytes carried by a waveform. Each data symbol is read
// as whichever bit value has the closer high time. Decoding stops at the
// first latch symbol; trailing bits that do not fill a byte are dropped.
func Decode(symbols []Symbol, p Profile) []byte {
	var (
		out  []byte
		cur  byte
		nbit uint8
	)
	for _, s := range symbols {
		if s.IsReset() {
			break
		}
		one := absDur(s.High-p.Bit1.High) < absDur(s.High-p.Bit0.High)
		if one {
			if p.Order == LSBFirst {
				cur |= 1 << nbit
			} else {
				cur |= 0x80 >> nbit
			}
		}
		nbit++
		if nbit == 8 {
			out = append(out, cur)
			cur, nbit = 0, 0
		}
	}
	return out
}

func absDur(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

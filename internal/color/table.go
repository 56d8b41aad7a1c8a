package color

import (
	"math/rand"
	"strconv"
	"strings"

	"github.com/coreman2200/funtimes-ledstrip/internal/errcode"
)

// Entry is one named colour.
type Entry struct {
	Name  string
	Code  string
	Value Value
}

var table = []Entry{
	{"black", "bk", Black},
	{"white", "wh", AsRGB(0xFF, 0xFF, 0xFF)},
	{"red", "rd", AsRGB(0xFF, 0x00, 0x00)},
	{"green", "gn", AsRGB(0x00, 0xFF, 0x00)},
	{"blue", "bl", AsRGB(0x00, 0x00, 0xFF)},
	{"yellow", "ye", AsRGB(0xFF, 0xFF, 0x00)},
	{"cyan", "cy", AsRGB(0x00, 0xFF, 0xFF)},
	{"magenta", "mg", AsRGB(0xFF, 0x00, 0xFF)},
	{"orange", "or", AsRGB(0xFF, 0x80, 0x00)},
	{"purple", "pu", AsRGB(0x80, 0x00, 0xFF)},
	{"pink", "pk", AsRGB(0xFF, 0x40, 0x80)},
	{"lime", "li", AsRGB(0x80, 0xFF, 0x00)},
	{"teal", "tl", AsRGB(0x00, 0x80, 0x80)},
	{"amber", "am", AsRGB(0xFF, 0xBF, 0x00)},
	{"warmwhite", "ww", AsWRGB(0xFF, 0x00, 0x00, 0x00)},
}

// Table returns a copy of the colour-name table.
func Table() []Entry {
	out := make([]Entry, len(table))
	copy(out, table)
	return out
}

// Names lists the table's colour names in table order.
func Names() []string {
	out := make([]string, len(table))
	for i, e := range table {
		out[i] = e.Name
	}
	return out
}

// Lookup finds a table entry by name or two-letter code, ignoring case.
func Lookup(s string) (Entry, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, e := range table {
		if e.Name == s || e.Code == s {
			return e, true
		}
	}
	return Entry{}, false
}

// Random picks a table colour other than black.
func Random(r *rand.Rand) Value {
	i := 1 + r.Intn(len(table)-1)
	return table[i].Value
}

// Parse reads a colour as a table name or code, #RRGGBB, #WWRRGGBB,
// 0xRRGGBB or a decimal 24-bit value.
func Parse(s string) (Value, error) {
	const op = "color.Parse"
	s = strings.TrimSpace(s)
	if s == "" {
		return Black, errcode.New(errcode.InvalidParams, op, "empty colour")
	}
	if e, ok := Lookup(s); ok {
		return e.Value, nil
	}

	var digits string
	switch {
	case strings.HasPrefix(s, "#"):
		digits = s[1:]
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		digits = s[2:]
	default:
		if s[0] < '0' || s[0] > '9' {
			return Black, errcode.New(errcode.NotFound, op, "unknown colour "+strconv.Quote(s))
		}
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil || Value(n) > MaxRGB {
			return Black, errcode.New(errcode.InvalidParams, op, "bad colour "+strconv.Quote(s))
		}
		return Value(n), nil
	}

	if len(digits) != 6 && len(digits) != 8 {
		return Black, errcode.New(errcode.InvalidParams, op, "want 6 or 8 hex digits in "+strconv.Quote(s))
	}
	n, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return Black, errcode.Wrap(errcode.InvalidParams, op, err)
	}
	return Value(n), nil
}

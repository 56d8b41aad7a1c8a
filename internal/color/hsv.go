package color

// HSV is hue in degrees [0,360), saturation and value in percent [0,100].
type HSV struct {
	H, S, V int
}

// HSVToRGB converts with integer arithmetic around the hue hexagon.
//
// HSVToRGB and RGBToHSV truncate at every step and are not exact inverses;
// a full-saturation hue survives the round trip to within one degree.
func HSVToRGB(h, s, v int) Value {
	h %= 360
	if h < 0 {
		h += 360
	}
	s = clampPercent(s)
	v = clampPercent(v)

	max := v * 255 / 100
	min := max * (100 - s) / 100

	i := h / 60
	diff := h % 60
	adj := (max - min) * diff / 60

	var r, g, b int
	switch i {
	case 0:
		r, g, b = max, min+adj, min
	case 1:
		r, g, b = max-adj, max, min
	case 2:
		r, g, b = min, max, min+adj
	case 3:
		r, g, b = min, max-adj, max
	case 4:
		r, g, b = min+adj, min, max
	default:
		r, g, b = max, min, max-adj
	}
	return AsRGB(uint8(r), uint8(g), uint8(b))
}

// RGBToHSV converts the RGB lanes of c; the white lane is ignored.
func RGBToHSV(c Value) HSV {
	r, g, b := int(c.R()), int(c.G()), int(c.B())

	max, min := r, r
	for _, x := range []int{g, b} {
		if x > max {
			max = x
		}
		if x < min {
			min = x
		}
	}

	out := HSV{V: 100 * max / 255}
	if max == min {
		return out
	}
	delta := max - min
	out.S = 100 * delta / max

	switch {
	case r == max:
		out.H = 60 * (g - b) / delta
	case g == max:
		out.H = 120 + 60*(b-r)/delta
	default:
		out.H = 240 + 60*(r-g)/delta
	}
	if out.H < 0 {
		out.H += 360
	}
	out.H %= 360
	return out
}

func clampPercent(x int) int {
	if x < 0 {
		return 0
	}
	if x > 100 {
		return 100
	}
	return x
}

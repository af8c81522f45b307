package software

// ramp is a piecewise-linear color ramp over t in [0, 1].
type ramp struct {
	stops []rampStop
}

type rampStop struct {
	t       float32
	r, g, b float32
}

// jet approximates the classic matplotlib "jet" colormap, the default
// look of the DTM preview output.
var jetRamp = ramp{stops: []rampStop{
	{0.000, 0, 0, 0.5},
	{0.125, 0, 0, 1},
	{0.375, 0, 1, 1},
	{0.625, 1, 1, 0},
	{0.875, 1, 0, 0},
	{1.000, 0.5, 0, 0},
}}

var grayRamp = ramp{stops: []rampStop{
	{0, 0, 0, 0},
	{1, 1, 1, 1},
}}

// viridis, coarsely sampled; close enough for relief products.
var viridisRamp = ramp{stops: []rampStop{
	{0.00, 0.267, 0.005, 0.329},
	{0.25, 0.230, 0.322, 0.546},
	{0.50, 0.128, 0.567, 0.551},
	{0.75, 0.369, 0.789, 0.383},
	{1.00, 0.993, 0.906, 0.144},
}}

func rampByName(name string) ramp {
	switch name {
	case "gray":
		return grayRamp
	case "viridis":
		return viridisRamp
	default:
		return jetRamp
	}
}

func (rp ramp) at(t float32) (uint8, uint8, uint8) {
	if t <= rp.stops[0].t {
		s := rp.stops[0]
		return toByte(s.r), toByte(s.g), toByte(s.b)
	}
	last := rp.stops[len(rp.stops)-1]
	if t >= last.t {
		return toByte(last.r), toByte(last.g), toByte(last.b)
	}

	for i := 1; i < len(rp.stops); i++ {
		if t > rp.stops[i].t {
			continue
		}
		lo, hi := rp.stops[i-1], rp.stops[i]
		f := (t - lo.t) / (hi.t - lo.t)
		return toByte(lo.r + (hi.r-lo.r)*f),
			toByte(lo.g + (hi.g-lo.g)*f),
			toByte(lo.b + (hi.b-lo.b)*f)
	}

	return toByte(last.r), toByte(last.g), toByte(last.b)
}

func toByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

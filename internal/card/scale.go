package card

import "math"

// Design reference size. Every layout length is authored against it.
const (
	DesignWidth  = 900
	DesignHeight = 240
)

// ComputeScale returns the uniform factor mapping design units onto a
// width x height canvas, times multiplier.
func ComputeScale(width, height int, multiplier float64) float64 {
	fit := math.Min(float64(width)/DesignWidth, float64(height)/DesignHeight)
	return fit * multiplier
}

// ToPx converts a design length to whole pixels, rounding to nearest and
// never returning less than 1.
func ToPx(units, scale float64) int {
	px := int(math.Round(units * scale))
	if px < 1 {
		return 1
	}
	return px
}

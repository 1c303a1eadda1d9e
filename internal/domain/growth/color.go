package growth

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

type colorStop struct {
	z     float64
	color colorful.Color
}

// Red at ±3, yellow at ±2 and green at the median, blended in CIE-L*a*b*.
var gradientStops = []colorStop{
	{-3, mustHex("#ff0000")},
	{-2, mustHex("#ffff00")},
	{0, mustHex("#00ff00")},
	{2, mustHex("#ffff00")},
	{3, mustHex("#ff0000")},
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// GradientColor maps a z-score onto the red-yellow-green-yellow-red scale
// used on growth charts. Scores beyond ±3 take the edge color; a NaN score
// gets the neutral color.
func GradientColor(z float64) string {
	if math.IsNaN(z) {
		return ColorNeutral
	}

	first, last := gradientStops[0], gradientStops[len(gradientStops)-1]
	if z <= first.z {
		return first.color.Hex()
	}
	if z >= last.z {
		return last.color.Hex()
	}

	for i := 1; i < len(gradientStops); i++ {
		lo, hi := gradientStops[i-1], gradientStops[i]
		if z <= hi.z {
			t := (z - lo.z) / (hi.z - lo.z)
			return lo.color.BlendLab(hi.color, t).Clamped().Hex()
		}
	}
	return last.color.Hex()
}

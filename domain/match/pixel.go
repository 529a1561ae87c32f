package match

import (
	"autopad-go/domain/frame"
)

// PxThreshold is the squared color distance under which Px considers two
// colors equal. Live capture adds noise, so exact comparison rarely works.
const PxThreshold = 2000

type px struct {
	at     frame.Point
	colors []frame.Color
}

func (m px) Match(f *frame.Frame) bool {
	got := f.At(m.at)
	for _, c := range m.colors {
		if got.Dist2(c) < PxThreshold {
			return true
		}
	}
	return false
}

// Px matches when the pixel under the canonical point is close to any of the
// candidate colors.
func Px(at frame.Point, colors ...frame.Color) Matcher {
	return px{at: at, colors: colors}
}

type pxExact struct {
	at    frame.Point
	color frame.Color
}

func (m pxExact) Match(f *frame.Frame) bool {
	return f.At(m.at) == m.color
}

// PxExact matches when the pixel under the canonical point equals color
// bit for bit. Use it only where rendering is exact, e.g. solid UI fills.
func PxExact(at frame.Point, color frame.Color) Matcher {
	return pxExact{at: at, color: color}
}

package match

import (
	"autopad-go/domain/frame"
)

// ColorRatio returns the fraction of pixels in the canonical rectangle whose
// HSV value lies within [low, high]. An empty rectangle yields 0.
func ColorRatio(f *frame.Frame, topLeft, bottomRight frame.Point, low, high frame.HSV) float64 {
	r := f.Region(topLeft, bottomRight)
	total := r.Dx() * r.Dy()
	if total <= 0 {
		return 0
	}

	return float64(frame.CountInRange(f.Crop(r), low, high)) / float64(total)
}

type regionColorish struct {
	topLeft     frame.Point
	bottomRight frame.Point
	low, high   frame.HSV
	minRatio    float64
}

func (m regionColorish) Match(f *frame.Frame) bool {
	r := f.Region(m.topLeft, m.bottomRight)
	if r.Empty() {
		return false
	}
	return ColorRatio(f, m.topLeft, m.bottomRight, m.low, m.high) >= m.minRatio
}

// RegionColorish matches when at least minRatio of the rectangle's pixels fall
// in the HSV range. It tolerates anti-aliasing and compression noise that
// defeat single-pixel checks.
func RegionColorish(topLeft, bottomRight frame.Point, low, high frame.HSV, minRatio float64) Matcher {
	return regionColorish{
		topLeft:     topLeft,
		bottomRight: bottomRight,
		low:         low,
		high:        high,
		minRatio:    minRatio,
	}
}

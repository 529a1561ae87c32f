package frame

import (
	"fmt"
	"image"
)

// Canonical frame size every Point is authored against.
const (
	CanonicalWidth  = 1280
	CanonicalHeight = 720
)

// Point is a (row, column) coordinate in the canonical 1280x720 space.
type Point struct {
	Y int
	X int
}

// Pt is shorthand for Point{Y: y, X: x}.
func Pt(y, x int) Point {
	return Point{Y: y, X: x}
}

// Norm rescales the canonical point to a frame of the given size.
func (p Point) Norm(width, height int) Point {
	return Point{
		Y: p.Y * height / CanonicalHeight,
		X: p.X * width / CanonicalWidth,
	}
}

// Denorm rescales a point taken from a frame of the given size back into
// canonical space.
func (p Point) Denorm(width, height int) Point {
	if width <= 0 || height <= 0 {
		return p
	}
	return Point{
		Y: p.Y * CanonicalHeight / height,
		X: p.X * CanonicalWidth / width,
	}
}

// Less orders points row-major, the way rectangle corners are normalized.
func (p Point) Less(o Point) bool {
	if p.Y != o.Y {
		return p.Y < o.Y
	}
	return p.X < o.X
}

// ImagePoint converts to an image.Point (X, Y order).
func (p Point) ImagePoint() image.Point {
	return image.Point{X: p.X, Y: p.Y}
}

func (p Point) String() string {
	return fmt.Sprintf("frame.Pt(%d, %d)", p.Y, p.X)
}

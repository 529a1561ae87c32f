package frame

import (
	"fmt"
	"image/color"
)

// Color is a 3-channel byte triple. There is no alpha.
type Color struct {
	R uint8
	G uint8
	B uint8
}

// RGB builds a Color.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b}
}

// FromColor converts any color.Color, dropping alpha.
func FromColor(c color.Color) Color {
	if rgba, ok := c.(color.RGBA); ok {
		return Color{R: rgba.R, G: rgba.G, B: rgba.B}
	}
	r, g, b, _ := c.RGBA()
	return Color{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)}
}

// RGBA returns the opaque color.RGBA equivalent.
func (c Color) RGBA() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// Dist2 is the squared per-channel distance between two colors.
func (c Color) Dist2(o Color) int {
	dr := int(c.R) - int(o.R)
	dg := int(c.G) - int(o.G)
	db := int(c.B) - int(o.B)
	return dr*dr + dg*dg + db*db
}

// Gray returns the luma value using the ITU-R BT.601 weights.
func (c Color) Gray() uint8 {
	return uint8((299*int(c.R) + 587*int(c.G) + 114*int(c.B) + 500) / 1000)
}

func (c Color) String() string {
	return fmt.Sprintf("frame.RGB(%d, %d, %d)", c.R, c.G, c.B)
}

// MaxHue is the largest hue on the OpenCV 8-bit scale.
const MaxHue = 179

// HSV is a hue-saturation-value triple on the OpenCV 8-bit scale.
type HSV struct {
	H uint8
	S uint8
	V uint8
}

// Within reports whether every channel lies in [low, high] inclusive.
func (h HSV) Within(low, high HSV) bool {
	return h.H >= low.H && h.H <= high.H &&
		h.S >= low.S && h.S <= high.S &&
		h.V >= low.V && h.V <= high.V
}

func (h HSV) String() string {
	return fmt.Sprintf("frame.HSV{H: %d, S: %d, V: %d}", h.H, h.S, h.V)
}

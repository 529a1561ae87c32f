// Package frame defines the video frame snapshot and the canonical coordinate
// space matchers are authored in.
package frame

import (
	"context"
	"errors"
	"image"

	"golang.org/x/image/draw"
)

// ErrQuit is returned by a Source when the operator asked to stop (the quit
// key on the preview window). It ends a run cleanly.
var ErrQuit = errors.New("quit requested")

// Source yields frames on demand.
type Source interface {
	// Next blocks until a fresh frame is available.
	Next(ctx context.Context) (*Frame, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (*Frame, error)

// Next calls f(ctx).
func (f SourceFunc) Next(ctx context.Context) (*Frame, error) { return f(ctx) }

// Frame is a read-only snapshot of the device display.
type Frame struct {
	img    image.Image
	rgba   *image.RGBA
	bounds image.Rectangle
}

// New wraps an image. The image must not be modified while the Frame is in use.
func New(img image.Image) *Frame {
	f := &Frame{img: img, bounds: img.Bounds()}
	if rgba, ok := img.(*image.RGBA); ok {
		f.rgba = rgba
	}
	return f
}

// Image returns the underlying image.
func (f *Frame) Image() image.Image { return f.img }

// Width returns the frame width in pixels.
func (f *Frame) Width() int { return f.bounds.Dx() }

// Height returns the frame height in pixels.
func (f *Frame) Height() int { return f.bounds.Dy() }

// Pixel returns the color at frame-relative pixel (x, y). Coordinates are
// clamped into the frame; an empty frame yields the zero Color.
func (f *Frame) Pixel(x, y int) Color {
	if f.bounds.Empty() {
		return Color{}
	}
	x = clamp(x, 0, f.Width()-1)
	y = clamp(y, 0, f.Height()-1)
	x += f.bounds.Min.X
	y += f.bounds.Min.Y

	if f.rgba != nil {
		i := f.rgba.PixOffset(x, y)
		p := f.rgba.Pix[i : i+3 : i+3]
		return Color{R: p[0], G: p[1], B: p[2]}
	}
	return FromColor(f.img.At(x, y))
}

// At returns the color under a canonical point.
func (f *Frame) At(p Point) Color {
	n := p.Norm(f.Width(), f.Height())
	return f.Pixel(n.X, n.Y)
}

// Region normalizes a canonical rectangle and clips it to the frame. The
// result is frame-relative and is empty when the corners are reversed.
func (f *Frame) Region(topLeft, bottomRight Point) image.Rectangle {
	tl := topLeft.Norm(f.Width(), f.Height())
	br := bottomRight.Norm(f.Width(), f.Height())
	r := image.Rectangle{Min: tl.ImagePoint(), Max: br.ImagePoint()}
	return r.Intersect(image.Rect(0, 0, f.Width(), f.Height()))
}

// Crop copies a frame-relative rectangle into a new RGBA image whose bounds
// start at the origin.
func (f *Frame) Crop(r image.Rectangle) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Copy(dst, image.Point{}, f.img, r.Add(f.bounds.Min), draw.Src, nil)
	return dst
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

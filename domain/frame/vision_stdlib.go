//go:build !cgo

package frame

import (
	"image"
	"math"
)

// HSV converts to hue-saturation-value on the OpenCV 8-bit scale:
// H in [0, 180), S and V in [0, 255].
func (c Color) HSV() HSV {
	r, g, b := float64(c.R), float64(c.G), float64(c.B)
	v := math.Max(r, math.Max(g, b))
	diff := v - math.Min(r, math.Min(g, b))

	var s float64
	if v > 0 {
		s = diff / v * 255
	}

	var h float64
	if diff > 0 {
		switch v {
		case r:
			h = (g - b) * 60 / diff
		case g:
			h = 120 + (b-r)*60/diff
		default:
			h = 240 + (r-g)*60/diff
		}
		if h < 0 {
			h += 360
		}
	}

	hh := math.Round(h / 2)
	if hh >= 180 {
		hh -= 180
	}
	return HSV{H: uint8(hh), S: uint8(math.Round(s)), V: uint8(v)}
}

// CountInRange counts the pixels of img whose HSV value lies within
// [low, high] on every channel.
func CountInRange(img image.Image, low, high HSV) int {
	b := img.Bounds()
	n := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if FromColor(img.At(x, y)).HSV().Within(low, high) {
				n++
			}
		}
	}
	return n
}

func grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			gray.Pix[y*gray.Stride+x] = FromColor(img.At(b.Min.X+x, b.Min.Y+y)).Gray()
		}
	}
	return gray
}

// otsu picks the threshold that maximizes the between-class variance of the
// gray histogram.
func otsu(gray *image.Gray) uint8 {
	var hist [256]int
	for _, v := range gray.Pix {
		hist[v]++
	}
	total := len(gray.Pix)
	if total == 0 {
		return 0
	}

	var sum float64
	for i, n := range hist {
		sum += float64(i * n)
	}

	var (
		sumB   float64
		wB     int
		best   float64
		thresh int
	)
	for t := range 256 {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			thresh = t
		}
	}
	return uint8(thresh)
}

// Binarize grayscales img and applies an Otsu threshold: pixels above the
// threshold become 255, the rest 0. invert swaps the two.
func Binarize(img image.Image, invert bool) *image.Gray {
	gray := grayscale(img)
	t := otsu(gray)
	for i, v := range gray.Pix {
		if (v > t) != invert {
			gray.Pix[i] = 255
		} else {
			gray.Pix[i] = 0
		}
	}
	return gray
}

//go:build cgo

package frame

import (
	"image"

	"gocv.io/x/gocv"
)

// toMat converts img to an 8-bit BGR Mat. The caller closes it.
func toMat(img image.Image) (gocv.Mat, bool) {
	if img.Bounds().Empty() {
		return gocv.NewMat(), false
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), false
	}
	return mat, true
}

// HSV converts to hue-saturation-value on the OpenCV 8-bit scale:
// H in [0, 180), S and V in [0, 255].
func (c Color) HSV() HSV {
	bgr, err := gocv.NewMatFromBytes(1, 1, gocv.MatTypeCV8UC3, []byte{c.B, c.G, c.R})
	if err != nil {
		return HSV{}
	}
	defer bgr.Close()

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(bgr, &hsv, gocv.ColorBGRToHSV)

	p := hsv.ToBytes()
	if len(p) < 3 {
		return HSV{}
	}
	return HSV{H: p[0], S: p[1], V: p[2]}
}

// CountInRange counts the pixels of img whose HSV value lies within
// [low, high] on every channel.
func CountInRange(img image.Image, low, high HSV) int {
	bgr, ok := toMat(img)
	defer bgr.Close()
	if !ok {
		return 0
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(bgr, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(float64(low.H), float64(low.S), float64(low.V), 0),
		gocv.NewScalar(float64(high.H), float64(high.S), float64(high.V), 0),
		&mask)

	return gocv.CountNonZero(mask)
}

// Binarize grayscales img and applies an Otsu threshold: pixels above the
// threshold become 255, the rest 0. invert swaps the two.
func Binarize(img image.Image, invert bool) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	bgr, ok := toMat(img)
	defer bgr.Close()
	if !ok {
		return out
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(bgr, &gray, gocv.ColorBGRToGray)

	bin := gocv.NewMat()
	defer bin.Close()
	gocv.Threshold(gray, &bin, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)
	if invert {
		gocv.BitwiseNot(bin, &bin)
	}

	copy(out.Pix, bin.ToBytes())
	return out
}

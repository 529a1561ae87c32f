package frame

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestPoint_NormDenorm(t *testing.T) {
	tests := []struct {
		name   string
		p      Point
		w, h   int
		expect Point
	}{
		{"canonical size is identity", Pt(61, 745), 1280, 720, Pt(61, 745)},
		{"full hd", Pt(360, 640), 1920, 1080, Pt(540, 960)},
		{"half size truncates", Pt(61, 745), 640, 360, Pt(30, 372)},
		{"origin", Pt(0, 0), 1920, 1080, Pt(0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.p.Norm(tt.w, tt.h))
		})
	}

	assert.Equal(t, Pt(360, 640), Pt(540, 960).Denorm(1920, 1080))
	assert.Equal(t, Pt(5, 5), Pt(5, 5).Denorm(0, 0))

	for y := range CanonicalHeight {
		for x := range CanonicalWidth {
			p := Pt(y, x)
			if p.Norm(CanonicalWidth, CanonicalHeight) != p || p.Denorm(CanonicalWidth, CanonicalHeight) != p {
				t.Fatalf("%v is not fixed at canonical size", p)
			}
		}
	}
}

func TestPoint_Less(t *testing.T) {
	assert.True(t, Pt(1, 9).Less(Pt(2, 0)))
	assert.True(t, Pt(1, 1).Less(Pt(1, 2)))
	assert.False(t, Pt(1, 2).Less(Pt(1, 2)))
}

func TestColor_Dist2(t *testing.T) {
	assert.Equal(t, 0, RGB(10, 20, 30).Dist2(RGB(10, 20, 30)))
	assert.Equal(t, 3*100, RGB(10, 20, 30).Dist2(RGB(20, 30, 40)))
	assert.Equal(t, 3*255*255, RGB(0, 0, 0).Dist2(RGB(255, 255, 255)))
}

func TestColor_HSV(t *testing.T) {
	tests := []struct {
		name   string
		c      Color
		expect HSV
	}{
		{"red", RGB(255, 0, 0), HSV{0, 255, 255}},
		{"green", RGB(0, 255, 0), HSV{60, 255, 255}},
		{"blue", RGB(0, 0, 255), HSV{120, 255, 255}},
		{"yellow", RGB(255, 255, 0), HSV{30, 255, 255}},
		{"white", RGB(255, 255, 255), HSV{0, 0, 255}},
		{"black", RGB(0, 0, 0), HSV{0, 0, 0}},
		{"dark half saturated red", RGB(128, 64, 64), HSV{0, 128, 128}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.c.HSV())
		})
	}
}

func TestHSV_Within(t *testing.T) {
	low := HSV{50, 100, 100}
	high := HSV{70, 255, 255}

	assert.True(t, HSV{60, 255, 255}.Within(low, high))
	assert.True(t, low.Within(low, high))
	assert.True(t, high.Within(low, high))
	assert.False(t, HSV{49, 200, 200}.Within(low, high))
	assert.False(t, HSV{60, 99, 200}.Within(low, high))
}

func TestFrame_At(t *testing.T) {
	img := solid(1920, 1080, color.RGBA{0, 0, 0, 255})
	img.SetRGBA(960, 540, color.RGBA{1, 2, 3, 255})

	f := New(img)
	require.Equal(t, 1920, f.Width())
	require.Equal(t, 1080, f.Height())

	assert.Equal(t, RGB(1, 2, 3), f.At(Pt(360, 640)))
	assert.Equal(t, RGB(0, 0, 0), f.At(Pt(0, 0)))
}

func TestFrame_PixelClamps(t *testing.T) {
	img := solid(4, 4, color.RGBA{0, 0, 0, 255})
	img.SetRGBA(3, 3, color.RGBA{9, 9, 9, 255})

	f := New(img)
	assert.Equal(t, RGB(9, 9, 9), f.Pixel(10, 10))
	assert.Equal(t, RGB(9, 9, 9), f.At(Pt(CanonicalHeight, CanonicalWidth)))
}

func TestFrame_NonRGBASource(t *testing.T) {
	img := image.NewNRGBA(image.Rect(10, 10, 20, 20))
	img.Set(10, 10, color.NRGBA{7, 8, 9, 255})

	f := New(img)
	assert.Equal(t, RGB(7, 8, 9), f.Pixel(0, 0))
}

func TestFrame_Region(t *testing.T) {
	f := New(solid(640, 360, color.RGBA{}))

	r := f.Region(Pt(100, 200), Pt(300, 400))
	assert.Equal(t, image.Rect(100, 50, 200, 150), r)

	clipped := f.Region(Pt(700, 1200), Pt(800, 1400))
	assert.Equal(t, 360, clipped.Max.Y)
	assert.Equal(t, 640, clipped.Max.X)

	assert.True(t, f.Region(Pt(10, 10), Pt(5, 5)).Empty())
}

func TestFrame_Crop(t *testing.T) {
	img := solid(1280, 720, color.RGBA{10, 10, 10, 255})
	img.SetRGBA(100, 50, color.RGBA{200, 0, 0, 255})
	f := New(img)

	crop := f.Crop(image.Rect(100, 50, 110, 60))
	assert.Equal(t, image.Rect(0, 0, 10, 10), crop.Bounds())
	assert.Equal(t, color.RGBA{200, 0, 0, 255}, crop.RGBAAt(0, 0))
}

func TestBinarize(t *testing.T) {
	img := solid(10, 2, color.RGBA{20, 20, 20, 255})
	for x := 0; x < 10; x++ {
		img.SetRGBA(x, 1, color.RGBA{200, 200, 200, 255})
	}

	bin := Binarize(img, false)
	assert.Equal(t, uint8(0), bin.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(255), bin.GrayAt(0, 1).Y)

	inv := Binarize(img, true)
	assert.Equal(t, uint8(255), inv.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(0), inv.GrayAt(0, 1).Y)
}

func TestBinarize_Empty(t *testing.T) {
	bin := Binarize(image.NewRGBA(image.Rect(0, 0, 0, 0)), false)
	assert.Equal(t, 0, bin.Bounds().Dx())
}

func TestCountInRange(t *testing.T) {
	img := solid(4, 2, color.RGBA{0, 255, 0, 255})
	img.SetRGBA(0, 0, color.RGBA{255, 0, 0, 255})
	img.SetRGBA(1, 0, color.RGBA{0, 0, 0, 255})

	green := CountInRange(img, HSV{50, 100, 100}, HSV{70, 255, 255})
	assert.Equal(t, 6, green)
	assert.Equal(t, 1, CountInRange(img, HSV{0, 100, 100}, HSV{10, 255, 255}))
	assert.Equal(t, 0, CountInRange(image.NewRGBA(image.Rect(0, 0, 0, 0)), HSV{}, HSV{179, 255, 255}))
}

func TestPixel_EmptyFrame(t *testing.T) {
	f := New(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.Equal(t, Color{}, f.Pixel(1, 1))
	assert.Equal(t, Color{}, f.At(Pt(1, 1)))
}

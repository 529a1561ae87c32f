package match

import (
	"fmt"
	"image"
	"log/slog"
	"strings"

	"autopad-go/domain/frame"
)

// TextReader recognizes a single line of text in a binarized image.
type TextReader interface {
	ReadText(img image.Image) (string, error)
}

// ReadText crops the canonical rectangle, binarizes it with an Otsu
// threshold (optionally inverted) and returns the trimmed OCR result.
func ReadText(r TextReader, f *frame.Frame, topLeft, bottomRight frame.Point, invert bool) (string, error) {
	rect := f.Region(topLeft, bottomRight)
	if rect.Empty() {
		return "", fmt.Errorf("empty text region %v-%v", topLeft, bottomRight)
	}

	bin := frame.Binarize(f.Crop(rect), invert)
	text, err := r.ReadText(bin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

type text struct {
	reader      TextReader
	expected    string
	topLeft     frame.Point
	bottomRight frame.Point
	invert      bool
}

func (m text) Match(f *frame.Frame) bool {
	got, err := ReadText(m.reader, f, m.topLeft, m.bottomRight, m.invert)
	if err != nil {
		slog.Warn("OCR failed", "expected", m.expected, "error", err)
		return false
	}
	return got == m.expected
}

// Text matches when OCR of the rectangle equals expected exactly. Misreads are
// expected; scripts that need fuzzy comparison should call ReadText.
func Text(reader TextReader, expected string, topLeft, bottomRight frame.Point, invert bool) Matcher {
	return text{
		reader:      reader,
		expected:    expected,
		topLeft:     topLeft,
		bottomRight: bottomRight,
		invert:      invert,
	}
}

// Package inspector is a small GUI for authoring matchers: it shows a
// captured frame, turns a click into a pixel matcher and a drag into text
// matchers, both in canonical coordinates, as Go and YAML snippets.
package inspector

import (
	"fmt"
	"image"
	"strings"

	"autopad-go/domain/frame"
	"autopad-go/domain/match"
	"autopad-go/domain/scene"
)

// Snippet is one generated matcher in both script forms.
type Snippet struct {
	Go   string
	YAML string
	// Note carries extra context, e.g. the HSV value of a pixel.
	Note string
}

func (s Snippet) String() string {
	var b strings.Builder
	b.WriteString(s.Go)
	b.WriteString("\n")
	b.WriteString(s.YAML)
	if s.Note != "" {
		b.WriteString("\n# ")
		b.WriteString(s.Note)
	}
	return b.String()
}

// Canonical converts an image coordinate of f into canonical space.
func Canonical(f *frame.Frame, p image.Point) frame.Point {
	return frame.Pt(p.Y, p.X).Denorm(f.Width(), f.Height())
}

// PixelSnippet describes the pixel under an image coordinate.
func PixelSnippet(f *frame.Frame, p image.Point) Snippet {
	pt := Canonical(f, p)
	c := f.At(pt)
	return Snippet{
		Go:   fmt.Sprintf("match.Px(%s, %s)", pt, c),
		YAML: fmt.Sprintf("{px: {at: [%d, %d], colors: [[%d, %d, %d]]}}", pt.Y, pt.X, c.R, c.G, c.B),
		Note: c.HSV().String(),
	}
}

// Rect orders two drag corners into top-left and bottom-right canonical
// points.
func Rect(f *frame.Frame, from, to image.Point) (frame.Point, frame.Point) {
	r := image.Rectangle{Min: from, Max: to}.Canon()
	return Canonical(f, r.Min), Canonical(f, r.Max)
}

// TextSnippets reads the dragged rectangle with and without inversion and
// returns one snippet per setting. A failed read is reported in the note.
func TextSnippets(f *frame.Frame, reader match.TextReader, from, to image.Point) []Snippet {
	tl, br := Rect(f, from, to)
	out := make([]Snippet, 0, 2)
	for _, invert := range []bool{false, true} {
		var text, note string
		if reader == nil {
			note = "no OCR reader"
		} else if got, err := match.ReadText(reader, f, tl, br, invert); err != nil {
			note = err.Error()
		} else {
			text = got
		}
		out = append(out, Snippet{
			Go: fmt.Sprintf("match.Text(reader, %q, %s, %s, %t)", text, tl, br, invert),
			YAML: fmt.Sprintf("{text: {expect: %q, from: [%d, %d], to: [%d, %d], invert: %t}}",
				text, tl.Y, tl.X, br.Y, br.X, invert),
			Note: note,
		})
	}
	return out
}

// FrameStatus describes a loaded frame and the registered scenes it shows.
func FrameStatus(f *frame.Frame, scenes *scene.Registry) string {
	status := fmt.Sprintf("Frame %dx%d", f.Width(), f.Height())
	if scenes == nil {
		return status
	}
	matches := scenes.FindAllMatches(f)
	if len(matches) == 0 {
		return status + ", no scene"
	}
	names := make([]string, len(matches))
	for i, sc := range matches {
		names[i] = sc.Name
	}
	return status + ", scenes: " + strings.Join(names, ", ")
}

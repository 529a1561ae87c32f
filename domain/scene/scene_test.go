package scene

import (
	"image"
	"image/color"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autopad-go/domain/frame"
)

// canvas is a canonical-size frame with a few painted pixels.
func canvas(px map[image.Point]color.RGBA) *frame.Frame {
	img := image.NewRGBA(image.Rect(0, 0, frame.CanonicalWidth, frame.CanonicalHeight))
	for p, c := range px {
		img.SetRGBA(p.X, p.Y, c)
	}
	return frame.New(img)
}

var (
	red   = frame.RGB(255, 0, 0)
	green = frame.RGB(0, 255, 0)
)

func twoPointScene() *Scene {
	return &Scene{
		Name: "test_scene",
		Points: []Point{
			{Y: 100, X: 100, Color: red},
			{Y: 200, X: 200, Color: green},
		},
	}
}

func TestScene_Match(t *testing.T) {
	scene := twoPointScene()

	tests := []struct {
		name     string
		px       map[image.Point]color.RGBA
		expected bool
	}{
		{
			name: "exact match",
			px: map[image.Point]color.RGBA{
				{X: 100, Y: 100}: {255, 0, 0, 255},
				{X: 200, Y: 200}: {0, 255, 0, 255},
			},
			expected: true,
		},
		{
			name: "close match within threshold",
			px: map[image.Point]color.RGBA{
				{X: 100, Y: 100}: {240, 10, 10, 255},
				{X: 200, Y: 200}: {10, 240, 10, 255},
			},
			expected: true,
		},
		{
			name: "one point off",
			px: map[image.Point]color.RGBA{
				{X: 100, Y: 100}: {255, 0, 0, 255},
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, scene.Match(canvas(tt.px)))
		})
	}
}

func TestScene_Match_EdgeCases(t *testing.T) {
	t.Run("nil frame", func(t *testing.T) {
		assert.False(t, twoPointScene().Match(nil))
	})

	t.Run("empty points", func(t *testing.T) {
		scene := &Scene{Name: "test"}
		assert.False(t, scene.Match(canvas(nil)))
	})
}

func TestScene_MatchWithDetails(t *testing.T) {
	scene := twoPointScene()
	f := canvas(map[image.Point]color.RGBA{{X: 100, Y: 100}: {255, 0, 0, 255}})

	result := scene.MatchWithDetails(f)

	assert.Same(t, scene, result.Scene)
	assert.False(t, result.Matched)
	require.Len(t, result.Dist2, 2)
	assert.Equal(t, 0, result.Dist2[0])
	assert.Equal(t, 255*255, result.Dist2[1])
	assert.Equal(t, 1, result.Worst)
}

func TestRegistry_Basic(t *testing.T) {
	registry := NewRegistry()

	scene1 := &Scene{Name: "scene1", Category: "battle"}
	scene2 := &Scene{Name: "scene2", Category: "city"}
	scene3 := &Scene{Name: "scene3", Category: "battle"}

	registry.Register(scene3)
	registry.Register(scene1)
	registry.Register(scene2)

	assert.Same(t, scene1, registry.Get("scene1"))
	assert.Nil(t, registry.Get("nonexistent"))
	assert.Equal(t, 3, registry.Count())
	assert.Equal(t, []string{"scene1", "scene2", "scene3"}, registry.List())
	assert.Equal(t, []*Scene{scene1, scene3}, registry.GetByCategory("battle"))
}

func TestRegistry_FindAllMatches(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&Scene{Name: "b", Points: []Point{{Y: 100, X: 100, Color: red}}})
	registry.Register(&Scene{Name: "a", Points: []Point{{Y: 100, X: 100, Color: red}}})
	registry.Register(&Scene{Name: "c", Points: []Point{{Y: 200, X: 200, Color: green}}})

	f := canvas(map[image.Point]color.RGBA{{X: 100, Y: 100}: {255, 0, 0, 255}})

	matches := registry.FindAllMatches(f)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].Name)
	assert.Equal(t, "b", matches[1].Name)

	assert.Nil(t, registry.FindAllMatches(nil))
}

func TestLoader_LoadFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"scenes/console.yaml": {Data: []byte(`
category: console
scenes:
  - name: game_start
    points:
      - {y: 61, x: 745, color: [217, 217, 217]}
      - {y: 82, x: 1139, color: [0, 0, 0]}
`)},
		"scenes/README.md": {Data: []byte("ignored")},
	}

	registry := NewRegistry()
	require.NoError(t, NewLoader(registry).LoadFromFS(fsys))

	scene := registry.Get("game_start")
	require.NotNil(t, scene)
	assert.Equal(t, "console", scene.Category)
	require.Len(t, scene.Points, 2)
	assert.Equal(t, frame.Pt(61, 745), scene.Points[0].At())
	assert.Equal(t, frame.RGB(217, 217, 217), scene.Points[0].Color)
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{"bad yaml", "scenes: [", "failed to parse"},
		{"no name", "scenes:\n  - points: [{y: 1, x: 1, color: [1, 2, 3]}]", "without a name"},
		{"no points", "scenes:\n  - name: x", "no points"},
		{"short color", "scenes:\n  - name: x\n    points: [{y: 1, x: 1, color: [1, 2]}]", "3 components"},
		{"color range", "scenes:\n  - name: x\n    points: [{y: 1, x: 1, color: [1, 2, 300]}]", "out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{"scenes/s.yaml": {Data: []byte(tt.data)}}
			err := NewLoader(NewRegistry()).LoadFromFS(fsys)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoader_MissingDirectory(t *testing.T) {
	registry := NewRegistry()
	assert.NoError(t, NewLoader(registry).LoadFromFS(fstest.MapFS{}))
	assert.Equal(t, 0, registry.Count())
}

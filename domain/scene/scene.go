// Package scene defines named screens recognized by a set of pixel colors.
package scene

import (
	"autopad-go/domain/frame"
	"autopad-go/domain/match"
)

// Scene represents a recognizable screen defined by color points.
type Scene struct {
	// Name is the unique identifier for this scene
	Name string

	// Category groups related scenes (e.g., "console", "title", "battle")
	Category string

	// Points are the color checkpoints used to identify this scene
	Points []Point
}

// Point is a canonical coordinate with its expected color.
type Point struct {
	Y     int
	X     int
	Color frame.Color
}

// At returns the canonical frame point.
func (p Point) At() frame.Point {
	return frame.Pt(p.Y, p.X)
}

// Matcher returns the All of Px matchers over the scene's points.
// A scene without points never matches.
func (s *Scene) Matcher() match.Matcher {
	if len(s.Points) == 0 {
		return match.Never
	}
	ms := make([]match.Matcher, len(s.Points))
	for i, p := range s.Points {
		ms[i] = match.Px(p.At(), p.Color)
	}
	return match.All(ms...)
}

// Match reports whether f shows this scene.
func (s *Scene) Match(f *frame.Frame) bool {
	if f == nil {
		return false
	}
	return s.Matcher().Match(f)
}

// MatchResult contains details about a scene match attempt.
type MatchResult struct {
	Scene   *Scene
	Matched bool
	// Dist2 holds the squared color distance of each point.
	Dist2 []int
	// Worst is the index of the point furthest from its color, -1 if none.
	Worst int
}

// MatchWithDetails evaluates every point, without short-circuiting, so a
// near-miss can be diagnosed.
func (s *Scene) MatchWithDetails(f *frame.Frame) *MatchResult {
	result := &MatchResult{
		Scene: s,
		Dist2: make([]int, len(s.Points)),
		Worst: -1,
	}
	if len(s.Points) == 0 || f == nil {
		return result
	}

	result.Matched = true
	for i, p := range s.Points {
		d := f.At(p.At()).Dist2(p.Color)
		result.Dist2[i] = d
		if d >= match.PxThreshold {
			result.Matched = false
		}
		if result.Worst < 0 || d > result.Dist2[result.Worst] {
			result.Worst = i
		}
	}
	return result
}

// Package match provides the frame predicates state-graph rules are guarded by.
package match

import (
	"autopad-go/domain/frame"
)

// Matcher is a pure predicate over a frame. Implementations must not modify
// the frame.
type Matcher interface {
	Match(f *frame.Frame) bool
}

// Func adapts a function to Matcher.
type Func func(f *frame.Frame) bool

// Match calls fn(f).
func (fn Func) Match(f *frame.Frame) bool { return fn(f) }

// Always matches every frame. It is the conventional last rule of a state.
var Always Matcher = Func(func(*frame.Frame) bool { return true })

// Never matches no frame.
var Never Matcher = Func(func(*frame.Frame) bool { return false })

type allOf []Matcher

func (ms allOf) Match(f *frame.Frame) bool {
	for _, m := range ms {
		if !m.Match(f) {
			return false
		}
	}
	return true
}

// All matches when every matcher matches the same frame. Evaluation is left
// to right and stops at the first miss.
func All(ms ...Matcher) Matcher {
	return allOf(ms)
}

type anyOf []Matcher

func (ms anyOf) Match(f *frame.Frame) bool {
	for _, m := range ms {
		if m.Match(f) {
			return true
		}
	}
	return false
}

// Any matches when at least one matcher matches. Evaluation is left to right
// and stops at the first hit.
func Any(ms ...Matcher) Matcher {
	return anyOf(ms)
}

// Not inverts a matcher.
func Not(m Matcher) Matcher {
	return Func(func(f *frame.Frame) bool { return !m.Match(f) })
}

// Package script defines runnable scripts: a named state graph plus the
// metadata the runner needs. Scripts come from YAML files or are written in
// Go and registered at startup.
package script

import (
	"fmt"
	"log/slog"
	"time"

	"autopad-go/core/clock"
	"autopad-go/domain/graph"
	"autopad-go/domain/match"
	"autopad-go/domain/scene"
)

// NoStall disables the stall watchdog for a script.
const NoStall time.Duration = -1

// Env carries the collaborators a script needs to build its graph.
type Env struct {
	// Scenes resolves scene matchers by name.
	Scenes *scene.Registry
	// OCR reads text for text matchers. Nil when OCR is disabled.
	OCR match.TextReader
	// Clock drives timers. It must be the runner's clock.
	Clock  clock.Clock
	Logger *slog.Logger
	// Params are operator-supplied key=value settings for builtin scripts.
	Params map[string]string
}

// Param returns the named parameter or def when it is unset or empty.
func (e *Env) Param(key, def string) string {
	if e == nil {
		return def
	}
	if v := e.Params[key]; v != "" {
		return v
	}
	return def
}

func (e *Env) withDefaults() *Env {
	out := Env{}
	if e != nil {
		out = *e
	}
	if out.Scenes == nil {
		out.Scenes = scene.NewRegistry()
	}
	if out.Clock == nil {
		out.Clock = clock.System{}
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return &out
}

// BuildFunc creates a fresh state map. Timers and counters must be created
// inside it so every run starts from a clean slate.
type BuildFunc func(env *Env) (graph.States[string], error)

// Script represents a runnable automation script.
type Script struct {
	// Name is the unique identifier for this script
	Name string

	// Description provides a human-readable explanation of what the script does
	Description string

	// Source is the file the script was loaded from, or "builtin".
	Source string

	// Initial is the state the run starts in.
	Initial string

	// StallTimeout overrides the configured stall timeout when non-zero.
	StallTimeout time.Duration

	// Build creates the state map.
	Build BuildFunc
}

// Graph builds and validates the script's state graph.
func (s *Script) Graph(env *Env) (*graph.Graph[string], error) {
	if s.Build == nil {
		return nil, fmt.Errorf("script %s has no graph", s.Name)
	}
	states, err := s.Build(env.withDefaults())
	if err != nil {
		return nil, fmt.Errorf("failed to build script %s: %w", s.Name, err)
	}
	g, err := graph.New(states, graph.Terminal)
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", s.Name, err)
	}
	if !g.Has(s.Initial) {
		return nil, fmt.Errorf("script %s: initial state %q is not defined", s.Name, s.Initial)
	}
	return g, nil
}

// ParseStallTimeout reads a script stall setting: empty keeps the default,
// "none" disables the watchdog.
func ParseStallTimeout(s string) (time.Duration, error) {
	switch s {
	case "":
		return 0, nil
	case "none":
		return NoStall, nil
	}
	d, err := parseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid stallTimeout %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid stallTimeout %q: must be positive", s)
	}
	return d, nil
}

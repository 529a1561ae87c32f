package script

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// yamlScript is the YAML structure for script definitions.
type yamlScript struct {
	Name         string                `yaml:"name"`
	Description  string                `yaml:"description"`
	Initial      string                `yaml:"initial"`
	StallTimeout string                `yaml:"stallTimeout"`
	Timers       []string              `yaml:"timers"`
	Counters     []string              `yaml:"counters"`
	States       map[string][]yamlRule `yaml:"states"`
}

type yamlRule struct {
	Match yaml.Node   `yaml:"match"`
	Do    []yaml.Node `yaml:"do"`
	Next  string      `yaml:"next"`
}

// Loader handles loading script definitions from various sources.
type Loader struct {
	registry *Registry
}

// NewLoader creates a new script loader that populates the given registry.
func NewLoader(registry *Registry) *Loader {
	return &Loader{registry: registry}
}

// LoadFromFS loads script definitions from an embedded or real filesystem.
// It expects YAML files in a "scripts" subdirectory; a missing directory
// loads nothing.
func (l *Loader) LoadFromFS(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, "scripts")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read scripts directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".yaml" {
			continue
		}

		if err := l.loadFile(fsys, "scripts/"+entry.Name()); err != nil {
			return err
		}
	}

	return nil
}

// loadFile loads a single script definition file.
func (l *Loader) loadFile(fsys fs.FS, name string) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("failed to read script file %s: %w", name, err)
	}

	s, err := Parse(data, name)
	if err != nil {
		return err
	}
	return l.registry.Register(s)
}

// ParseFile reads a single script file without registering it.
func ParseFile(name string) (*Script, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read script file %s: %w", name, err)
	}
	return Parse(data, name)
}

// Parse decodes and checks a YAML script. Scene names and OCR availability
// are resolved later, when the graph is built.
func Parse(data []byte, source string) (*Script, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var ys yamlScript
	if err := dec.Decode(&ys); err != nil {
		return nil, fmt.Errorf("failed to parse script file %s: %w", source, err)
	}

	def, err := convertYAMLScript(&ys)
	if err != nil {
		return nil, fmt.Errorf("invalid script file %s: %w", source, err)
	}

	stall, err := ParseStallTimeout(ys.StallTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid script file %s: %w", source, err)
	}

	return &Script{
		Name:         ys.Name,
		Description:  ys.Description,
		Source:       source,
		Initial:      ys.Initial,
		StallTimeout: stall,
		Build:        def.build,
	}, nil
}

// convertYAMLScript checks the document and converts it to a definition.
func convertYAMLScript(ys *yamlScript) (*definition, error) {
	if ys.Name == "" {
		return nil, errors.New("script without a name")
	}
	if ys.Initial == "" {
		return nil, errors.New("script without an initial state")
	}
	if len(ys.States) == 0 {
		return nil, errors.New("script without states")
	}

	def := &definition{
		timers:   make(map[string]struct{}),
		counters: make(map[string]struct{}),
		states:   make(map[string][]ruleSpec, len(ys.States)),
	}
	for _, t := range ys.Timers {
		if _, dup := def.timers[t]; dup {
			return nil, fmt.Errorf("duplicate timer %s", t)
		}
		def.timers[t] = struct{}{}
	}
	for _, c := range ys.Counters {
		if _, dup := def.counters[c]; dup {
			return nil, fmt.Errorf("duplicate counter %s", c)
		}
		def.counters[c] = struct{}{}
	}

	for state, rules := range ys.States {
		specs := make([]ruleSpec, 0, len(rules))
		for i := range rules {
			r, err := def.parseRule(&rules[i])
			if err != nil {
				return nil, fmt.Errorf("state %s rule %d: %w", state, i, err)
			}
			specs = append(specs, r)
		}
		def.states[state] = specs
	}

	return def, nil
}

// parseDuration accepts Go durations ("1.5s") and bare seconds ("1.5").
func parseDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

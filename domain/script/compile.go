package script

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"autopad-go/domain/action"
	"autopad-go/domain/frame"
	"autopad-go/domain/graph"
	"autopad-go/domain/match"
	"autopad-go/domain/scene"
	"autopad-go/domain/timer"
)

// definition is a parsed YAML script, ready to be built any number of times.
type definition struct {
	timers   map[string]struct{}
	counters map[string]struct{}
	states   map[string][]ruleSpec
}

type ruleSpec struct {
	match   *matcherSpec
	actions []*actionSpec
	next    string
}

type matcherSpec struct {
	line        int
	kind        string
	name        string
	topLeft     frame.Point
	bottomRight frame.Point
	colors      []frame.Color
	low, high   frame.HSV
	ratio       float64
	text        string
	invert      bool
	n           int
	children    []*matcherSpec
}

type actionSpec struct {
	line     int
	kind     string
	button   string
	duration time.Duration
	x, y     int
	code     int
	name     string
}

func (d *definition) parseRule(r *yamlRule) (ruleSpec, error) {
	if r.Match.Kind == 0 {
		return ruleSpec{}, errors.New("rule without match")
	}
	if r.Next == "" {
		return ruleSpec{}, fmt.Errorf("line %d: rule without next", r.Match.Line)
	}

	m, err := d.parseMatcher(&r.Match)
	if err != nil {
		return ruleSpec{}, err
	}

	spec := ruleSpec{match: m, next: r.Next}
	for i := range r.Do {
		a, err := d.parseAction(&r.Do[i])
		if err != nil {
			return ruleSpec{}, err
		}
		spec.actions = append(spec.actions, a)
	}
	return spec, nil
}

// decodeStrict decodes n rejecting unknown fields.
func decodeStrict(n *yaml.Node, out any) error {
	b, err := yaml.Marshal(n)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	return nil
}

func (d *definition) parseMatcher(n *yaml.Node) (*matcherSpec, error) {
	spec := &matcherSpec{line: n.Line}

	if n.Kind == yaml.ScalarNode {
		switch n.Value {
		case "always", "never":
			spec.kind = n.Value
			return spec, nil
		}
		return nil, fmt.Errorf("line %d: unknown matcher %q", n.Line, n.Value)
	}
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return nil, fmt.Errorf("line %d: matcher must be a name or a single-key mapping", n.Line)
	}

	key, val := n.Content[0].Value, n.Content[1]
	spec.kind = key

	switch key {
	case "scene":
		if err := val.Decode(&spec.name); err != nil || spec.name == "" {
			return nil, fmt.Errorf("line %d: scene needs a name", n.Line)
		}

	case "px":
		var v struct {
			At     []int   `yaml:"at"`
			Colors [][]int `yaml:"colors"`
		}
		if err := decodeStrict(val, &v); err != nil {
			return nil, err
		}
		if len(v.Colors) == 0 {
			return nil, fmt.Errorf("line %d: px needs at least one color", n.Line)
		}
		at, err := parsePoint(v.At)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		spec.topLeft = at
		for _, c := range v.Colors {
			color, err := scene.ParseColor(c)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", n.Line, err)
			}
			spec.colors = append(spec.colors, color)
		}

	case "px_exact":
		var v struct {
			At    []int `yaml:"at"`
			Color []int `yaml:"color"`
		}
		if err := decodeStrict(val, &v); err != nil {
			return nil, err
		}
		at, err := parsePoint(v.At)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		color, err := scene.ParseColor(v.Color)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		spec.topLeft, spec.colors = at, []frame.Color{color}

	case "region":
		var v struct {
			From  []int   `yaml:"from"`
			To    []int   `yaml:"to"`
			Low   []int   `yaml:"low"`
			High  []int   `yaml:"high"`
			Ratio float64 `yaml:"ratio"`
		}
		if err := decodeStrict(val, &v); err != nil {
			return nil, err
		}
		var err error
		if spec.topLeft, spec.bottomRight, err = parseRect(v.From, v.To); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		if spec.low, err = parseHSV(v.Low); err != nil {
			return nil, fmt.Errorf("line %d: low: %w", n.Line, err)
		}
		if spec.high, err = parseHSV(v.High); err != nil {
			return nil, fmt.Errorf("line %d: high: %w", n.Line, err)
		}
		if v.Ratio < 0 {
			return nil, fmt.Errorf("line %d: ratio must not be negative", n.Line)
		}
		spec.ratio = v.Ratio

	case "text":
		var v struct {
			Expect string `yaml:"expect"`
			From   []int  `yaml:"from"`
			To     []int  `yaml:"to"`
			Invert bool   `yaml:"invert"`
		}
		if err := decodeStrict(val, &v); err != nil {
			return nil, err
		}
		var err error
		if spec.topLeft, spec.bottomRight, err = parseRect(v.From, v.To); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		spec.text, spec.invert = v.Expect, v.Invert

	case "all", "any":
		var items []yaml.Node
		if err := val.Decode(&items); err != nil || len(items) == 0 {
			return nil, fmt.Errorf("line %d: %s needs a list of matchers", n.Line, key)
		}
		for i := range items {
			child, err := d.parseMatcher(&items[i])
			if err != nil {
				return nil, err
			}
			spec.children = append(spec.children, child)
		}

	case "not":
		child, err := d.parseMatcher(val)
		if err != nil {
			return nil, err
		}
		spec.children = []*matcherSpec{child}

	case "expired":
		if err := val.Decode(&spec.name); err != nil {
			return nil, fmt.Errorf("line %d: expired needs a timer name", n.Line)
		}
		if _, ok := d.timers[spec.name]; !ok {
			return nil, fmt.Errorf("line %d: unknown timer %q", n.Line, spec.name)
		}

	case "count_at_least":
		var v struct {
			Counter string `yaml:"counter"`
			N       int    `yaml:"n"`
		}
		if err := decodeStrict(val, &v); err != nil {
			return nil, err
		}
		if _, ok := d.counters[v.Counter]; !ok {
			return nil, fmt.Errorf("line %d: unknown counter %q", n.Line, v.Counter)
		}
		spec.name, spec.n = v.Counter, v.N

	default:
		return nil, fmt.Errorf("line %d: unknown matcher %q", n.Line, key)
	}

	return spec, nil
}

type yamlAction struct {
	Press    *string `yaml:"press"`
	Duration string  `yaml:"duration"`
	Write    *string `yaml:"write"`
	Wait     *string `yaml:"wait"`
	Touch    []int   `yaml:"touch"`
	Exit     *int    `yaml:"exit"`
	Arm      *string `yaml:"arm"`
	After    string  `yaml:"after"`
	Incr     *string `yaml:"incr"`
	Reset    *string `yaml:"reset"`
}

func (d *definition) parseAction(n *yaml.Node) (*actionSpec, error) {
	var v yamlAction
	if err := decodeStrict(n, &v); err != nil {
		return nil, err
	}

	spec := &actionSpec{line: n.Line}
	var kinds []string
	set := func(kind string, ok bool) {
		if ok {
			kinds = append(kinds, kind)
			spec.kind = kind
		}
	}
	set("press", v.Press != nil)
	set("write", v.Write != nil)
	set("wait", v.Wait != nil)
	set("touch", v.Touch != nil)
	set("exit", v.Exit != nil)
	set("arm", v.Arm != nil)
	set("incr", v.Incr != nil)
	set("reset", v.Reset != nil)
	if len(kinds) != 1 {
		return nil, fmt.Errorf("line %d: action needs exactly one of press, write, wait, touch, exit, arm, incr, reset; got %v", n.Line, kinds)
	}
	if v.Duration != "" && spec.kind != "press" {
		return nil, fmt.Errorf("line %d: duration only applies to press", n.Line)
	}
	if v.After != "" && spec.kind != "arm" {
		return nil, fmt.Errorf("line %d: after only applies to arm", n.Line)
	}

	var err error
	switch spec.kind {
	case "press":
		spec.button = *v.Press
		if spec.button == "" {
			return nil, fmt.Errorf("line %d: press needs a button", n.Line)
		}
		spec.duration = action.DefaultPressDuration
		if v.Duration != "" {
			if spec.duration, err = parseDuration(v.Duration); err != nil {
				return nil, fmt.Errorf("line %d: %w", n.Line, err)
			}
		}
	case "write":
		spec.button = *v.Write
		if spec.button == "" {
			return nil, fmt.Errorf("line %d: write needs bytes", n.Line)
		}
	case "wait":
		if spec.duration, err = parseDuration(*v.Wait); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
	case "touch":
		if len(v.Touch) != 2 {
			return nil, fmt.Errorf("line %d: touch needs [x, y]", n.Line)
		}
		spec.x, spec.y = v.Touch[0], v.Touch[1]
		if _, err := action.TouchBytes(spec.x, spec.y); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
	case "exit":
		spec.code = *v.Exit
	case "arm":
		spec.name = *v.Arm
		if _, ok := d.timers[spec.name]; !ok {
			return nil, fmt.Errorf("line %d: unknown timer %q", n.Line, spec.name)
		}
		if v.After == "" {
			return nil, fmt.Errorf("line %d: arm needs after", n.Line)
		}
		if spec.duration, err = parseDuration(v.After); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
	case "incr", "reset":
		if spec.kind == "incr" {
			spec.name = *v.Incr
		} else {
			spec.name = *v.Reset
		}
		if _, ok := d.counters[spec.name]; !ok {
			return nil, fmt.Errorf("line %d: unknown counter %q", n.Line, spec.name)
		}
	}

	return spec, nil
}

func parsePoint(v []int) (frame.Point, error) {
	if len(v) != 2 {
		return frame.Point{}, fmt.Errorf("point needs [y, x], got %v", v)
	}
	p := frame.Pt(v[0], v[1])
	if p.Y < 0 || p.X < 0 || p.Y > frame.CanonicalHeight || p.X > frame.CanonicalWidth {
		return frame.Point{}, fmt.Errorf("point %v outside %dx%d", p, frame.CanonicalWidth, frame.CanonicalHeight)
	}
	return p, nil
}

func parseRect(from, to []int) (frame.Point, frame.Point, error) {
	tl, err := parsePoint(from)
	if err != nil {
		return frame.Point{}, frame.Point{}, fmt.Errorf("from: %w", err)
	}
	br, err := parsePoint(to)
	if err != nil {
		return frame.Point{}, frame.Point{}, fmt.Errorf("to: %w", err)
	}
	return tl, br, nil
}

func parseHSV(v []int) (frame.HSV, error) {
	if len(v) != 3 {
		return frame.HSV{}, fmt.Errorf("hsv needs [h, s, v], got %v", v)
	}
	if v[0] < 0 || v[0] > frame.MaxHue {
		return frame.HSV{}, fmt.Errorf("hue %d out of range [0, %d]", v[0], frame.MaxHue)
	}
	for _, c := range v[1:] {
		if c < 0 || c > 255 {
			return frame.HSV{}, fmt.Errorf("hsv component %d out of range", c)
		}
	}
	return frame.HSV{H: uint8(v[0]), S: uint8(v[1]), V: uint8(v[2])}, nil
}

// compiler turns specs into live matchers and actions for one build.
type compiler struct {
	env      *Env
	timers   map[string]*timer.Timeout
	counters map[string]*timer.Counter
}

func (d *definition) build(env *Env) (graph.States[string], error) {
	c := &compiler{
		env:      env,
		timers:   make(map[string]*timer.Timeout, len(d.timers)),
		counters: make(map[string]*timer.Counter, len(d.counters)),
	}
	for name := range d.timers {
		c.timers[name] = timer.NewTimeout(env.Clock)
	}
	for name := range d.counters {
		c.counters[name] = &timer.Counter{}
	}

	states := make(graph.States[string], len(d.states))
	for state, specs := range d.states {
		rules := make([]graph.Rule[string], 0, len(specs))
		for _, spec := range specs {
			m, err := c.matcher(spec.match)
			if err != nil {
				return nil, fmt.Errorf("state %s: %w", state, err)
			}
			var a action.Action
			if len(spec.actions) > 0 {
				acts := make([]action.Action, len(spec.actions))
				for i, as := range spec.actions {
					acts[i] = c.action(as)
				}
				a = action.Do(acts...)
			}
			rules = append(rules, graph.On(m, a, spec.next))
		}
		states[state] = rules
	}
	return states, nil
}

func (c *compiler) matcher(s *matcherSpec) (match.Matcher, error) {
	switch s.kind {
	case "always":
		return match.Always, nil
	case "never":
		return match.Never, nil
	case "scene":
		sc := c.env.Scenes.Get(s.name)
		if sc == nil {
			return nil, fmt.Errorf("line %d: unknown scene %q", s.line, s.name)
		}
		return sc.Matcher(), nil
	case "px":
		return match.Px(s.topLeft, s.colors...), nil
	case "px_exact":
		return match.PxExact(s.topLeft, s.colors[0]), nil
	case "region":
		return match.RegionColorish(s.topLeft, s.bottomRight, s.low, s.high, s.ratio), nil
	case "text":
		if c.env.OCR == nil {
			return nil, fmt.Errorf("line %d: text matcher needs an OCR reader", s.line)
		}
		return match.Text(c.env.OCR, s.text, s.topLeft, s.bottomRight, s.invert), nil
	case "all", "any", "not":
		children := make([]match.Matcher, len(s.children))
		for i, cs := range s.children {
			m, err := c.matcher(cs)
			if err != nil {
				return nil, err
			}
			children[i] = m
		}
		switch s.kind {
		case "all":
			return match.All(children...), nil
		case "any":
			return match.Any(children...), nil
		default:
			return match.Not(children[0]), nil
		}
	case "expired":
		return c.timers[s.name].Expired(), nil
	case "count_at_least":
		return c.counters[s.name].AtLeast(s.n), nil
	}
	return nil, fmt.Errorf("line %d: unknown matcher %q", s.line, s.kind)
}

func (c *compiler) action(s *actionSpec) action.Action {
	switch s.kind {
	case "press":
		return action.PressFor(s.button, s.duration)
	case "write":
		return action.Write(s.button)
	case "wait":
		return action.Wait(s.duration)
	case "touch":
		return action.Touch(s.x, s.y)
	case "exit":
		return action.Exit(s.code)
	case "arm":
		return c.timers[s.name].After(s.duration)
	case "incr":
		return c.counters[s.name].Incr()
	default:
		return c.counters[s.name].Reset()
	}
}

// Package graph holds the declarative state graph a script is built from:
// each state maps to an ordered list of rules, and each rule names the state
// to move to once its matcher fires and its action completes.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"autopad-go/domain/action"
	"autopad-go/domain/match"
)

// Terminal is the conventional sentinel target for string graphs. Rules
// leading to it must terminate through their action (action.Exit) before the
// runner would move there.
const Terminal = "TERMINAL"

// Rule is one guarded transition. Rule order within a state is priority.
type Rule[S comparable] struct {
	Matcher match.Matcher
	Action  action.Action
	Next    S
}

// On builds a rule; a nil action becomes action.Nothing.
func On[S comparable](m match.Matcher, a action.Action, next S) Rule[S] {
	if a == nil {
		a = action.Nothing
	}
	return Rule[S]{Matcher: m, Action: a, Next: next}
}

// States maps each state to its ordered rules.
type States[S comparable] map[S][]Rule[S]

// Merge combines several state maps. A state defined twice is an error.
func Merge[S comparable](parts ...States[S]) (States[S], error) {
	out := make(States[S])
	for _, p := range parts {
		for k, rules := range p {
			if _, dup := out[k]; dup {
				return nil, fmt.Errorf("duplicate state %v", k)
			}
			out[k] = rules
		}
	}
	return out, nil
}

// ValidationError lists every referential-integrity violation of a graph.
type ValidationError struct {
	// Missing are rule targets that are neither a state nor the terminal.
	Missing []string
	// Unused are states that no rule leads to.
	Unused []string
	// Reserved is the terminal sentinel when it is also used as a state.
	Reserved string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing states: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unused) > 0 {
		parts = append(parts, "unused states: "+strings.Join(e.Unused, ", "))
	}
	if e.Reserved != "" {
		parts = append(parts, "terminal "+e.Reserved+" used as a state")
	}
	return "invalid state graph: " + strings.Join(parts, "; ")
}

// Graph is a validated state map plus its terminal sentinel.
type Graph[S comparable] struct {
	states   States[S]
	terminal S
}

// New validates states once: every rule target must be a state or terminal,
// every state must be some rule's target, and terminal must not be a state. The initial state therefore
// needs a rule leading back to it.
func New[S comparable](states States[S], terminal S) (*Graph[S], error) {
	targets := make(map[S]struct{})
	missing := make(map[string]struct{})
	for _, rules := range states {
		for _, r := range rules {
			targets[r.Next] = struct{}{}
			if r.Next == terminal {
				continue
			}
			if _, ok := states[r.Next]; !ok {
				missing[fmt.Sprint(r.Next)] = struct{}{}
			}
		}
	}

	var unused []string
	for k := range states {
		if _, ok := targets[k]; !ok {
			unused = append(unused, fmt.Sprint(k))
		}
	}

	var reserved string
	if _, ok := states[terminal]; ok {
		reserved = fmt.Sprint(terminal)
	}

	if len(missing) > 0 || len(unused) > 0 || reserved != "" {
		return nil, &ValidationError{Missing: sortedKeys(missing), Unused: sortStrings(unused), Reserved: reserved}
	}
	return &Graph[S]{states: states, terminal: terminal}, nil
}

// Rules returns the ordered rules of s and whether s is a state.
func (g *Graph[S]) Rules(s S) ([]Rule[S], bool) {
	rules, ok := g.states[s]
	return rules, ok
}

// Has reports whether s is a state of the graph.
func (g *Graph[S]) Has(s S) bool {
	_, ok := g.states[s]
	return ok
}

// Terminal returns the sentinel target.
func (g *Graph[S]) Terminal() S {
	return g.terminal
}

// Len returns the number of states.
func (g *Graph[S]) Len() int {
	return len(g.states)
}

// Names returns every state rendered with fmt.Sprint, sorted.
func (g *Graph[S]) Names() []string {
	names := make([]string, 0, len(g.states))
	for k := range g.states {
		names = append(names, fmt.Sprint(k))
	}
	return sortStrings(names)
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return sortStrings(out)
}

func sortStrings(s []string) []string {
	sort.Strings(s)
	return s
}

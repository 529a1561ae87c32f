package script

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages script definitions and provides lookup functionality.
type Registry struct {
	scripts map[string]*Script
	mu      sync.RWMutex
}

// NewRegistry creates a new empty script registry.
func NewRegistry() *Registry {
	return &Registry{
		scripts: make(map[string]*Script),
	}
}

// Register adds a script to the registry. Names are unique across built-in
// and file scripts.
func (r *Registry) Register(script *Script) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.scripts[script.Name]; ok {
		return fmt.Errorf("script %s from %s already registered from %s", script.Name, script.Source, prev.Source)
	}
	r.scripts[script.Name] = script
	return nil
}

// Get retrieves a script by name.
// Returns nil if not found.
func (r *Registry) Get(name string) *Script {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scripts[name]
}

// List returns all registered script names, sorted alphabetically.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.scripts))
	for name := range r.scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns all registered scripts sorted by name.
func (r *Registry) All() []*Script {
	r.mu.RLock()
	defer r.mu.RUnlock()

	scripts := make([]*Script, 0, len(r.scripts))
	for _, script := range r.scripts {
		scripts = append(scripts, script)
	}
	sort.Slice(scripts, func(i, j int) bool { return scripts[i].Name < scripts[j].Name })
	return scripts
}

// Count returns the number of registered scripts.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scripts)
}

// Exists checks if a script with the given name exists.
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.scripts[name]
	return ok
}

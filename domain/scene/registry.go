package scene

import (
	"sort"
	"sync"

	"autopad-go/domain/frame"
)

// Registry manages scene definitions and provides lookup functionality.
type Registry struct {
	scenes map[string]*Scene
	mu     sync.RWMutex
}

// NewRegistry creates a new empty scene registry.
func NewRegistry() *Registry {
	return &Registry{
		scenes: make(map[string]*Scene),
	}
}

// Register adds a scene to the registry.
// If a scene with the same name exists, it will be replaced.
func (r *Registry) Register(scene *Scene) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scenes[scene.Name] = scene
}

// Get retrieves a scene by name.
// Returns nil if not found.
func (r *Registry) Get(name string) *Scene {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scenes[name]
}

// GetByCategory returns all scenes in a specific category, sorted by name.
func (r *Registry) GetByCategory(category string) []*Scene {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Scene
	for _, scene := range r.scenes {
		if scene.Category == category {
			result = append(result, scene)
		}
	}
	sortScenes(result)
	return result
}

// List returns all registered scene names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.scenes))
	for name := range r.scenes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered scenes.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scenes)
}

// FindAllMatches returns every scene f shows, sorted by name.
func (r *Registry) FindAllMatches(f *frame.Frame) []*Scene {
	if f == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []*Scene
	for _, scene := range r.scenes {
		if scene.Match(f) {
			matches = append(matches, scene)
		}
	}
	sortScenes(matches)
	return matches
}

func sortScenes(scenes []*Scene) {
	sort.Slice(scenes, func(i, j int) bool { return scenes[i].Name < scenes[j].Name })
}

package scene

import (
	"errors"
	"fmt"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"

	"autopad-go/domain/frame"
)

// yamlSceneDefinition is the YAML structure for scene definitions.
type yamlSceneDefinition struct {
	Category string      `yaml:"category"`
	Scenes   []yamlScene `yaml:"scenes"`
}

type yamlScene struct {
	Name   string      `yaml:"name"`
	Points []yamlPoint `yaml:"points"`
}

type yamlPoint struct {
	Y     int   `yaml:"y"`
	X     int   `yaml:"x"`
	Color []int `yaml:"color"`
}

// Loader handles loading scene definitions from various sources.
type Loader struct {
	registry *Registry
}

// NewLoader creates a new scene loader that populates the given registry.
func NewLoader(registry *Registry) *Loader {
	return &Loader{registry: registry}
}

// LoadFromFS loads scene definitions from an embedded or real filesystem.
// It expects YAML files in a "scenes" subdirectory; a missing directory
// loads nothing.
func (l *Loader) LoadFromFS(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, "scenes")
	if err != nil {
		if isNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read scenes directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".yaml" {
			continue
		}

		if err := l.loadFile(fsys, "scenes/"+entry.Name()); err != nil {
			return err
		}
	}

	return nil
}

// loadFile loads a single scene definition file.
func (l *Loader) loadFile(fsys fs.FS, name string) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("failed to read scene file %s: %w", name, err)
	}

	var def yamlSceneDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return fmt.Errorf("failed to parse scene file %s: %w", name, err)
	}

	for i := range def.Scenes {
		scene, err := convertYAMLScene(&def.Scenes[i], def.Category)
		if err != nil {
			return fmt.Errorf("invalid scene in %s: %w", name, err)
		}
		l.registry.Register(scene)
	}

	return nil
}

// convertYAMLScene converts a YAML scene to a domain Scene.
func convertYAMLScene(ys *yamlScene, category string) (*Scene, error) {
	if ys.Name == "" {
		return nil, errors.New("scene without a name")
	}
	if len(ys.Points) == 0 {
		return nil, fmt.Errorf("scene %s has no points", ys.Name)
	}

	scene := &Scene{
		Name:     ys.Name,
		Category: category,
		Points:   make([]Point, len(ys.Points)),
	}

	for i, yp := range ys.Points {
		c, err := ParseColor(yp.Color)
		if err != nil {
			return nil, fmt.Errorf("scene %s point %d: %w", ys.Name, i, err)
		}
		scene.Points[i] = Point{Y: yp.Y, X: yp.X, Color: c}
	}

	return scene, nil
}

// ParseColor converts an [r, g, b] triple.
func ParseColor(v []int) (frame.Color, error) {
	if len(v) != 3 {
		return frame.Color{}, fmt.Errorf("color needs 3 components, got %d", len(v))
	}
	for _, c := range v {
		if c < 0 || c > 255 {
			return frame.Color{}, fmt.Errorf("color component %d out of range", c)
		}
	}
	return frame.RGB(uint8(v[0]), uint8(v[1]), uint8(v[2])), nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

package knowledge

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Outline is one authored curriculum node. A curriculum file is a single
// Outline tree rooted at a subject.
type Outline struct {
	ID       string    `yaml:"id"`
	Name     string    `yaml:"name"`
	Level    Level     `yaml:"level"`
	Weight   float64   `yaml:"weight,omitempty"`
	Children []Outline `yaml:"children,omitempty"`
}

//go:embed default_curriculum.yaml
var defaultCurriculum []byte

// DefaultCurriculum returns the built-in mathematics curriculum.
func DefaultCurriculum() Outline {
	outline, err := Parse(defaultCurriculum)
	if err != nil {
		panic(fmt.Sprintf("knowledge: embedded curriculum is invalid: %v", err))
	}
	return outline
}

// Parse decodes and validates a YAML curriculum.
func Parse(data []byte) (Outline, error) {
	var outline Outline
	if err := yaml.Unmarshal(data, &outline); err != nil {
		return Outline{}, fmt.Errorf("parse curriculum: %w", err)
	}
	if err := validateOutline(outline); err != nil {
		return Outline{}, err
	}
	return outline, nil
}

// LoadFile reads a curriculum from path. An empty path yields the
// built-in curriculum.
func LoadFile(path string) (Outline, error) {
	if path == "" {
		return DefaultCurriculum(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Outline{}, fmt.Errorf("read curriculum %s: %w", path, err)
	}
	return Parse(data)
}

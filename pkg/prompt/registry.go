package prompt

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"domstudio/pkg/domain"
)

var (
	// ErrInvalidModuleType signals a lookup for a module type outside the
	// closed set. There is deliberately no fallback template.
	ErrInvalidModuleType = errors.New("invalid module type")
	// ErrMissingBaseScript signals an empty base script; generation cannot
	// proceed without source material.
	ErrMissingBaseScript = errors.New("base script is empty")
)

// Registry maps every module type to its instruction block.
type Registry struct {
	templates map[domain.ModuleType]string
}

// NewRegistry builds a registry preloaded with the built-in templates.
func NewRegistry() *Registry {
	templates := make(map[domain.ModuleType]string, len(defaultTemplates))
	for mt, text := range defaultTemplates {
		templates[mt] = text
	}
	return &Registry{templates: templates}
}

// LoadFile overrides template texts from a YAML file mapping module type to
// text. Unknown keys and empty texts are rejected; module types absent from
// the file keep their built-in text.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read templates file: %w", err)
	}
	var overrides map[string]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("parse templates file: %w", err)
	}
	for raw, text := range overrides {
		mt, ok := domain.ParseModuleType(raw)
		if !ok {
			return fmt.Errorf("templates file: %w: %q", ErrInvalidModuleType, raw)
		}
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("templates file: empty template for %q", raw)
		}
		r.templates[mt] = text
	}
	return nil
}

// Template returns the instruction block for a module type.
func (r *Registry) Template(mt domain.ModuleType) (string, error) {
	text, ok := r.templates[mt]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidModuleType, string(mt))
	}
	return text, nil
}

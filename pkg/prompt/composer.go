package prompt

import (
	"strings"

	"domstudio/pkg/domain"
)

// Prompt is a composed chat-completion payload: a system message carrying the
// universe rules plus per-module instructions, and a user message carrying the
// episode material.
type Prompt struct {
	System string
	User   string
}

// Composer builds generation prompts from a template registry.
type Composer struct {
	registry *Registry
}

// NewComposer wires a composer to a registry.
func NewComposer(registry *Registry) *Composer {
	return &Composer{registry: registry}
}

// Compose builds the prompt for one (episode, module type) pair. It is a pure
// function of its inputs: identical arguments yield byte-identical prompts.
func (c *Composer) Compose(title, baseScript string, mt domain.ModuleType) (Prompt, error) {
	template, err := c.registry.Template(mt)
	if err != nil {
		return Prompt{}, err
	}
	if strings.TrimSpace(baseScript) == "" {
		return Prompt{}, ErrMissingBaseScript
	}
	if strings.TrimSpace(title) == "" {
		title = "Sem título"
	}

	var system strings.Builder
	system.WriteString(universeRules)
	system.WriteString("\n\n")
	system.WriteString(template)
	system.WriteString("\n\n")
	system.WriteString(outputDiscipline)

	var user strings.Builder
	user.WriteString("Título do Episódio: ")
	user.WriteString(title)
	user.WriteString("\n\nRoteiro Base:\n")
	user.WriteString(baseScript)

	return Prompt{System: system.String(), User: user.String()}, nil
}

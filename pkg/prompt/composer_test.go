package prompt

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"domstudio/pkg/domain"
)

func TestRegistryCoversEveryModuleType(t *testing.T) {
	reg := NewRegistry()
	seen := make(map[string]bool)
	for _, mt := range domain.ModuleTypes() {
		text, err := reg.Template(mt)
		if err != nil {
			t.Fatalf("template for %s: %v", mt, err)
		}
		if strings.TrimSpace(text) == "" {
			t.Fatalf("template for %s is empty", mt)
		}
		if seen[text] {
			t.Fatalf("template for %s duplicates another module's text", mt)
		}
		seen[text] = true
	}
}

func TestRegistryRejectsUnknownModuleType(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Template(domain.ModuleType("roteiro_novela")); !errors.Is(err, ErrInvalidModuleType) {
		t.Fatalf("expected ErrInvalidModuleType, got %v", err)
	}
}

func TestRegistryLoadFileOverridesOneTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	if err := os.WriteFile(path, []byte("prompt_visual: |\n  custom visual instructions\n"), 0o600); err != nil {
		t.Fatalf("write templates file: %v", err)
	}
	reg := NewRegistry()
	if err := reg.LoadFile(path); err != nil {
		t.Fatalf("load file: %v", err)
	}
	text, err := reg.Template(domain.ModulePromptVisual)
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	if !strings.Contains(text, "custom visual instructions") {
		t.Fatalf("override not applied, got %q", text)
	}
	// Other modules keep their built-in text.
	original, err := reg.Template(domain.ModuleRoteiroCompleto)
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	if original != defaultTemplates[domain.ModuleRoteiroCompleto] {
		t.Fatalf("unrelated template changed")
	}
}

func TestRegistryLoadFileRejectsUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	if err := os.WriteFile(path, []byte("roteiro_novela: something\n"), 0o600); err != nil {
		t.Fatalf("write templates file: %v", err)
	}
	reg := NewRegistry()
	if err := reg.LoadFile(path); !errors.Is(err, ErrInvalidModuleType) {
		t.Fatalf("expected ErrInvalidModuleType, got %v", err)
	}
}

func TestComposeIsPureAndStructured(t *testing.T) {
	c := NewComposer(NewRegistry())
	first, err := c.Compose("Dom e a Lagoa", "Dom encontra uma lagoa brilhante.", domain.ModuleRoteiroLivro)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	second, err := c.Compose("Dom e a Lagoa", "Dom encontra uma lagoa brilhante.", domain.ModuleRoteiroLivro)
	if err != nil {
		t.Fatalf("compose again: %v", err)
	}
	if first != second {
		t.Fatalf("identical inputs produced different prompts")
	}
	if !strings.Contains(first.System, universeRules) {
		t.Fatalf("system prompt missing universe rules")
	}
	if !strings.Contains(first.System, "🟦") {
		t.Fatalf("book template system prompt missing page marker")
	}
	if !strings.Contains(first.User, "Título do Episódio: Dom e a Lagoa") {
		t.Fatalf("user prompt missing title, got %q", first.User)
	}
	if !strings.Contains(first.User, "Roteiro Base:\nDom encontra uma lagoa brilhante.") {
		t.Fatalf("user prompt missing base script, got %q", first.User)
	}
}

func TestComposePromptsDifferPerModule(t *testing.T) {
	c := NewComposer(NewRegistry())
	systems := make(map[string]domain.ModuleType)
	for _, mt := range domain.ModuleTypes() {
		p, err := c.Compose("Dom e a Lagoa", "Dom encontra uma lagoa.", mt)
		if err != nil {
			t.Fatalf("compose %s: %v", mt, err)
		}
		if prev, dup := systems[p.System]; dup {
			t.Fatalf("modules %s and %s composed identical system prompts", prev, mt)
		}
		systems[p.System] = mt
	}
}

func TestComposeRejectsBlankBaseScript(t *testing.T) {
	c := NewComposer(NewRegistry())
	for _, script := range []string{"", "   ", "\n\t"} {
		if _, err := c.Compose("Dom e a Lagoa", script, domain.ModulePromptVisual); !errors.Is(err, ErrMissingBaseScript) {
			t.Fatalf("script %q: expected ErrMissingBaseScript, got %v", script, err)
		}
	}
}

func TestComposeDefaultsMissingTitle(t *testing.T) {
	c := NewComposer(NewRegistry())
	p, err := c.Compose("  ", "Dom encontra uma lagoa.", domain.ModulePromptVisual)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if !strings.Contains(p.User, "Título do Episódio: Sem título") {
		t.Fatalf("expected placeholder title, got %q", p.User)
	}
}

package exporter

import (
	"fmt"
	"strings"

	"domstudio/pkg/domain"
)

// moduleLabels maps module types to the headings used in export documents.
var moduleLabels = map[domain.ModuleType]string{
	domain.ModulePromptVisual:     "Prompt Visual",
	domain.ModuleRoteiroCompleto:  "Roteiro Completo",
	domain.ModuleRoteiroCena:      "Roteiro por Cena",
	domain.ModuleRoteiroLivro:     "Roteiro do Livro Ilustrado",
	domain.ModuleRoteiroAudiobook: "Roteiro de Audiobook",
}

func moduleLabel(mt domain.ModuleType) string {
	if label, ok := moduleLabels[mt]; ok {
		return label
	}
	return string(mt)
}

// orderContent sorts generated content into the canonical module display
// order, dropping nothing.
func orderContent(items []domain.GeneratedContent) []domain.GeneratedContent {
	byType := make(map[domain.ModuleType]domain.GeneratedContent, len(items))
	for _, item := range items {
		byType[item.ModuleType] = item
	}
	ordered := make([]domain.GeneratedContent, 0, len(items))
	for _, mt := range domain.ModuleTypes() {
		if item, ok := byType[mt]; ok {
			ordered = append(ordered, item)
		}
	}
	return ordered
}

func renderMarkdown(episode domain.Episode, items []domain.GeneratedContent) string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "# %s\n", episode.Title)
	if episode.Description != "" {
		fmt.Fprintf(&buf, "\n%s\n", episode.Description)
	}
	for _, item := range orderContent(items) {
		fmt.Fprintf(&buf, "\n## %s\n\n%s\n", moduleLabel(item.ModuleType), strings.TrimSpace(item.Content))
	}
	return buf.String()
}

func renderText(episode domain.Episode, items []domain.GeneratedContent) string {
	var buf strings.Builder
	buf.WriteString(episode.Title + "\n")
	buf.WriteString(strings.Repeat("=", len([]rune(episode.Title))) + "\n")
	if episode.Description != "" {
		buf.WriteString("\n" + episode.Description + "\n")
	}
	for _, item := range orderContent(items) {
		label := moduleLabel(item.ModuleType)
		buf.WriteString("\n" + label + "\n")
		buf.WriteString(strings.Repeat("-", len([]rune(label))) + "\n\n")
		buf.WriteString(strings.TrimSpace(item.Content) + "\n")
	}
	return buf.String()
}

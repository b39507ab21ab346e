package app

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

// maxScriptBytes caps uploaded script files. Base scripts are short prose;
// anything larger is almost certainly the wrong file.
const maxScriptBytes = 1 << 20

// ImportBaseScript extracts text from an uploaded file and replaces the
// episode's base script with it.
func (a *App) ImportBaseScript(userID, episodeID, filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", validationError("file is empty")
	}
	if len(data) > maxScriptBytes {
		return "", validationError("file too large; base scripts are capped at 1 MiB")
	}
	episode, err := a.loadEpisode(userID, episodeID, accessEdit)
	if err != nil {
		return "", err
	}
	text, err := extractScript(filename, data)
	if err != nil {
		return "", validationError("%s", err.Error())
	}
	if text == "" {
		return "", validationError("no text could be extracted from the file")
	}
	episode.BaseScript = text
	if err := a.store.UpdateEpisode(episode); err != nil {
		return "", persistenceError(err)
	}
	return text, nil
}

func extractScript(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return extractPDF(data)
	case ".html", ".htm":
		return extractHTML(data)
	case ".txt", ".md", "":
		return normalizeScript(string(data)), nil
	default:
		return "", fmt.Errorf("unsupported file type %q; use txt, md, pdf or html", filepath.Ext(filename))
	}
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	var buf strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip problematic pages instead of failing entirely.
			continue
		}
		buf.WriteString(text)
		buf.WriteString("\n\n")
	}
	text := normalizeScript(buf.String())
	if text == "" {
		return "", fmt.Errorf("no text extracted from pdf")
	}
	return text, nil
}

func extractHTML(data []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.TextNode:
			buf.WriteString(node.Data)
		case html.ElementNode:
			if node.Data == "script" || node.Data == "style" {
				return
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if node.Type == html.ElementNode {
			switch node.Data {
			case "p", "br", "div", "li", "h1", "h2", "h3":
				buf.WriteString("\n")
			}
		}
	}
	walk(doc)
	return normalizeScript(buf.String()), nil
}

// normalizeScript cleans extracted text while keeping paragraph structure,
// which the prompt composer relies on.
func normalizeScript(text string) string {
	text = strings.ReplaceAll(text, "\x00", " ")
	text = strings.ToValidUTF8(text, "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	var out []string
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(strings.Join(strings.Fields(line), " "), " ")
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

package notes

import (
	"bytes"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Raw HTML passthrough stays off, so chat text can't inject markup.
var chatMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
)

// RenderMarkdown converts chat text to HTML
func RenderMarkdown(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := chatMarkdown.Convert([]byte(content), &buf); err != nil {
		return "<p>" + html.EscapeString(content) + "</p>"
	}
	return buf.String()
}

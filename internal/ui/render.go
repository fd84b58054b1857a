package ui

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
	),
)

// RenderHTML turns a summary into HTML where every newline becomes a <br>.
// Raw HTML in the summary is never passed through.
func RenderHTML(text string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return strings.ReplaceAll(template.HTMLEscapeString(text), "\n", "<br>")
	}
	return strings.Trim(buf.String(), " \t\n\r")
}

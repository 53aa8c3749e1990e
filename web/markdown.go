// ABOUTME: Markdown rendering for agent outputs shown as formatted HTML in the browser.
// ABOUTME: Raw HTML in agent text is omitted by the renderer rather than passed through.
package web

import (
	"bytes"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderMarkdown converts markdown to HTML, falling back to escaped text.
func RenderMarkdown(input string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(input), &buf); err != nil {
		return template.HTMLEscapeString(input)
	}
	return buf.String()
}

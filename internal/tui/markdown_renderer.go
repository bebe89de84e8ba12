package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// defaultMarkdownStyle is the glamour standard style used for descriptions.
const defaultMarkdownStyle = "dark"

// markdownRenderer renders task descriptions and rebuilds the glamour renderer
// only when the wrap width or style changes.
type markdownRenderer struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
}

// render converts markdown into styled terminal text wrapped to width. Input
// glamour cannot render is returned unchanged.
func (r *markdownRenderer) render(markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}
	style := r.style
	if style == "" {
		style = defaultMarkdownStyle
	}
	wrapWidth := max(width, 24)

	if r.renderer == nil || r.width != wrapWidth || r.style != style {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return markdown
		}
		r.renderer = renderer
		r.width = wrapWidth
		r.style = style
	}

	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.Trim(rendered, "\n")
}

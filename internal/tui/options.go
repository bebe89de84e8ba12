package tui

import (
	"context"
	"time"
)

// Option configures a Model.
type Option func(*Model)

// WithContext sets the context passed to session saves.
func WithContext(ctx context.Context) Option {
	return func(m *Model) {
		if ctx != nil {
			m.ctx = ctx
		}
	}
}

// WithMarkdown toggles markdown rendering of task descriptions.
func WithMarkdown(enabled bool) Option {
	return func(m *Model) {
		m.renderMarkdown = enabled
	}
}

// WithMarkdownStyle selects a glamour standard style such as "dark" or "light".
func WithMarkdownStyle(style string) Option {
	return func(m *Model) {
		m.markdown.style = style
	}
}

// WithNoticeDuration sets how long notices stay visible. Zero keeps them until
// the next notice replaces them.
func WithNoticeDuration(d time.Duration) Option {
	return func(m *Model) {
		if d >= 0 {
			m.noticeTTL = d
		}
	}
}

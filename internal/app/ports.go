package app

import (
	"context"

	"github.com/evanschultz/tuikan/internal/domain"
)

// Store persists the complete application state.
type Store interface {
	// Load returns ErrStateNotFound when nothing has been saved yet and an
	// error wrapping ErrCorruptState when saved data cannot be decoded.
	Load(context.Context) (domain.State, error)
	// Save durably replaces the stored state. Failures wrap ErrSaveFailed.
	Save(context.Context, domain.State) error
}

// LegacySource reads the pre-project single-board file. It returns
// ErrStateNotFound when the file does not exist.
type LegacySource interface {
	ReadLegacy(context.Context) ([]byte, error)
}

// Clipboard receives copied text.
type Clipboard interface {
	WriteAll(text string) error
}

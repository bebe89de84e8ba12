package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/evanschultz/tuikan/internal/app"
)

// LegacyFile reads the single-board file written by earlier releases.
type LegacyFile struct {
	Path string
}

// ReadLegacy returns the raw legacy document, or app.ErrStateNotFound when
// there is none.
func (l LegacyFile) ReadLegacy(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(l.Path) == "" {
		return nil, app.ErrStateNotFound
	}
	data, err := os.ReadFile(l.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, app.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read legacy board: %w", err)
	}
	return data, nil
}

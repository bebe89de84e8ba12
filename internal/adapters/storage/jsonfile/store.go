// Package jsonfile persists the board state as a JSON document on disk.
package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanschultz/tuikan/internal/app"
	"github.com/evanschultz/tuikan/internal/domain"
	"github.com/google/uuid"
)

// corruptStampLayout names quarantined copies; it sorts lexically by time.
const corruptStampLayout = "20060102T150405Z"

// Store reads and writes the state file.
type Store struct {
	path string
	now  func() time.Time
}

// New constructs a store for the state file at path.
func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("state path is required")
	}
	return &Store{path: path, now: time.Now}, nil
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the state file. A file that cannot be decoded is renamed aside and
// reported as app.ErrCorruptState.
func (s *Store) Load(ctx context.Context) (domain.State, error) {
	if err := ctx.Err(); err != nil {
		return domain.State{}, err
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.State{}, app.ErrStateNotFound
	}
	if err != nil {
		return domain.State{}, fmt.Errorf("read state file: %w", err)
	}
	st, decodeErr := app.DecodeState(data)
	if decodeErr == nil {
		return st, nil
	}
	aside, err := s.quarantine()
	if err != nil {
		return domain.State{}, fmt.Errorf("%w (could not move it aside: %v)", decodeErr, err)
	}
	return domain.State{}, fmt.Errorf("moved to %s: %w", aside, decodeErr)
}

// quarantine renames the current file to <name>.corrupt-<timestamp>.
func (s *Store) quarantine() (string, error) {
	aside := fmt.Sprintf("%s.corrupt-%s", s.path, s.now().UTC().Format(corruptStampLayout))
	if _, err := os.Stat(aside); err == nil {
		aside = aside + "-" + uuid.NewString()[:8]
	}
	if err := os.Rename(s.path, aside); err != nil {
		return "", err
	}
	return aside, nil
}

// ListQuarantined returns the set-aside copies of the state file, oldest first.
func (s *Store) ListQuarantined(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := filepath.Dir(s.path)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list state dir: %w", err)
	}
	prefix := filepath.Base(s.path) + ".corrupt-"
	var out []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && strings.HasPrefix(entry.Name(), prefix) {
			out = append(out, filepath.Join(dir, entry.Name()))
		}
	}
	return out, nil
}

// Save atomically replaces the state file.
func (s *Store) Save(ctx context.Context, st domain.State) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", app.ErrSaveFailed, err)
	}
	data, err := app.EncodeState(st)
	if err != nil {
		return fmt.Errorf("%w: %w", app.ErrSaveFailed, err)
	}
	if err := writeFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %w", app.ErrSaveFailed, err)
	}
	return nil
}

// writeFileAtomic writes data to a temporary sibling and renames it over path.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmpName := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	tmp, err := os.OpenFile(tmpName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	committed = true
	syncDir(dir)
	return nil
}

// syncDir flushes the directory entry; not every platform supports it.
func syncDir(dir string) {
	f, err := os.Open(dir)
	if err != nil {
		return
	}
	defer f.Close()
	_ = f.Sync()
}

package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/evanschultz/tuikan/internal/domain"
)

// fakeClipboard records copied text.
type fakeClipboard struct {
	text string
	err  error
}

func (f *fakeClipboard) WriteAll(text string) error {
	if f.err != nil {
		return f.err
	}
	f.text = text
	return nil
}

func pressAll(s *Session, names ...string) Outcome {
	var out Outcome
	for _, name := range names {
		out = s.HandleKey(context.Background(), KeyPress(name))
	}
	return out
}

func TestSessionSavesAfterMutation(t *testing.T) {
	st, _ := boardState(t, "first")
	store := &memStore{}
	s := NewSession(st, store, WithLogger(quietLogger()))

	pressAll(s, "j", "k", "l", "h")
	if store.saves != 0 {
		t.Fatalf("navigation must not save, got %d saves", store.saves)
	}
	pressAll(s, "m")
	if store.saves != 1 {
		t.Fatalf("expected one save after move, got %d", store.saves)
	}
	ref, _ := store.state.Locate(s.State().Projects[0].Board.Columns[domain.InProgress].Tasks[0].ID)
	if ref.Column != domain.InProgress {
		t.Fatalf("saved state column = %v", ref.Column)
	}
	if s.Dirty() {
		t.Fatal("expected clean session after save")
	}
}

func TestSessionSaveFailureRetries(t *testing.T) {
	st, _ := boardState(t, "one", "two")
	store := &memStore{saveErr: errors.New("disk full")}
	s := NewSession(st, store, WithLogger(quietLogger()))

	out := pressAll(s, "m")
	if !strings.HasPrefix(out.Notice, "save failed: ") || !s.Dirty() {
		t.Fatalf("expected save failure notice, got %q dirty=%v", out.Notice, s.Dirty())
	}
	if s.State().Projects[0].Board.Columns[domain.InProgress].Len() != 1 {
		t.Fatal("expected in-memory state to keep the move")
	}

	store.saveErr = nil
	out = pressAll(s, "j")
	if store.saves != 1 || s.Dirty() {
		t.Fatalf("expected retry on next key, saves=%d dirty=%v", store.saves, s.Dirty())
	}
	if out.Notice != "saved" {
		t.Fatalf("notice = %q, want saved", out.Notice)
	}
}

func TestSessionCloseFlushesDirtyState(t *testing.T) {
	st, _ := boardState(t, "one")
	store := &memStore{saveErr: errors.New("read-only")}
	s := NewSession(st, store, WithLogger(quietLogger()))
	pressAll(s, "d")

	if err := s.Close(context.Background()); !errors.Is(err, ErrSaveFailed) {
		t.Fatalf("expected ErrSaveFailed, got %v", err)
	}
	store.saveErr = nil
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if store.saves != 1 || store.state.TaskCount() != 0 {
		t.Fatalf("expected final flush to persist delete, saves=%d", store.saves)
	}
	if err := s.Close(context.Background()); err != nil || store.saves != 1 {
		t.Fatalf("expected clean close to skip saving, err=%v saves=%d", err, store.saves)
	}
}

func TestSessionYankUsesClipboard(t *testing.T) {
	st, _ := boardState(t, "copy me")
	clip := &fakeClipboard{}
	s := NewSession(st, &memStore{}, WithClipboard(clip), WithLogger(quietLogger()))

	out := pressAll(s, "y")
	if clip.text != "copy me" || out.Notice != "copied" {
		t.Fatalf("unexpected clipboard %q notice %q", clip.text, out.Notice)
	}

	s.ClearNotice()
	clip.err = errors.New("no display")
	out = pressAll(s, "y")
	if out.Notice != "copy failed: no display" {
		t.Fatalf("notice = %q", out.Notice)
	}

	bare := NewSession(st, &memStore{}, WithLogger(quietLogger()))
	if out := pressAll(bare, "y"); !strings.HasPrefix(out.Notice, "copy failed") {
		t.Fatalf("expected copy failure without clipboard, got %q", out.Notice)
	}
}

func TestSessionQuitAndAccessors(t *testing.T) {
	st, _ := boardState(t, "a")
	s := NewSession(st, &memStore{}, WithKeyMap(NewKeyMap(KeyConfig{Help: "H"})), WithLogger(quietLogger()))
	pressAll(s, "H")
	if s.Mode().Kind != ModeHelp {
		t.Fatalf("expected configured help key, got %v", s.Mode().Kind)
	}
	pressAll(s, "esc")
	if s.Stack().Len() != 1 || s.Cursor() != (Cursor{}) {
		t.Fatalf("unexpected stack %#v", s.Stack())
	}
	if out := pressAll(s, "q"); !out.Quit {
		t.Fatal("expected quit outcome")
	}
	if got := s.KeyMap().Help.Help().Key; got != "H" {
		t.Fatalf("help key = %q", got)
	}
}

func TestSessionStateIsACopy(t *testing.T) {
	st, _ := boardState(t, "a")
	s := NewSession(st, &memStore{}, WithLogger(quietLogger()))
	snapshot := s.State()
	snapshot.Projects[0].Name = "changed"
	if s.State().Projects[0].Name != "Default" {
		t.Fatal("State() must not expose internal storage")
	}
}

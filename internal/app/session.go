package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/evanschultz/tuikan/internal/domain"
)

// Outcome is what the UI needs after a key has been handled.
type Outcome struct {
	Quit   bool
	Notice string
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithKeyMap sets the bindings used by the dispatcher.
func WithKeyMap(keys KeyMap) SessionOption {
	return func(s *Session) {
		s.dispatcher = NewDispatcher(keys)
	}
}

// WithClipboard sets the clipboard used by the copy command.
func WithClipboard(clipboard Clipboard) SessionOption {
	return func(s *Session) {
		s.clipboard = clipboard
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *log.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Session owns the in-memory state and mode stack for one run of the board.
// It is not safe for concurrent use; the UI loop calls it from one goroutine.
type Session struct {
	state      domain.State
	stack      Stack
	dispatcher Dispatcher
	store      Store
	clipboard  Clipboard
	logger     *log.Logger

	dirty  bool
	notice string
}

// NewSession constructs a session over a loaded state.
func NewSession(state domain.State, store Store, opts ...SessionOption) *Session {
	s := &Session{
		state:      state,
		stack:      NewStack(),
		dispatcher: NewDispatcher(DefaultKeyMap()),
		store:      store,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.stack = clampStack(s.stack, &s.state)
	return s
}

// HandleKey dispatches one key press and persists the result when the state changed.
func (s *Session) HandleKey(ctx context.Context, k Key) Outcome {
	res := s.dispatcher.Dispatch(s.stack, k, &s.state)
	s.stack = res.Stack
	retrying := s.dirty
	if res.Mutated {
		s.dirty = true
	}
	if s.dirty {
		switch err := s.flush(ctx); {
		case err != nil:
			s.notice = err.Error()
		case retrying:
			s.notice = "saved"
		}
	}
	if res.Yank != "" {
		s.copy(res.Yank)
	}
	return Outcome{Quit: res.Quit, Notice: s.notice}
}

// Close performs the final flush of unsaved changes.
func (s *Session) Close(ctx context.Context) error {
	if !s.dirty {
		return nil
	}
	return s.flush(ctx)
}

// flush saves the state, keeping it dirty on failure so the save is retried.
func (s *Session) flush(ctx context.Context) error {
	if s.store == nil {
		return fmt.Errorf("%w: no store configured", ErrSaveFailed)
	}
	if err := s.store.Save(ctx, s.state); err != nil {
		if !errors.Is(err, ErrSaveFailed) {
			err = fmt.Errorf("%w: %w", ErrSaveFailed, err)
		}
		s.logger.Error("state save failed", "err", err)
		return err
	}
	s.dirty = false
	s.logger.Debug("state saved", "projects", len(s.state.Projects), "tasks", s.state.TaskCount())
	return nil
}

func (s *Session) copy(text string) {
	if s.clipboard == nil {
		s.notice = "copy failed: clipboard unavailable"
		return
	}
	if err := s.clipboard.WriteAll(text); err != nil {
		s.logger.Warn("clipboard write failed", "err", err)
		s.notice = "copy failed: " + err.Error()
		return
	}
	s.notice = "copied"
}

// State returns a deep copy of the current state.
func (s *Session) State() domain.State {
	return s.state.Clone()
}

// Stack returns the current mode stack.
func (s *Session) Stack() Stack {
	return s.stack
}

// Mode returns the active mode.
func (s *Session) Mode() Mode {
	return s.stack.Top()
}

// Cursor returns the board cursor.
func (s *Session) Cursor() Cursor {
	return s.stack.Cursor()
}

// Dirty reports whether changes are waiting to be saved.
func (s *Session) Dirty() bool {
	return s.dirty
}

// Notice returns the current transient message.
func (s *Session) Notice() string {
	return s.notice
}

// SetNotice replaces the transient message.
func (s *Session) SetNotice(notice string) {
	s.notice = notice
}

// ClearNotice removes the transient message.
func (s *Session) ClearNotice() {
	s.notice = ""
}

// KeyMap returns the bindings in use.
func (s *Session) KeyMap() KeyMap {
	return s.dispatcher.KeyMap()
}

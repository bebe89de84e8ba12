package domain

import (
	"slices"
	"strings"
)

// TaskID identifies a task across the whole application state. Zero means none.
type TaskID int64

// Task is one work item on a board.
type Task struct {
	ID          TaskID
	Title       string
	Description string
	Tags        []string
}

// NewTask validates and constructs a task with no tags or description.
func NewTask(id TaskID, title string) (Task, error) {
	title = strings.TrimSpace(title)
	if id <= 0 {
		return Task{}, ErrInvalidID
	}
	if title == "" {
		return Task{}, ErrEmptyTitle
	}
	return Task{ID: id, Title: title}, nil
}

// Rename replaces the title.
func (t *Task) Rename(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	t.Title = title
	return nil
}

// AddTag appends label as typed unless it is blank or already present.
// Labels are opaque: matching is exact, whitespace included.
func (t *Task) AddTag(label string) error {
	if strings.TrimSpace(label) == "" {
		return ErrEmptyTag
	}
	if t.HasTag(label) {
		return ErrDuplicateTag
	}
	t.Tags = append(t.Tags, label)
	return nil
}

// RemoveTag drops the tag at the zero-based index.
func (t *Task) RemoveTag(index int) error {
	if index < 0 || index >= len(t.Tags) {
		return ErrIndexOutOfRange
	}
	t.Tags = slices.Delete(t.Tags, index, index+1)
	return nil
}

// HasTag reports whether label is present.
func (t Task) HasTag(label string) bool {
	return slices.Contains(t.Tags, label)
}

func (t Task) clone() Task {
	out := t
	if t.Tags != nil {
		out.Tags = slices.Clone(t.Tags)
	}
	return out
}

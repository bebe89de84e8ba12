package app

import (
	"slices"

	"github.com/evanschultz/tuikan/internal/domain"
)

// ModeKind identifies an interaction context.
type ModeKind int

// Interaction contexts.
const (
	ModeNormal ModeKind = iota
	ModeAddingTask
	ModeAddingTag
	ModeTaskDetail
	ModeEditing
	ModeProjectList
	ModeAddingProject
	ModeHelp
)

// String returns a readable mode label.
func (k ModeKind) String() string {
	switch k {
	case ModeNormal:
		return "normal"
	case ModeAddingTask:
		return "add task"
	case ModeAddingTag:
		return "add tag"
	case ModeTaskDetail:
		return "task"
	case ModeEditing:
		return "edit"
	case ModeProjectList:
		return "projects"
	case ModeAddingProject:
		return "new project"
	case ModeHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Field is a focusable task field in the detail view.
type Field int

// Task detail fields in focus order.
const (
	FieldTitle Field = iota
	FieldTags
	FieldDescription
)

const fieldCount = 3

// String returns the field label.
func (f Field) String() string {
	switch f {
	case FieldTitle:
		return "Title"
	case FieldTags:
		return "Tags"
	case FieldDescription:
		return "Description"
	default:
		return "?"
	}
}

// Next cycles focus forward.
func (f Field) Next() Field {
	return Field((int(f) + 1) % fieldCount)
}

// Prev cycles focus backward.
func (f Field) Prev() Field {
	return Field((int(f) + fieldCount - 1) % fieldCount)
}

// Cursor is the Normal-mode selection over the active board.
type Cursor struct {
	Column domain.ColumnName
	Task   int
}

// Mode is one interaction context. Only the fields relevant to Kind are set.
type Mode struct {
	Kind ModeKind

	// ModeNormal.
	Cursor Cursor

	// Text input buffer for AddingTask, AddingTag, AddingProject and Editing.
	Buffer string

	// ModeAddingTask target column captured at entry.
	Column domain.ColumnName

	// Target task for AddingTag, TaskDetail and Editing.
	TaskID domain.TaskID

	// Focused field for TaskDetail; edited field for Editing.
	Field Field

	// ModeProjectList selection.
	ProjectCursor int
}

// NormalMode returns the board navigation mode with the cursor at the origin.
func NormalMode() Mode {
	return Mode{Kind: ModeNormal}
}

// AddingTaskMode returns the new-task input for column.
func AddingTaskMode(column domain.ColumnName) Mode {
	return Mode{Kind: ModeAddingTask, Column: column}
}

// AddingTagMode returns the tag input for a task.
func AddingTagMode(id domain.TaskID) Mode {
	return Mode{Kind: ModeAddingTag, TaskID: id}
}

// TaskDetailMode returns the detail view of a task focused on its title.
func TaskDetailMode(id domain.TaskID) Mode {
	return Mode{Kind: ModeTaskDetail, TaskID: id, Field: FieldTitle}
}

// EditingMode returns a field editor seeded with the current content.
func EditingMode(id domain.TaskID, field Field, seed string) Mode {
	return Mode{Kind: ModeEditing, TaskID: id, Field: field, Buffer: seed}
}

// ProjectListMode returns the project picker with the given selection.
func ProjectListMode(cursor int) Mode {
	return Mode{Kind: ModeProjectList, ProjectCursor: cursor}
}

// AddingProjectMode returns the project-name input.
func AddingProjectMode() Mode {
	return Mode{Kind: ModeAddingProject}
}

// HelpMode returns the help overlay.
func HelpMode() Mode {
	return Mode{Kind: ModeHelp}
}

// IsTextInput reports whether printable keys edit the buffer.
func (m Mode) IsTextInput() bool {
	switch m.Kind {
	case ModeAddingTask, ModeAddingTag, ModeAddingProject, ModeEditing:
		return true
	default:
		return false
	}
}

// referencesTask reports whether the mode targets a single task.
func (m Mode) referencesTask() bool {
	switch m.Kind {
	case ModeAddingTag, ModeTaskDetail, ModeEditing:
		return true
	default:
		return false
	}
}

// Stack is the ordered interaction context. The bottom is always a Normal mode.
// Methods never modify the receiver.
type Stack struct {
	modes []Mode
}

// NewStack returns a stack holding only Normal mode.
func NewStack() Stack {
	return Stack{modes: []Mode{NormalMode()}}
}

// Len returns the number of modes on the stack.
func (s Stack) Len() int {
	if len(s.modes) == 0 {
		return 1
	}
	return len(s.modes)
}

// Modes returns a copy of the stack from bottom to top.
func (s Stack) Modes() []Mode {
	if len(s.modes) == 0 {
		return []Mode{NormalMode()}
	}
	return slices.Clone(s.modes)
}

// Top returns the active mode.
func (s Stack) Top() Mode {
	if len(s.modes) == 0 {
		return NormalMode()
	}
	return s.modes[len(s.modes)-1]
}

// Bottom returns the Normal mode at the base of the stack.
func (s Stack) Bottom() Mode {
	if len(s.modes) == 0 {
		return NormalMode()
	}
	return s.modes[0]
}

// Cursor returns the board cursor.
func (s Stack) Cursor() Cursor {
	return s.Bottom().Cursor
}

// Push returns a stack with m on top.
func (s Stack) Push(m Mode) Stack {
	modes := s.Modes()
	return Stack{modes: append(modes, m)}
}

// Pop returns the stack without its top mode. The Normal base is never removed.
func (s Stack) Pop() (Stack, bool) {
	modes := s.Modes()
	if len(modes) <= 1 {
		return Stack{modes: modes}, false
	}
	return Stack{modes: modes[:len(modes)-1]}, true
}

// ReplaceTop returns a stack with the top mode replaced by m. Replacing the
// base with anything other than a Normal mode is refused.
func (s Stack) ReplaceTop(m Mode) Stack {
	modes := s.Modes()
	if len(modes) == 1 && m.Kind != ModeNormal {
		return Stack{modes: modes}
	}
	modes[len(modes)-1] = m
	return Stack{modes: modes}
}

// WithCursor returns a stack whose base carries cursor.
func (s Stack) WithCursor(cursor Cursor) Stack {
	modes := s.Modes()
	modes[0].Cursor = cursor
	return Stack{modes: modes}
}

package domain

import (
	"fmt"
	"strings"
)

// ColumnName identifies one stage of the fixed pipeline.
type ColumnName int

// Pipeline stages in board order.
const (
	ToDo ColumnName = iota
	InProgress
	Testing
	Done
)

// ColumnCount is the number of columns on every board.
const ColumnCount = 4

// Pipeline lists every column in board order.
var Pipeline = [ColumnCount]ColumnName{ToDo, InProgress, Testing, Done}

var columnNames = [ColumnCount]string{"ToDo", "InProgress", "Testing", "Done"}

var columnTitles = [ColumnCount]string{"To Do", "In Progress", "Testing", "Done"}

// String returns the canonical persisted name.
func (c ColumnName) String() string {
	if !c.Valid() {
		return fmt.Sprintf("ColumnName(%d)", int(c))
	}
	return columnNames[c]
}

// Title returns the human-readable column heading.
func (c ColumnName) Title() string {
	if !c.Valid() {
		return c.String()
	}
	return columnTitles[c]
}

// Valid reports whether c is one of the four pipeline columns.
func (c ColumnName) Valid() bool {
	return c >= ToDo && c <= Done
}

// Direction selects which neighbouring column a task moves to.
type Direction int

// Movement directions along the pipeline.
const (
	Backward Direction = -1
	Forward  Direction = 1
)

// Step returns the neighbouring column in dir, clamped at both ends of the pipeline.
func (c ColumnName) Step(dir Direction) ColumnName {
	next := c + ColumnName(dir)
	if !next.Valid() {
		return c
	}
	return next
}

// ParseColumnName accepts canonical names plus the spellings older files used
// ("todo", "To Do", "in_progress", ...).
func ParseColumnName(raw string) (ColumnName, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(key)
	switch key {
	case "todo":
		return ToDo, nil
	case "inprogress", "progress", "doing":
		return InProgress, nil
	case "testing", "test", "review":
		return Testing, nil
	case "done":
		return Done, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidColumn, raw)
	}
}

// Column holds the ordered tasks of one pipeline stage.
type Column struct {
	Name  ColumnName
	Tasks []Task
}

// Len returns the number of tasks in the column.
func (c Column) Len() int {
	return len(c.Tasks)
}

// indexOf returns the position of taskID, or -1.
func (c Column) indexOf(taskID TaskID) int {
	for idx := range c.Tasks {
		if c.Tasks[idx].ID == taskID {
			return idx
		}
	}
	return -1
}

// clone deep-copies the column.
func (c Column) clone() Column {
	out := Column{Name: c.Name}
	if c.Tasks != nil {
		out.Tasks = make([]Task, len(c.Tasks))
		for idx := range c.Tasks {
			out.Tasks[idx] = c.Tasks[idx].clone()
		}
	}
	return out
}

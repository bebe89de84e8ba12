package domain

import (
	"fmt"
	"slices"
	"strings"
)

// State is the complete application state: projects in creation order plus the
// active project reference.
//
// Empty collections are kept nil so that decoded and in-memory states compare equal.
type State struct {
	Projects        []Project
	ActiveProjectID ProjectID
}

// TaskRef locates a task inside a State.
type TaskRef struct {
	ProjectIndex int
	Column       ColumnName
	Index        int
}

// NewState returns an empty state.
func NewState() State {
	return State{}
}

// Clone deep-copies the state.
func (s State) Clone() State {
	out := State{ActiveProjectID: s.ActiveProjectID}
	if s.Projects != nil {
		out.Projects = make([]Project, len(s.Projects))
		for idx := range s.Projects {
			out.Projects[idx] = s.Projects[idx].clone()
		}
	}
	return out
}

// ProjectIndex returns the sequence index of id, or -1.
func (s *State) ProjectIndex(id ProjectID) int {
	for idx := range s.Projects {
		if s.Projects[idx].ID == id {
			return idx
		}
	}
	return -1
}

// Project returns the project with id.
func (s *State) Project(id ProjectID) (*Project, bool) {
	idx := s.ProjectIndex(id)
	if idx < 0 {
		return nil, false
	}
	return &s.Projects[idx], true
}

// ActiveProject returns the active project, if any.
func (s *State) ActiveProject() (*Project, bool) {
	if s.ActiveProjectID == 0 {
		return nil, false
	}
	return s.Project(s.ActiveProjectID)
}

// SetActiveProject makes id the active project.
func (s *State) SetActiveProject(id ProjectID) error {
	if s.ProjectIndex(id) < 0 {
		return fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	s.ActiveProjectID = id
	return nil
}

// Locate finds the project, column and position of a task.
func (s *State) Locate(id TaskID) (TaskRef, bool) {
	if id <= 0 {
		return TaskRef{}, false
	}
	for pIdx := range s.Projects {
		for _, name := range Pipeline {
			col := s.Projects[pIdx].Board.Column(name)
			if idx := col.indexOf(id); idx >= 0 {
				return TaskRef{ProjectIndex: pIdx, Column: name, Index: idx}, true
			}
		}
	}
	return TaskRef{}, false
}

// Task returns a pointer to the stored task with id.
func (s *State) Task(id TaskID) (*Task, bool) {
	ref, ok := s.Locate(id)
	if !ok {
		return nil, false
	}
	return &s.Projects[ref.ProjectIndex].Board.Columns[ref.Column].Tasks[ref.Index], true
}

// CreateProject appends a new project and makes it active.
func (s *State) CreateProject(name string) (ProjectID, error) {
	project, err := NewProject(s.nextProjectID(), name)
	if err != nil {
		return 0, err
	}
	s.Projects = append(s.Projects, project)
	s.ActiveProjectID = project.ID
	return project.ID, nil
}

// DeleteProject removes a project together with its board and tasks. When the
// deleted project was active, the previous project in sequence order becomes
// active, falling back to the new first project, or none when empty.
func (s *State) DeleteProject(id ProjectID) error {
	idx := s.ProjectIndex(id)
	if idx < 0 {
		return fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	wasActive := s.ActiveProjectID == id
	s.Projects = compact(slices.Delete(s.Projects, idx, idx+1))
	if !wasActive {
		return nil
	}
	switch {
	case len(s.Projects) == 0:
		s.ActiveProjectID = 0
	case idx > 0:
		s.ActiveProjectID = s.Projects[idx-1].ID
	default:
		s.ActiveProjectID = s.Projects[0].ID
	}
	return nil
}

// CreateTask appends a new task to the end of column in project.
func (s *State) CreateTask(projectID ProjectID, column ColumnName, title string) (TaskID, error) {
	project, ok := s.Project(projectID)
	if !ok {
		return 0, fmt.Errorf("project %d: %w", projectID, ErrNotFound)
	}
	col := project.Board.Column(column)
	if col == nil {
		return 0, fmt.Errorf("%w: %d", ErrInvalidColumn, int(column))
	}
	task, err := NewTask(s.nextTaskID(), title)
	if err != nil {
		return 0, err
	}
	col.Tasks = append(col.Tasks, task)
	return task.ID, nil
}

// MoveTask moves a task one column in dir and appends it to the destination.
// Moving forward from Done or backward from ToDo leaves the task where it is.
func (s *State) MoveTask(id TaskID, dir Direction) (ColumnName, error) {
	ref, ok := s.Locate(id)
	if !ok {
		return 0, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	dest := ref.Column.Step(dir)
	if dest == ref.Column {
		return ref.Column, nil
	}
	board := &s.Projects[ref.ProjectIndex].Board
	src := board.Column(ref.Column)
	task := src.Tasks[ref.Index]
	src.Tasks = compact(slices.Delete(src.Tasks, ref.Index, ref.Index+1))
	dst := board.Column(dest)
	dst.Tasks = append(dst.Tasks, task)
	return dest, nil
}

// DeleteTask removes a task from its column.
func (s *State) DeleteTask(id TaskID) error {
	ref, ok := s.Locate(id)
	if !ok {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	col := s.Projects[ref.ProjectIndex].Board.Column(ref.Column)
	col.Tasks = compact(slices.Delete(col.Tasks, ref.Index, ref.Index+1))
	return nil
}

// SetTitle renames a task.
func (s *State) SetTitle(id TaskID, title string) error {
	task, ok := s.Task(id)
	if !ok {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return task.Rename(title)
}

// SetDescription replaces a task description. Any text is accepted.
func (s *State) SetDescription(id TaskID, description string) error {
	task, ok := s.Task(id)
	if !ok {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	task.Description = description
	return nil
}

// AddTag adds a tag to a task.
func (s *State) AddTag(id TaskID, label string) error {
	task, ok := s.Task(id)
	if !ok {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return task.AddTag(label)
}

// RemoveTag removes the tag at the zero-based index of a task.
func (s *State) RemoveTag(id TaskID, index int) error {
	task, ok := s.Task(id)
	if !ok {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err := task.RemoveTag(index); err != nil {
		return err
	}
	task.Tags = compact(task.Tags)
	return nil
}

// Validate checks the structural invariants of a state loaded from outside.
func (s State) Validate() error {
	seenProjects := map[ProjectID]struct{}{}
	seenTasks := map[TaskID]struct{}{}
	for pIdx, project := range s.Projects {
		if project.ID <= 0 {
			return fmt.Errorf("projects[%d]: %w", pIdx, ErrInvalidID)
		}
		if _, dup := seenProjects[project.ID]; dup {
			return fmt.Errorf("projects[%d]: duplicate id %d: %w", pIdx, project.ID, ErrInvalidID)
		}
		seenProjects[project.ID] = struct{}{}
		if strings.TrimSpace(project.Name) == "" {
			return fmt.Errorf("projects[%d]: %w", pIdx, ErrEmptyName)
		}
		for cIdx, col := range project.Board.Columns {
			if col.Name != Pipeline[cIdx] {
				return fmt.Errorf("projects[%d].columns[%d]: %w", pIdx, cIdx, ErrInvalidColumn)
			}
			for tIdx, task := range col.Tasks {
				where := fmt.Sprintf("projects[%d].columns[%d].tasks[%d]", pIdx, cIdx, tIdx)
				if task.ID <= 0 {
					return fmt.Errorf("%s: %w", where, ErrInvalidID)
				}
				if _, dup := seenTasks[task.ID]; dup {
					return fmt.Errorf("%s: duplicate id %d: %w", where, task.ID, ErrInvalidID)
				}
				seenTasks[task.ID] = struct{}{}
				if strings.TrimSpace(task.Title) == "" {
					return fmt.Errorf("%s: %w", where, ErrEmptyTitle)
				}
				seenTags := map[string]struct{}{}
				for _, tag := range task.Tags {
					if strings.TrimSpace(tag) == "" {
						return fmt.Errorf("%s: %w", where, ErrEmptyTag)
					}
					if _, dup := seenTags[tag]; dup {
						return fmt.Errorf("%s: %w", where, ErrDuplicateTag)
					}
					seenTags[tag] = struct{}{}
				}
			}
		}
	}
	if len(s.Projects) == 0 {
		if s.ActiveProjectID != 0 {
			return fmt.Errorf("active project %d without projects: %w", s.ActiveProjectID, ErrNotFound)
		}
		return nil
	}
	if _, ok := seenProjects[s.ActiveProjectID]; !ok {
		return fmt.Errorf("active project %d: %w", s.ActiveProjectID, ErrNotFound)
	}
	return nil
}

// TaskCount returns the number of tasks across every project.
func (s State) TaskCount() int {
	total := 0
	for _, project := range s.Projects {
		total += project.Board.TaskCount()
	}
	return total
}

func (s *State) nextProjectID() ProjectID {
	var maxID ProjectID
	for _, project := range s.Projects {
		maxID = max(maxID, project.ID)
	}
	return maxID + 1
}

func (s *State) nextTaskID() TaskID {
	var maxID TaskID
	for _, project := range s.Projects {
		for _, col := range project.Board.Columns {
			for _, task := range col.Tasks {
				maxID = max(maxID, task.ID)
			}
		}
	}
	return maxID + 1
}

// compact turns an emptied slice back into nil.
func compact[T any](in []T) []T {
	if len(in) == 0 {
		return nil
	}
	return in
}

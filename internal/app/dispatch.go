package app

import (
	"strconv"
	"unicode/utf8"

	"charm.land/bubbles/v2/key"
	"github.com/evanschultz/tuikan/internal/domain"
)

// Result is the outcome of dispatching one key.
type Result struct {
	Stack   Stack
	Mutated bool
	Quit    bool
	Yank    string
}

// Dispatcher maps (mode stack, key) to data-model operations and stack changes.
// It holds no state beyond its bindings, so identical inputs give identical results.
type Dispatcher struct {
	keys KeyMap
}

// NewDispatcher constructs a dispatcher over keys.
func NewDispatcher(keys KeyMap) Dispatcher {
	return Dispatcher{keys: keys}
}

// KeyMap returns the bindings in use.
func (d Dispatcher) KeyMap() KeyMap {
	return d.keys
}

// Dispatch applies k to the top of stack, mutating st in place when the key
// maps to a data-model operation. Unrecognised keys change nothing.
func (d Dispatcher) Dispatch(stack Stack, k Key, st *domain.State) Result {
	top := stack.Top()
	var res Result
	switch {
	case top.referencesTask() && !taskExists(st, top.TaskID):
		res = Result{Stack: popped(stack)}
	case top.Kind == ModeNormal:
		res = d.normal(stack, top, k, st)
	case top.Kind == ModeAddingTask, top.Kind == ModeAddingTag, top.Kind == ModeAddingProject:
		res = d.lineInput(stack, top, k, st)
	case top.Kind == ModeEditing:
		res = d.editing(stack, top, k, st)
	case top.Kind == ModeTaskDetail:
		res = d.taskDetail(stack, top, k, st)
	case top.Kind == ModeProjectList:
		res = d.projectList(stack, top, k, st)
	case top.Kind == ModeHelp:
		res = Result{Stack: stack}
		if key.Matches(k, d.keys.Cancel, d.keys.Help) {
			res.Stack = popped(stack)
		}
	default:
		res = Result{Stack: stack}
	}
	res.Stack = clampStack(res.Stack, st)
	return res
}

// normal handles board navigation and task commands.
func (d Dispatcher) normal(stack Stack, top Mode, k Key, st *domain.State) Result {
	res := Result{Stack: stack}
	cur := top.Cursor
	project, hasProject := st.ActiveProject()
	selected, hasSelected := selectedTask(project, cur)

	switch {
	case key.Matches(k, d.keys.Quit):
		res.Quit = true
	case key.Matches(k, d.keys.Left):
		cur.Column = cur.Column.Step(domain.Backward)
		res.Stack = stack.WithCursor(cur)
	case key.Matches(k, d.keys.Right):
		cur.Column = cur.Column.Step(domain.Forward)
		res.Stack = stack.WithCursor(cur)
	case key.Matches(k, d.keys.Up):
		if cur.Task > 0 {
			cur.Task--
		}
		res.Stack = stack.WithCursor(cur)
	case key.Matches(k, d.keys.Down):
		cur.Task++
		res.Stack = stack.WithCursor(cur)
	case key.Matches(k, d.keys.AddTask):
		if hasProject {
			res.Stack = stack.Push(AddingTaskMode(cur.Column))
		}
	case key.Matches(k, d.keys.AddTag):
		if hasSelected {
			res.Stack = stack.Push(AddingTagMode(selected.ID))
		}
	case key.Matches(k, d.keys.MoveForward):
		if hasSelected {
			res.Mutated = moveTask(st, selected.ID, domain.Forward)
		}
	case key.Matches(k, d.keys.MoveBackward):
		if hasSelected {
			res.Mutated = moveTask(st, selected.ID, domain.Backward)
		}
	case key.Matches(k, d.keys.DeleteTask):
		if hasSelected && st.DeleteTask(selected.ID) == nil {
			res.Mutated = true
			if cur.Task > 0 {
				cur.Task--
			}
			res.Stack = stack.WithCursor(cur)
		}
	case key.Matches(k, d.keys.OpenTask):
		if hasSelected {
			res.Stack = stack.Push(TaskDetailMode(selected.ID))
		}
	case key.Matches(k, d.keys.Projects):
		res.Stack = stack.Push(ProjectListMode(max(st.ProjectIndex(st.ActiveProjectID), 0)))
	case key.Matches(k, d.keys.Help):
		res.Stack = stack.Push(HelpMode())
	case key.Matches(k, d.keys.Yank):
		if hasSelected {
			res.Yank = selected.Title
		}
	}
	return res
}

// lineInput handles single-line text entry for new tasks, tags and projects.
func (d Dispatcher) lineInput(stack Stack, top Mode, k Key, st *domain.State) Result {
	res := Result{Stack: stack}
	switch {
	case key.Matches(k, d.keys.Commit):
		res.Stack = popped(stack)
		switch top.Kind {
		case ModeAddingTask:
			id, err := st.CreateTask(st.ActiveProjectID, top.Column, top.Buffer)
			if err == nil {
				res.Mutated = true
				if ref, ok := st.Locate(id); ok {
					res.Stack = res.Stack.WithCursor(Cursor{Column: ref.Column, Task: ref.Index})
				}
			}
		case ModeAddingTag:
			res.Mutated = st.AddTag(top.TaskID, top.Buffer) == nil
		case ModeAddingProject:
			previous := st.ActiveProjectID
			if _, err := st.CreateProject(top.Buffer); err == nil {
				res.Mutated = true
				res.Stack = activeProjectChanged(res.Stack, st, previous)
			}
		}
	case key.Matches(k, d.keys.Cancel, d.keys.Abort):
		res.Stack = popped(stack)
	default:
		if buf, ok := editBuffer(top.Buffer, k, d.keys.Erase); ok {
			top.Buffer = buf
			res.Stack = stack.ReplaceTop(top)
		}
	}
	return res
}

// editing handles the title and description editors. The description editor
// takes enter as a newline and saves on esc.
func (d Dispatcher) editing(stack Stack, top Mode, k Key, st *domain.State) Result {
	res := Result{Stack: stack}
	task, _ := st.Task(top.TaskID)
	if top.Field == FieldDescription {
		switch {
		case key.Matches(k, d.keys.Cancel):
			res.Stack = popped(stack)
			if task.Description != top.Buffer {
				res.Mutated = st.SetDescription(top.TaskID, top.Buffer) == nil
			}
		case key.Matches(k, d.keys.Abort):
			res.Stack = popped(stack)
		case key.Matches(k, d.keys.Commit):
			top.Buffer += "\n"
			res.Stack = stack.ReplaceTop(top)
		default:
			if buf, ok := editBuffer(top.Buffer, k, d.keys.Erase); ok {
				top.Buffer = buf
				res.Stack = stack.ReplaceTop(top)
			}
		}
		return res
	}

	switch {
	case key.Matches(k, d.keys.Commit):
		res.Stack = popped(stack)
		if task.Title != top.Buffer {
			res.Mutated = st.SetTitle(top.TaskID, top.Buffer) == nil
		}
	case key.Matches(k, d.keys.Cancel, d.keys.Abort):
		res.Stack = popped(stack)
	default:
		if buf, ok := editBuffer(top.Buffer, k, d.keys.Erase); ok {
			top.Buffer = buf
			res.Stack = stack.ReplaceTop(top)
		}
	}
	return res
}

// taskDetail handles field focus, editor entry and tag removal.
func (d Dispatcher) taskDetail(stack Stack, top Mode, k Key, st *domain.State) Result {
	res := Result{Stack: stack}
	task, _ := st.Task(top.TaskID)
	switch {
	case key.Matches(k, d.keys.Cancel):
		res.Stack = popped(stack)
	case key.Matches(k, d.keys.NextField):
		top.Field = top.Field.Next()
		res.Stack = stack.ReplaceTop(top)
	case key.Matches(k, d.keys.PrevField):
		top.Field = top.Field.Prev()
		res.Stack = stack.ReplaceTop(top)
	case key.Matches(k, d.keys.Commit):
		switch top.Field {
		case FieldTitle:
			res.Stack = stack.Push(EditingMode(task.ID, FieldTitle, task.Title))
		case FieldDescription:
			res.Stack = stack.Push(EditingMode(task.ID, FieldDescription, task.Description))
		case FieldTags:
			res.Stack = stack.Push(AddingTagMode(task.ID))
		}
	case top.Field == FieldTags && key.Matches(k, d.keys.RemoveTag):
		ordinal, err := strconv.Atoi(k.Name)
		if err != nil || ordinal < 1 || ordinal > len(task.Tags) {
			return res
		}
		res.Mutated = st.RemoveTag(task.ID, ordinal-1) == nil
	}
	return res
}

// projectList handles project selection, creation and deletion.
func (d Dispatcher) projectList(stack Stack, top Mode, k Key, st *domain.State) Result {
	res := Result{Stack: stack}
	switch {
	case key.Matches(k, d.keys.Cancel):
		res.Stack = popped(stack)
	case key.Matches(k, d.keys.Up):
		if top.ProjectCursor > 0 {
			top.ProjectCursor--
		}
		res.Stack = stack.ReplaceTop(top)
	case key.Matches(k, d.keys.Down):
		top.ProjectCursor++
		res.Stack = stack.ReplaceTop(top)
	case key.Matches(k, d.keys.SelectProject):
		if top.ProjectCursor < 0 || top.ProjectCursor >= len(st.Projects) {
			return res
		}
		previous := st.ActiveProjectID
		if err := st.SetActiveProject(st.Projects[top.ProjectCursor].ID); err != nil {
			return res
		}
		res.Mutated = previous != st.ActiveProjectID
		res.Stack = popped(stack).WithCursor(Cursor{})
	case key.Matches(k, d.keys.NewProject):
		res.Stack = stack.Push(AddingProjectMode())
	case key.Matches(k, d.keys.DeleteProject):
		if top.ProjectCursor < 0 || top.ProjectCursor >= len(st.Projects) {
			return res
		}
		previous := st.ActiveProjectID
		if err := st.DeleteProject(st.Projects[top.ProjectCursor].ID); err != nil {
			return res
		}
		res.Mutated = true
		res.Stack = activeProjectChanged(stack, st, previous)
	}
	return res
}

// activeProjectChanged resets the board cursor when the active project moved,
// and points an open project list at the active project.
func activeProjectChanged(stack Stack, st *domain.State, previous domain.ProjectID) Stack {
	if st.ActiveProjectID == previous {
		return stack
	}
	stack = stack.WithCursor(Cursor{})
	if top := stack.Top(); top.Kind == ModeProjectList {
		top.ProjectCursor = max(st.ProjectIndex(st.ActiveProjectID), 0)
		stack = stack.ReplaceTop(top)
	}
	return stack
}

// editBuffer applies an erase or printable key to buf.
func editBuffer(buf string, k Key, erase key.Binding) (string, bool) {
	if key.Matches(k, erase) {
		if buf == "" {
			return buf, false
		}
		_, size := utf8.DecodeLastRuneInString(buf)
		return buf[:len(buf)-size], true
	}
	if k.Text == "" {
		return buf, false
	}
	return buf + k.Text, true
}

// moveTask moves a task and reports whether it changed column.
func moveTask(st *domain.State, id domain.TaskID, dir domain.Direction) bool {
	ref, ok := st.Locate(id)
	if !ok {
		return false
	}
	dest, err := st.MoveTask(id, dir)
	return err == nil && dest != ref.Column
}

// selectedTask returns the task under the cursor on project's board.
func selectedTask(project *domain.Project, cur Cursor) (domain.Task, bool) {
	if project == nil || !cur.Column.Valid() {
		return domain.Task{}, false
	}
	tasks := project.Board.Columns[cur.Column].Tasks
	if cur.Task < 0 || cur.Task >= len(tasks) {
		return domain.Task{}, false
	}
	return tasks[cur.Task], true
}

// SelectedTask returns the task under the board cursor, if any.
func SelectedTask(st *domain.State, cur Cursor) (domain.Task, bool) {
	project, _ := st.ActiveProject()
	return selectedTask(project, cur)
}

func taskExists(st *domain.State, id domain.TaskID) bool {
	_, ok := st.Locate(id)
	return ok
}

func popped(stack Stack) Stack {
	next, _ := stack.Pop()
	return next
}

// clampStack keeps the board cursor and any project-list cursor in range.
func clampStack(stack Stack, st *domain.State) Stack {
	cur := stack.Cursor()
	if !cur.Column.Valid() {
		cur.Column = domain.ToDo
	}
	count := 0
	if project, ok := st.ActiveProject(); ok {
		count = project.Board.Columns[cur.Column].Len()
	}
	cur.Task = clamp(cur.Task, 0, max(count-1, 0))
	if cur != stack.Cursor() {
		stack = stack.WithCursor(cur)
	}
	if top := stack.Top(); top.Kind == ModeProjectList {
		bounded := clamp(top.ProjectCursor, 0, max(len(st.Projects)-1, 0))
		if bounded != top.ProjectCursor {
			top.ProjectCursor = bounded
			stack = stack.ReplaceTop(top)
		}
	}
	return stack
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/evanschultz/tuikan/internal/domain"
)

// Document is the persisted form of the application state.
type Document struct {
	Projects        []DocumentProject `json:"projects"`
	ActiveProjectID int64             `json:"activeProjectId,omitempty"`
}

// DocumentProject is one persisted project.
type DocumentProject struct {
	ID    int64         `json:"id"`
	Name  string        `json:"name"`
	Board DocumentBoard `json:"board"`
}

// DocumentBoard is the persisted board shape shared with the legacy file.
type DocumentBoard struct {
	Columns []DocumentColumn `json:"columns"`
}

// DocumentColumn is one persisted column.
type DocumentColumn struct {
	Name  string         `json:"name"`
	Tasks []DocumentTask `json:"tasks"`
}

// DocumentTask is one persisted task.
type DocumentTask struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// EncodeState renders st as an indented JSON document ending in a newline.
func EncodeState(st domain.State) ([]byte, error) {
	encoded, err := json.MarshalIndent(documentFromState(st), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return append(encoded, '\n'), nil
}

func documentFromState(st domain.State) Document {
	doc := Document{
		Projects:        make([]DocumentProject, 0, len(st.Projects)),
		ActiveProjectID: int64(st.ActiveProjectID),
	}
	for _, project := range st.Projects {
		doc.Projects = append(doc.Projects, DocumentProject{
			ID:    int64(project.ID),
			Name:  project.Name,
			Board: encodeBoard(project.Board),
		})
	}
	if len(doc.Projects) == 0 {
		doc.ActiveProjectID = 0
	}
	return doc
}

func encodeBoard(board domain.Board) DocumentBoard {
	out := DocumentBoard{Columns: make([]DocumentColumn, 0, domain.ColumnCount)}
	for _, col := range board.Columns {
		docCol := DocumentColumn{Name: col.Name.String(), Tasks: make([]DocumentTask, 0, len(col.Tasks))}
		for _, task := range col.Tasks {
			tags := task.Tags
			if tags == nil {
				tags = []string{}
			}
			docCol.Tasks = append(docCol.Tasks, DocumentTask{
				ID:          int64(task.ID),
				Title:       task.Title,
				Description: task.Description,
				Tags:        tags,
			})
		}
		out.Columns = append(out.Columns, docCol)
	}
	return out
}

// DecodeState parses a state document. Any structural problem is reported as
// an error wrapping ErrCorruptState.
func DecodeState(data []byte) (domain.State, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return domain.State{}, fmt.Errorf("%w: empty document", ErrCorruptState)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.State{}, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	st := domain.NewState()
	for pIdx, docProject := range doc.Projects {
		board, err := decodeBoard(docProject.Board)
		if err != nil {
			return domain.State{}, fmt.Errorf("%w: projects[%d]: %v", ErrCorruptState, pIdx, err)
		}
		st.Projects = append(st.Projects, domain.Project{
			ID:    domain.ProjectID(docProject.ID),
			Name:  docProject.Name,
			Board: board,
		})
	}
	st.ActiveProjectID = domain.ProjectID(doc.ActiveProjectID)
	switch {
	case len(st.Projects) == 0:
		st.ActiveProjectID = 0
	case st.ProjectIndex(st.ActiveProjectID) < 0:
		st.ActiveProjectID = st.Projects[0].ID
	}
	if err := st.Validate(); err != nil {
		return domain.State{}, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return st, nil
}

// decodeBoard requires exactly the four pipeline columns in order.
func decodeBoard(doc DocumentBoard) (domain.Board, error) {
	if len(doc.Columns) != domain.ColumnCount {
		return domain.Board{}, fmt.Errorf("want %d columns, got %d", domain.ColumnCount, len(doc.Columns))
	}
	board := domain.NewBoard()
	for idx, docCol := range doc.Columns {
		name, err := domain.ParseColumnName(docCol.Name)
		if err != nil {
			return domain.Board{}, err
		}
		if name != domain.Pipeline[idx] {
			return domain.Board{}, fmt.Errorf("column %d is %q, want %q", idx, docCol.Name, domain.Pipeline[idx])
		}
		for _, docTask := range docCol.Tasks {
			board.Columns[idx].Tasks = append(board.Columns[idx].Tasks, domain.Task{
				ID:          domain.TaskID(docTask.ID),
				Title:       docTask.Title,
				Description: docTask.Description,
				Tags:        nilIfEmpty(docTask.Tags),
			})
		}
	}
	return board, nil
}

// legacyKeyedColumns maps the keyed single-board layout to pipeline columns.
var legacyKeyedColumns = map[string]domain.ColumnName{
	"todo":        domain.ToDo,
	"in_progress": domain.InProgress,
	"testing":     domain.Testing,
	"done":        domain.Done,
}

// legacyTask tolerates missing, numeric or string ids.
type legacyTask struct {
	ID          json.RawMessage `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Tags        []string        `json:"tags"`
}

type legacyColumn struct {
	Name  string       `json:"name"`
	Tasks []legacyTask `json:"tasks"`
}

// DecodeLegacyBoard parses a single-board file from before projects existed.
// It accepts the { "columns": [...] } layout and the keyed { "todo": [...], ... }
// layout. Missing columns become empty, missing or duplicate task ids are
// reassigned, blank-titled tasks are dropped, blank tags are dropped and
// repeated tags collapse to one.
func DecodeLegacyBoard(data []byte) (domain.Board, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.Board{}, fmt.Errorf("%w: legacy board: %v", ErrCorruptState, err)
	}
	grouped := map[domain.ColumnName][]legacyTask{}
	if columnsRaw, ok := raw["columns"]; ok {
		var columns []legacyColumn
		if err := json.Unmarshal(columnsRaw, &columns); err != nil {
			return domain.Board{}, fmt.Errorf("%w: legacy columns: %v", ErrCorruptState, err)
		}
		for _, col := range columns {
			name, err := domain.ParseColumnName(col.Name)
			if err != nil {
				return domain.Board{}, fmt.Errorf("%w: legacy board: %v", ErrCorruptState, err)
			}
			grouped[name] = append(grouped[name], col.Tasks...)
		}
	} else {
		found := false
		for field, name := range legacyKeyedColumns {
			tasksRaw, ok := raw[field]
			if !ok {
				continue
			}
			found = true
			var tasks []legacyTask
			if err := json.Unmarshal(tasksRaw, &tasks); err != nil {
				return domain.Board{}, fmt.Errorf("%w: legacy %s: %v", ErrCorruptState, field, err)
			}
			grouped[name] = tasks
		}
		if !found {
			return domain.Board{}, fmt.Errorf("%w: legacy board has no columns", ErrCorruptState)
		}
	}
	return buildLegacyBoard(grouped), nil
}

// legacyProject is one entry of the keyed multi-project file.
type legacyProject struct {
	Name  string          `json:"name"`
	Board json.RawMessage `json:"board"`
}

// DecodeLegacyProjects parses the multi-project file written before ids and
// named columns: a list of { "name", "board": { "todo": [...], ... } }.
// Task ids are made unique across projects and the first project is active.
func DecodeLegacyProjects(data []byte, fallbackName string) (domain.State, error) {
	var entries []legacyProject
	if err := json.Unmarshal(data, &entries); err != nil {
		return domain.State{}, fmt.Errorf("%w: legacy projects: %v", ErrCorruptState, err)
	}
	if strings.TrimSpace(fallbackName) == "" {
		fallbackName = DefaultProjectName
	}
	st := domain.NewState()
	for idx, entry := range entries {
		board, err := DecodeLegacyBoard(entry.Board)
		if err != nil {
			return domain.State{}, fmt.Errorf("legacy projects[%d]: %w", idx, err)
		}
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			name = fallbackName
		}
		st.Projects = append(st.Projects, domain.Project{
			ID:    domain.ProjectID(idx + 1),
			Name:  name,
			Board: board,
		})
	}
	renumberDuplicateTasks(&st)
	if len(st.Projects) > 0 {
		st.ActiveProjectID = st.Projects[0].ID
	}
	if err := st.Validate(); err != nil {
		return domain.State{}, fmt.Errorf("%w: migrated projects: %v", ErrCorruptState, err)
	}
	return st, nil
}

// renumberDuplicateTasks gives every repeated task id a fresh one above the
// current maximum, keeping first occurrences.
func renumberDuplicateTasks(st *domain.State) {
	var maxID domain.TaskID
	for p := range st.Projects {
		for _, col := range st.Projects[p].Board.Columns {
			for _, task := range col.Tasks {
				maxID = max(maxID, task.ID)
			}
		}
	}
	seen := map[domain.TaskID]struct{}{}
	for p := range st.Projects {
		cols := &st.Projects[p].Board.Columns
		for c := range cols {
			for t := range cols[c].Tasks {
				id := cols[c].Tasks[t].ID
				if _, dup := seen[id]; dup {
					maxID++
					id = maxID
					cols[c].Tasks[t].ID = id
				}
				seen[id] = struct{}{}
			}
		}
	}
}

// buildLegacyBoard assembles a valid board in pipeline order.
func buildLegacyBoard(grouped map[domain.ColumnName][]legacyTask) domain.Board {
	board := domain.NewBoard()
	seen := map[domain.TaskID]struct{}{}
	var maxID domain.TaskID
	for _, name := range domain.Pipeline {
		for _, task := range grouped[name] {
			if id, ok := parseLegacyID(task.ID); ok {
				maxID = max(maxID, id)
			}
		}
	}
	nextID := func() domain.TaskID {
		maxID++
		return maxID
	}
	for _, name := range domain.Pipeline {
		for _, raw := range grouped[name] {
			title := strings.TrimSpace(raw.Title)
			if title == "" {
				continue
			}
			id, ok := parseLegacyID(raw.ID)
			if _, dup := seen[id]; !ok || dup {
				id = nextID()
			}
			seen[id] = struct{}{}
			task := domain.Task{ID: id, Title: title, Description: raw.Description}
			for _, tag := range raw.Tags {
				_ = task.AddTag(tag)
			}
			board.Columns[name].Tasks = append(board.Columns[name].Tasks, task)
		}
	}
	return board
}

// parseLegacyID reads a positive integer id from a number or numeric string.
func parseLegacyID(raw json.RawMessage) (domain.TaskID, bool) {
	value := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if value == "" || value == "null" {
		return 0, false
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return domain.TaskID(id), true
}

func nilIfEmpty(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	return in
}

package app

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/evanschultz/tuikan/internal/domain"
)

// reachableState builds a state through the public operations only.
func reachableState(t *testing.T) domain.State {
	t.Helper()
	st := domain.NewState()
	work, _ := st.CreateProject("Work")
	home, _ := st.CreateProject("Home")
	id, err := st.CreateTask(work, domain.ToDo, "write docs")
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if err := st.AddTag(id, "urgent"); err != nil {
		t.Fatalf("AddTag() error = %v", err)
	}
	if err := st.SetDescription(id, "# heading\n\n- item"); err != nil {
		t.Fatalf("SetDescription() error = %v", err)
	}
	moved, _ := st.CreateTask(work, domain.ToDo, "ship it")
	if _, err := st.MoveTask(moved, domain.Forward); err != nil {
		t.Fatalf("MoveTask() error = %v", err)
	}
	tagless, _ := st.CreateTask(home, domain.Done, "groceries")
	if err := st.AddTag(tagless, "bug"); err != nil {
		t.Fatalf("AddTag() error = %v", err)
	}
	if err := st.RemoveTag(tagless, 0); err != nil {
		t.Fatalf("RemoveTag() error = %v", err)
	}
	if err := st.SetActiveProject(work); err != nil {
		t.Fatalf("SetActiveProject() error = %v", err)
	}
	return st
}

func TestStateRoundTrip(t *testing.T) {
	cases := map[string]domain.State{
		"empty":     domain.NewState(),
		"reachable": reachableState(t),
	}
	emptied := reachableState(t)
	for len(emptied.Projects) > 0 {
		if err := emptied.DeleteProject(emptied.Projects[0].ID); err != nil {
			t.Fatalf("DeleteProject() error = %v", err)
		}
	}
	cases["all projects deleted"] = emptied

	for name, st := range cases {
		t.Run(name, func(t *testing.T) {
			encoded, err := EncodeState(st)
			if err != nil {
				t.Fatalf("EncodeState() error = %v", err)
			}
			decoded, err := DecodeState(encoded)
			if err != nil {
				t.Fatalf("DecodeState() error = %v\n%s", err, encoded)
			}
			if !reflect.DeepEqual(decoded, st) {
				t.Fatalf("round trip mismatch\nwant %#v\ngot  %#v", st, decoded)
			}
		})
	}
}

func TestEncodeStateShape(t *testing.T) {
	st := reachableState(t)
	encoded, err := EncodeState(st)
	if err != nil {
		t.Fatalf("EncodeState() error = %v", err)
	}
	text := string(encoded)
	for _, want := range []string{`"projects"`, `"activeProjectId": 1`, `"board"`, `"columns"`, `"name": "ToDo"`, `"name": "InProgress"`, `"name": "Testing"`, `"name": "Done"`, `"tags": []`} {
		if !strings.Contains(text, want) {
			t.Fatalf("encoded document missing %s\n%s", want, text)
		}
	}
	if !strings.HasSuffix(text, "}\n") {
		t.Fatal("expected trailing newline")
	}

	empty, _ := EncodeState(domain.NewState())
	if strings.Contains(string(empty), "activeProjectId") {
		t.Fatalf("expected activeProjectId omitted for empty state, got %s", empty)
	}
}

func TestDecodeStateRejectsCorruptDocuments(t *testing.T) {
	cases := map[string]string{
		"not json":      `{"projects": [`,
		"blank":         "  \n",
		"three columns": `{"projects":[{"id":1,"name":"A","board":{"columns":[{"name":"ToDo","tasks":[]},{"name":"InProgress","tasks":[]},{"name":"Done","tasks":[]}]}}],"activeProjectId":1}`,
		"wrong order":   `{"projects":[{"id":1,"name":"A","board":{"columns":[{"name":"Done","tasks":[]},{"name":"InProgress","tasks":[]},{"name":"Testing","tasks":[]},{"name":"ToDo","tasks":[]}]}}],"activeProjectId":1}`,
		"unknown name":  `{"projects":[{"id":1,"name":"A","board":{"columns":[{"name":"Backlog","tasks":[]},{"name":"InProgress","tasks":[]},{"name":"Testing","tasks":[]},{"name":"Done","tasks":[]}]}}],"activeProjectId":1}`,
		"duplicate task ids": `{"projects":[{"id":1,"name":"A","board":{"columns":[` +
			`{"name":"ToDo","tasks":[{"id":1,"title":"a","description":"","tags":[]},{"id":1,"title":"b","description":"","tags":[]}]},` +
			`{"name":"InProgress","tasks":[]},{"name":"Testing","tasks":[]},{"name":"Done","tasks":[]}]}}],"activeProjectId":1}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeState([]byte(doc)); !errors.Is(err, ErrCorruptState) {
				t.Fatalf("expected ErrCorruptState, got %v", err)
			}
		})
	}
}

func TestDecodeStateRepairsActiveProject(t *testing.T) {
	const board = `"board":{"columns":[{"name":"ToDo","tasks":[]},{"name":"InProgress","tasks":[]},{"name":"Testing","tasks":[]},{"name":"Done","tasks":[]}]}`
	cases := []struct {
		name string
		doc  string
		want domain.ProjectID
	}{
		{"missing", `{"projects":[{"id":3,"name":"A",` + board + `},{"id":5,"name":"B",` + board + `}]}`, 3},
		{"deleted project", `{"projects":[{"id":3,"name":"A",` + board + `},{"id":5,"name":"B",` + board + `}],"activeProjectId":7}`, 3},
		{"valid", `{"projects":[{"id":3,"name":"A",` + board + `},{"id":5,"name":"B",` + board + `}],"activeProjectId":5}`, 5},
		{"no projects", `{"projects":[],"activeProjectId":4}`, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st, err := DecodeState([]byte(tc.doc))
			if err != nil {
				t.Fatalf("DecodeState() error = %v", err)
			}
			if st.ActiveProjectID != tc.want {
				t.Fatalf("active = %d, want %d", st.ActiveProjectID, tc.want)
			}
		})
	}
}

func TestDecodeLegacyBoardColumnsShape(t *testing.T) {
	doc := `{"columns":[
		{"name":"ToDo","tasks":[{"title":"fix bug","tags":["bug"]},{"title":"   ","tags":[]}]},
		{"name":"Done","tasks":[{"id":7,"title":"shipped","description":"d","tags":["a","a"," "]}]}
	]}`
	board, err := DecodeLegacyBoard([]byte(doc))
	if err != nil {
		t.Fatalf("DecodeLegacyBoard() error = %v", err)
	}
	todo := board.Columns[domain.ToDo].Tasks
	if len(todo) != 1 || todo[0].Title != "fix bug" || !reflect.DeepEqual(todo[0].Tags, []string{"bug"}) {
		t.Fatalf("unexpected ToDo tasks %#v", todo)
	}
	if todo[0].ID != 8 {
		t.Fatalf("expected missing id assigned after max, got %d", todo[0].ID)
	}
	done := board.Columns[domain.Done].Tasks
	if len(done) != 1 || done[0].ID != 7 || !reflect.DeepEqual(done[0].Tags, []string{"a"}) {
		t.Fatalf("unexpected Done tasks %#v", done)
	}
	if board.Columns[domain.InProgress].Tasks != nil || board.Columns[domain.Testing].Tasks != nil {
		t.Fatal("expected missing columns to be empty")
	}
}

func TestDecodeLegacyBoardKeyedShape(t *testing.T) {
	doc := `{"todo":[{"id":1,"title":"a"}],"in_progress":[{"id":1,"title":"b"}],"done":[{"id":"x","title":"c","tags":["feature"]}]}`
	board, err := DecodeLegacyBoard([]byte(doc))
	if err != nil {
		t.Fatalf("DecodeLegacyBoard() error = %v", err)
	}
	st := domain.State{Projects: []domain.Project{{ID: 1, Name: "Default", Board: board}}, ActiveProjectID: 1}
	if err := st.Validate(); err != nil {
		t.Fatalf("legacy board produced invalid state: %v", err)
	}
	if st.TaskCount() != 3 {
		t.Fatalf("expected 3 tasks, got %d", st.TaskCount())
	}
	if got := board.Columns[domain.Done].Tasks[0].Tags; !reflect.DeepEqual(got, []string{"feature"}) {
		t.Fatalf("unexpected tags %#v", got)
	}
}

func TestDecodeLegacyBoardRejectsUnknownShapes(t *testing.T) {
	for _, doc := range []string{`{}`, `[]`, `{"columns":[{"name":"Backlog","tasks":[]}]}`, `{"columns": 4}`} {
		if _, err := DecodeLegacyBoard([]byte(doc)); !errors.Is(err, ErrCorruptState) {
			t.Fatalf("DecodeLegacyBoard(%s) expected ErrCorruptState, got %v", doc, err)
		}
	}
}

func TestDecodeLegacyProjects(t *testing.T) {
	doc := `[
		{"name":"Work","board":{"todo":[{"id":1,"title":"plan"}],"in_progress":[],"testing":[],"done":[{"id":2,"title":"ship","tags":["feature"]}]}},
		{"name":"  ","board":{"todo":[{"id":1,"title":"groceries"}],"in_progress":[],"testing":[],"done":[]}}
	]`
	st, err := DecodeLegacyProjects([]byte(doc), "Inbox")
	if err != nil {
		t.Fatalf("DecodeLegacyProjects() error = %v", err)
	}
	if len(st.Projects) != 2 || st.Projects[0].Name != "Work" || st.Projects[1].Name != "Inbox" {
		t.Fatalf("unexpected projects %#v", st.Projects)
	}
	if st.ActiveProjectID != st.Projects[0].ID {
		t.Fatalf("active = %d, want first project", st.ActiveProjectID)
	}
	if st.TaskCount() != 3 {
		t.Fatalf("expected 3 tasks, got %d", st.TaskCount())
	}
	groceries := st.Projects[1].Board.Columns[domain.ToDo].Tasks[0]
	if groceries.ID != 3 {
		t.Fatalf("expected clashing id renumbered to 3, got %d", groceries.ID)
	}
	if err := st.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestDecodeLegacyProjectsRejectsCorruptInput(t *testing.T) {
	for _, doc := range []string{`{"name":"x"}`, `[{"name":"x"}]`, `[{"name":"x","board":{}}]`, `[`} {
		if _, err := DecodeLegacyProjects([]byte(doc), ""); !errors.Is(err, ErrCorruptState) {
			t.Fatalf("DecodeLegacyProjects(%s) expected ErrCorruptState, got %v", doc, err)
		}
	}
}

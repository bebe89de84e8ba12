package app

import (
	"context"
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/evanschultz/tuikan/internal/domain"
)

// memStore is an in-memory Store that records saves.
type memStore struct {
	state   domain.State
	has     bool
	loadErr error
	saveErr error
	saves   int
}

func (m *memStore) Load(context.Context) (domain.State, error) {
	if m.loadErr != nil {
		return domain.State{}, m.loadErr
	}
	if !m.has {
		return domain.State{}, ErrStateNotFound
	}
	return m.state.Clone(), nil
}

func (m *memStore) Save(_ context.Context, st domain.State) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.state = st.Clone()
	m.has = true
	m.saves++
	return nil
}

// memLegacy serves fixed legacy bytes.
type memLegacy struct {
	data []byte
	err  error
}

func (m memLegacy) ReadLegacy(context.Context) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.data == nil {
		return nil, ErrStateNotFound
	}
	return m.data, nil
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestLoadStatePrefersCurrentStore(t *testing.T) {
	current := reachableState(t)
	store := &memStore{state: current, has: true}
	legacy := memLegacy{data: []byte(`{"columns":[{"name":"ToDo","tasks":[{"title":"old"}]}]}`)}

	st, report := LoadState(context.Background(), store, legacy, LoadOptions{Logger: quietLogger()})
	if report.Source != SourceCurrent || report.Warning != "" {
		t.Fatalf("unexpected report %#v", report)
	}
	if !reflect.DeepEqual(st, current) {
		t.Fatalf("unexpected state %#v", st)
	}
	if store.saves != 0 {
		t.Fatalf("expected no save, got %d", store.saves)
	}
}

func TestLoadStateMigratesLegacyBoard(t *testing.T) {
	store := &memStore{}
	legacy := memLegacy{data: []byte(`{"columns":[{"name":"ToDo","tasks":[{"title":"fix bug","tags":["bug"]}]}]}`)}

	st, report := LoadState(context.Background(), store, legacy, LoadOptions{Logger: quietLogger()})
	if report.Source != SourceMigrated || report.Err != nil {
		t.Fatalf("unexpected report %#v", report)
	}
	if len(st.Projects) != 1 || st.Projects[0].Name != DefaultProjectName {
		t.Fatalf("expected one default project, got %#v", st.Projects)
	}
	if st.ActiveProjectID != st.Projects[0].ID {
		t.Fatal("expected migrated project to be active")
	}
	todo := st.Projects[0].Board.Columns[domain.ToDo].Tasks
	if len(todo) != 1 || todo[0].Title != "fix bug" || !reflect.DeepEqual(todo[0].Tags, []string{"bug"}) {
		t.Fatalf("unexpected migrated tasks %#v", todo)
	}
	if store.saves != 1 || !reflect.DeepEqual(store.state, st) {
		t.Fatalf("expected migrated state saved once, saves=%d", store.saves)
	}
}

func TestLoadStateMigrationUsesConfiguredName(t *testing.T) {
	store := &memStore{}
	legacy := memLegacy{data: []byte(`{"todo":[{"title":"a"}]}`)}
	st, _ := LoadState(context.Background(), store, legacy, LoadOptions{DefaultProjectName: "Inbox", Logger: quietLogger()})
	if len(st.Projects) != 1 || st.Projects[0].Name != "Inbox" {
		t.Fatalf("unexpected projects %#v", st.Projects)
	}
}

func TestLoadStateMigrationSaveFailureStillReturnsState(t *testing.T) {
	store := &memStore{saveErr: errors.New("disk full")}
	legacy := memLegacy{data: []byte(`{"columns":[{"name":"ToDo","tasks":[{"title":"keep"}]}]}`)}
	st, report := LoadState(context.Background(), store, legacy, LoadOptions{Logger: quietLogger()})
	if report.Source != SourceMigrated || report.Warning == "" || report.Err == nil {
		t.Fatalf("unexpected report %#v", report)
	}
	if st.TaskCount() != 1 {
		t.Fatalf("expected migrated task, got %d", st.TaskCount())
	}
}

func TestLoadStateFallsBackToEmpty(t *testing.T) {
	cases := []struct {
		name        string
		store       *memStore
		legacy      LegacySource
		wantWarning bool
	}{
		{name: "nothing saved", store: &memStore{}, legacy: memLegacy{}},
		{name: "no legacy source", store: &memStore{}, legacy: nil},
		{name: "corrupt current", store: &memStore{loadErr: ErrCorruptState}, legacy: memLegacy{}, wantWarning: true},
		{name: "unreadable current", store: &memStore{loadErr: errors.New("permission denied")}, legacy: memLegacy{}, wantWarning: true},
		{name: "corrupt legacy", store: &memStore{}, legacy: memLegacy{data: []byte("{nope")}, wantWarning: true},
		{name: "unreadable legacy", store: &memStore{}, legacy: memLegacy{err: errors.New("permission denied")}, wantWarning: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st, report := LoadState(context.Background(), tc.store, tc.legacy, LoadOptions{Logger: quietLogger()})
			if report.Source != SourceEmpty {
				t.Fatalf("source = %v, want empty", report.Source)
			}
			if (report.Warning != "") != tc.wantWarning {
				t.Fatalf("warning = %q, want warning %v", report.Warning, tc.wantWarning)
			}
			if st.Projects != nil || st.ActiveProjectID != 0 {
				t.Fatalf("expected empty state, got %#v", st)
			}
			if tc.store.saves != 0 {
				t.Fatalf("expected no save, got %d", tc.store.saves)
			}
		})
	}
}

func TestLoadStatePrefersLegacyProjectsOverBoard(t *testing.T) {
	store := &memStore{}
	board := memLegacy{data: []byte(`{"todo":[{"title":"from board"}]}`)}
	projects := memLegacy{data: []byte(`[{"name":"Work","board":{"todo":[{"title":"a"}],"in_progress":[],"testing":[],"done":[]}},` +
		`{"name":"Home","board":{"todo":[],"in_progress":[],"testing":[],"done":[{"title":"b"}]}}]`)}

	st, report := LoadState(context.Background(), store, board, LoadOptions{LegacyProjects: projects, Logger: quietLogger()})
	if report.Source != SourceMigrated || report.Warning != "" {
		t.Fatalf("unexpected report %#v", report)
	}
	if len(st.Projects) != 2 || st.Projects[0].Name != "Work" || st.Projects[1].Name != "Home" {
		t.Fatalf("unexpected projects %#v", st.Projects)
	}
	if store.saves != 1 || !reflect.DeepEqual(store.state, st) {
		t.Fatalf("expected migrated projects saved once, saves=%d", store.saves)
	}
}

func TestLoadStateFallsThroughCorruptLegacyProjects(t *testing.T) {
	store := &memStore{}
	board := memLegacy{data: []byte(`{"todo":[{"title":"from board"}]}`)}
	projects := memLegacy{data: []byte(`{nope`)}

	st, report := LoadState(context.Background(), store, board, LoadOptions{LegacyProjects: projects, Logger: quietLogger()})
	if report.Source != SourceMigrated {
		t.Fatalf("source = %v, want migrated", report.Source)
	}
	if report.Warning == "" || !errors.Is(report.Err, ErrCorruptState) {
		t.Fatalf("expected warning about the legacy projects file, got %#v", report)
	}
	if len(st.Projects) != 1 || st.Projects[0].Board.Columns[domain.ToDo].Tasks[0].Title != "from board" {
		t.Fatalf("unexpected state %#v", st.Projects)
	}
}

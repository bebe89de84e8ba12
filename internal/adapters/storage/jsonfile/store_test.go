package jsonfile

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/evanschultz/tuikan/internal/app"
	"github.com/evanschultz/tuikan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuikan", "projects.json")
	store, err := New(path)
	require.NoError(t, err)
	return store, path
}

func sampleState(t *testing.T) domain.State {
	t.Helper()
	st := domain.NewState()
	pid, err := st.CreateProject("Work")
	require.NoError(t, err)
	id, err := st.CreateTask(pid, domain.ToDo, "write docs")
	require.NoError(t, err)
	require.NoError(t, st.AddTag(id, "urgent"))
	return st
}

func TestNewRequiresPath(t *testing.T) {
	_, err := New(" ")
	require.Error(t, err)
}

func TestStoreLoadMissing(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Load(context.Background())
	require.ErrorIs(t, err, app.ErrStateNotFound)
}

func TestStoreSaveCreatesDirectoryAndRoundTrips(t *testing.T) {
	ctx := context.Background()
	store, path := newTestStore(t)
	want := sampleState(t)

	require.NoError(t, store.Save(ctx, want))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	encoded, err := app.EncodeState(want)
	require.NoError(t, err)
	assert.Equal(t, string(encoded), string(data))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStoreSaveLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	store, path := newTestStore(t)
	st := sampleState(t)
	for range 3 {
		require.NoError(t, store.Save(ctx, st))
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "projects.json", entries[0].Name())
}

func TestStoreSaveFailureWrapsErrSaveFailed(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	store, err := New(filepath.Join(blocker, "projects.json"))
	require.NoError(t, err)
	err = store.Save(context.Background(), sampleState(t))
	require.ErrorIs(t, err, app.ErrSaveFailed)
}

func TestStoreQuarantinesCorruptFile(t *testing.T) {
	store, path := newTestStore(t)
	store.now = func() time.Time { return time.Date(2026, 10, 18, 7, 5, 9, 0, time.UTC) }
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`{"projects":`), 0o644))

	_, err := store.Load(context.Background())
	require.ErrorIs(t, err, app.ErrCorruptState)

	aside := path + ".corrupt-20261018T070509Z"
	assert.Contains(t, err.Error(), aside)
	data, readErr := os.ReadFile(aside)
	require.NoError(t, readErr)
	assert.Equal(t, `{"projects":`, string(data))
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	listed, err := store.ListQuarantined(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{aside}, listed)
}

func TestStoreListQuarantinedMissingDir(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "absent", "projects.json"))
	require.NoError(t, err)
	listed, err := store.ListQuarantined(context.Background())
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestLegacyFileRead(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	_, err := LegacyFile{Path: filepath.Join(dir, "board.json")}.ReadLegacy(ctx)
	require.ErrorIs(t, err, app.ErrStateNotFound)
	_, err = LegacyFile{}.ReadLegacy(ctx)
	require.ErrorIs(t, err, app.ErrStateNotFound)

	path := filepath.Join(dir, "board.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"columns":[]}`), 0o644))
	data, err := LegacyFile{Path: path}.ReadLegacy(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"columns":[]}`, string(data))
}

func TestLoadStateMigratesLegacyFile(t *testing.T) {
	ctx := context.Background()
	store, path := newTestStore(t)
	legacyPath := filepath.Join(t.TempDir(), "board.json")
	legacyDoc := `{"columns":[{"name":"ToDo","tasks":[{"title":"fix bug","tags":["bug"]}]},{"name":"InProgress","tasks":[]},{"name":"Testing","tasks":[]},{"name":"Done","tasks":[]}]}`
	require.NoError(t, os.WriteFile(legacyPath, []byte(legacyDoc), 0o644))

	st, report := app.LoadState(ctx, store, LegacyFile{Path: legacyPath}, app.LoadOptions{Logger: log.New(io.Discard)})
	require.Equal(t, app.SourceMigrated, report.Source)
	require.Empty(t, report.Warning)
	require.Len(t, st.Projects, 1)
	assert.Equal(t, app.DefaultProjectName, st.Projects[0].Name)
	assert.Equal(t, st.Projects[0].ID, st.ActiveProjectID)
	todo := st.Projects[0].Board.Columns[domain.ToDo].Tasks
	require.Len(t, todo, 1)
	assert.Equal(t, "fix bug", todo[0].Title)
	assert.Equal(t, []string{"bug"}, todo[0].Tags)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"fix bug"`))
	reloaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, st, reloaded)

	legacyAfter, err := os.ReadFile(legacyPath)
	require.NoError(t, err)
	assert.Equal(t, legacyDoc, string(legacyAfter))
}

func TestLoadStateMigratesLegacyProjectsFile(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	dir := t.TempDir()
	boardPath := filepath.Join(dir, "board.json")
	projectsPath := filepath.Join(dir, "legacy-projects.json")
	require.NoError(t, os.WriteFile(boardPath, []byte(`{"todo":[{"title":"ignored"}]}`), 0o644))
	projectsDoc := `[{"name":"Work","board":{"todo":[{"id":1,"title":"plan"}],"in_progress":[],"testing":[{"id":2,"title":"verify","tags":["bug"]}],"done":[]}},` +
		`{"name":"Home","board":{"todo":[],"in_progress":[],"testing":[],"done":[{"id":1,"title":"laundry"}]}}]`
	require.NoError(t, os.WriteFile(projectsPath, []byte(projectsDoc), 0o644))

	st, report := app.LoadState(ctx, store, LegacyFile{Path: boardPath}, app.LoadOptions{
		LegacyProjects: LegacyFile{Path: projectsPath},
		Logger:         log.New(io.Discard),
	})
	require.Equal(t, app.SourceMigrated, report.Source)
	require.Empty(t, report.Warning)
	require.Len(t, st.Projects, 2)
	assert.Equal(t, "Work", st.Projects[0].Name)
	assert.Equal(t, "Home", st.Projects[1].Name)
	assert.Equal(t, 3, st.TaskCount())
	require.NoError(t, st.Validate())

	reloaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, st, reloaded)

	after, err := os.ReadFile(projectsPath)
	require.NoError(t, err)
	assert.Equal(t, projectsDoc, string(after))
}

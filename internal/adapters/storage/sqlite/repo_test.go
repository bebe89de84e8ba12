package sqlite

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/evanschultz/tuikan/internal/app"
	"github.com/evanschultz/tuikan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// putRawDocument stores document without validation.
func (s *Store) putRawDocument(ctx context.Context, document string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO state_documents(id, document, saved_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET document = excluded.document, saved_at = excluded.saved_at
	`, stateRowID, document, ts(s.now()))
	return err
}

func sampleState(t *testing.T) domain.State {
	t.Helper()
	st := domain.NewState()
	pid, err := st.CreateProject("Work")
	require.NoError(t, err)
	id, err := st.CreateTask(pid, domain.ToDo, "write tests")
	require.NoError(t, err)
	require.NoError(t, st.AddTag(id, "feature"))
	require.NoError(t, st.SetDescription(id, "cover the sqlite store"))
	_, err = st.MoveTask(id, domain.Forward)
	require.NoError(t, err)
	_, err = st.CreateProject("Home")
	require.NoError(t, err)
	return st
}

func TestStoreLoadMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Load(context.Background())
	require.ErrorIs(t, err, app.ErrStateNotFound)
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	want := sampleState(t)

	require.NoError(t, store.Save(ctx, want))
	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// A second save replaces the single row.
	_, err = want.CreateTask(want.ActiveProjectID, domain.Done, "ship")
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, want))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	var rows int
	require.NoError(t, store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM state_documents`).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestStoreQuarantinesCorruptDocument(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	at := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return at }

	require.NoError(t, store.putRawDocument(ctx, `{"projects":[{"id":1}]`))

	_, err := store.Load(ctx)
	require.ErrorIs(t, err, app.ErrCorruptState)
	assert.Contains(t, err.Error(), "quarantine row 1")

	quarantined, err := store.ListQuarantined(ctx)
	require.NoError(t, err)
	require.Len(t, quarantined, 1)
	assert.Equal(t, `{"projects":[{"id":1}]`, quarantined[0].Document)
	assert.True(t, quarantined[0].QuarantinedAt.Equal(at))
	assert.NotEmpty(t, quarantined[0].Reason)

	_, err = store.Load(ctx)
	require.ErrorIs(t, err, app.ErrStateNotFound)
}

func TestStoreLoadStateFallsBackAfterCorruption(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.putRawDocument(ctx, `not json`))

	st, report := app.LoadState(ctx, store, nil, app.LoadOptions{Logger: log.New(io.Discard)})
	assert.Equal(t, app.SourceEmpty, report.Source)
	assert.NotEmpty(t, report.Warning)
	assert.Empty(t, st.Projects)
}

func TestOpenFileDatabasePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "tuikan.db")
	want := sampleState(t)

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, want))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	got, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}

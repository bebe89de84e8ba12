package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanschultz/tuikan/internal/app"
	"github.com/evanschultz/tuikan/internal/domain"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// stateRowID is the single row holding the current document.
const stateRowID = 1

// Store keeps the encoded state document in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// QuarantinedDocument is a stored document that failed to decode.
type QuarantinedDocument struct {
	ID            int64
	Document      string
	Reason        string
	QuarantinedAt time.Time
}

// Open opens the requested operation.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	return newStore(db)
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*Store, error) {
	dsn := fmt.Sprintf("file:tuikan-%s?mode=memory&cache=shared", uuid.NewString())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	db.SetMaxOpenConns(1)
	return newStore(db)
}

func newStore(db *sql.DB) (*Store, error) {
	store := &Store{db: db, now: time.Now}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the requested operation.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate handles migrate.
func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS state_documents (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			document TEXT NOT NULL,
			saved_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS state_quarantine (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			document TEXT NOT NULL,
			reason TEXT NOT NULL,
			quarantined_at TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// Load returns the stored state. A document that cannot be decoded is moved
// to the quarantine table and reported as app.ErrCorruptState.
func (s *Store) Load(ctx context.Context) (domain.State, error) {
	var document string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM state_documents WHERE id = ?`, stateRowID).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.State{}, app.ErrStateNotFound
	}
	if err != nil {
		return domain.State{}, fmt.Errorf("read state document: %w", err)
	}
	st, decodeErr := app.DecodeState([]byte(document))
	if decodeErr == nil {
		return st, nil
	}
	quarantineID, err := s.quarantine(ctx, document, decodeErr.Error())
	if err != nil {
		return domain.State{}, fmt.Errorf("quarantine state document: %w (decode: %w)", err, decodeErr)
	}
	return domain.State{}, fmt.Errorf("state document moved to quarantine row %d: %w", quarantineID, decodeErr)
}

// quarantine moves the current document aside in one transaction.
func (s *Store) quarantine(ctx context.Context, document, reason string) (id int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO state_quarantine(document, reason, quarantined_at)
		VALUES (?, ?, ?)
	`, document, reason, ts(s.now()))
	if err != nil {
		return 0, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM state_documents WHERE id = ?`, stateRowID); err != nil {
		return 0, err
	}
	err = tx.Commit()
	return id, err
}

// Save replaces the stored document inside a transaction.
func (s *Store) Save(ctx context.Context, st domain.State) (err error) {
	document, err := app.EncodeState(st)
	if err != nil {
		return fmt.Errorf("%w: %w", app.ErrSaveFailed, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", app.ErrSaveFailed, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO state_documents(id, document, saved_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document = excluded.document,
			saved_at = excluded.saved_at
	`, stateRowID, string(document), ts(s.now()))
	if err != nil {
		return fmt.Errorf("%w: write document: %w", app.ErrSaveFailed, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", app.ErrSaveFailed, err)
	}
	return nil
}

// ListQuarantined returns quarantined documents, oldest first.
func (s *Store) ListQuarantined(ctx context.Context) ([]QuarantinedDocument, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document, reason, quarantined_at
		FROM state_quarantine
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]QuarantinedDocument, 0)
	for rows.Next() {
		var (
			doc   QuarantinedDocument
			atRaw string
		)
		if err := rows.Scan(&doc.ID, &doc.Document, &doc.Reason, &atRaw); err != nil {
			return nil, err
		}
		doc.QuarantinedAt = parseTS(atRaw)
		out = append(out, doc)
	}
	return out, rows.Err()
}

// ts formats a timestamp for storage.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses a stored timestamp, returning the zero time on failure.
func parseTS(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

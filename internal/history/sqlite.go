package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps history in a single SQLite table. Row ids give the
// storage order, and an upsert keeps an entry's id when its weight changes.
type SQLiteStore struct {
	db        *sql.DB
	closeOnce sync.Once
	closeErr  error
}

// NewSQLiteStore opens or creates the database at dbPath and applies any
// pending migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) Insert(collection, key string, entry Entry) error {
	_, err := s.db.Exec(`
		INSERT INTO history (collection, key, weight, query, kind, path, name, icon, updated_at_unix_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, key) DO UPDATE SET
			weight = excluded.weight,
			query = excluded.query,
			kind = excluded.kind,
			path = excluded.path,
			name = excluded.name,
			icon = excluded.icon,
			updated_at_unix_ms = excluded.updated_at_unix_ms
	`, collection, key, entry.Weight, entry.Query, entry.Kind, entry.Path, entry.Name, entry.Icon, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetByKey(collection, key string) (*Entry, error) {
	row := s.db.QueryRow(`
		SELECT weight, query, kind, path, name, icon FROM history
		WHERE collection = ? AND key = ?
	`, collection, key)

	var e Entry
	if err := row.Scan(&e.Weight, &e.Query, &e.Kind, &e.Path, &e.Name, &e.Icon); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history entry: %w", err)
	}
	return &e, nil
}

func (s *SQLiteStore) GetAll(collection string) ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT weight, query, kind, path, name, icon FROM history
		WHERE collection = ?
		ORDER BY id
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Weight, &e.Query, &e.Kind, &e.Path, &e.Name, &e.Icon); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close is safe to call more than once.
func (s *SQLiteStore) Close() error {
	s.closeOnce.Do(func() {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	currentVersion := 0
	row := s.db.QueryRowContext(ctx, `SELECT version FROM schema_meta ORDER BY version DESC LIMIT 1`)
	if err := row.Scan(&currentVersion); err != nil {
		if !errors.Is(err, sql.ErrNoRows) && !strings.Contains(err.Error(), "no such table") {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		currentVersion = 0
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{version: 1, sql: migrationV1},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("migration v%d failed: %w", m.version, err)
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT OR REPLACE INTO schema_meta (version, applied_at_unix_ms) VALUES (?, ?)
		`, m.version, time.Now().UnixMilli())
		if err != nil {
			return fmt.Errorf("failed to record migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const migrationV1 = `
CREATE TABLE IF NOT EXISTS schema_meta (
  version INTEGER PRIMARY KEY,
  applied_at_unix_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS history (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  collection TEXT NOT NULL,
  key TEXT NOT NULL,
  weight INTEGER NOT NULL DEFAULT 0,
  query TEXT NOT NULL DEFAULT '',
  kind TEXT NOT NULL DEFAULT '',
  path TEXT NOT NULL DEFAULT '',
  name TEXT NOT NULL DEFAULT '',
  icon TEXT NOT NULL DEFAULT '',
  updated_at_unix_ms INTEGER NOT NULL,
  UNIQUE(collection, key)
);

CREATE INDEX IF NOT EXISTS idx_history_collection ON history(collection, id);
`

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite home of a structural index: the nodes, dominance,
// precedence, metadata and roots relations plus corpus-level metadata.
//
// All relations are append-only. Writes go through a single Builder at a
// time; reads may run concurrently once writing has stopped.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens the index database at dbPath, or a private in-memory
// database when dbPath is empty. LIKE is case-sensitive on every
// connection so label patterns match exactly as they do in memory.
func NewStore(dbPath string) (*Store, error) {
	name := dbPath
	if name == "" {
		name = ":memory:"
	}
	db, err := sql.Open("sqlite3", name+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000&_cslike=1")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: a single writer, and an in-memory database lives
	// only as long as its connection.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database path, "" for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// Migrate creates the index tables and indexes and stamps a build id.
// Idempotent.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	_, err := s.db.Exec(`INSERT OR IGNORE INTO index_info (key, value) VALUES ('build_id', ?)`, uuid.NewString())
	if err != nil {
		return fmt.Errorf("migrate: stamp build id: %w", err)
	}
	return nil
}

// BuildID returns the id stamped on the index when it was created.
func (s *Store) BuildID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM index_info WHERE key = 'build_id'`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("build id: index not migrated")
	}
	if err != nil {
		return "", fmt.Errorf("build id: %w", err)
	}
	return id, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS nodes (
  id     INTEGER PRIMARY KEY,
  label  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS dominance (
  ancestor    INTEGER NOT NULL REFERENCES nodes(id),
  descendant  INTEGER NOT NULL REFERENCES nodes(id),
  depth       INTEGER NOT NULL,
  PRIMARY KEY (ancestor, descendant)
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS precedence (
  "left"    INTEGER NOT NULL REFERENCES nodes(id),
  "right"   INTEGER NOT NULL REFERENCES nodes(id),
  distance  INTEGER NOT NULL,
  PRIMARY KEY ("left", "right")
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS metadata (
  node_id  INTEGER NOT NULL REFERENCES nodes(id),
  key      TEXT NOT NULL,
  value    TEXT NOT NULL,
  kind     TEXT NOT NULL,
  UNIQUE (node_id, key)
);

CREATE TABLE IF NOT EXISTS roots (
  ordinal  INTEGER PRIMARY KEY,
  node_id  INTEGER NOT NULL UNIQUE REFERENCES nodes(id)
);

CREATE TABLE IF NOT EXISTS corpus_metadata (
  key    TEXT PRIMARY KEY,
  value  TEXT NOT NULL,
  kind   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS index_info (
  key    TEXT PRIMARY KEY,
  value  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_nodes_label ON nodes(label);
CREATE INDEX IF NOT EXISTS idx_dominance_descendant ON dominance(descendant, depth);
CREATE INDEX IF NOT EXISTS idx_precedence_right ON precedence("right", distance);
CREATE INDEX IF NOT EXISTS idx_metadata_key_value ON metadata(key, value);
`

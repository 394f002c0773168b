package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite for single-node deployments
// and local development. Migrations are applied on open.
type SQLiteStore struct {
	sqlStore
}

// NewSQLiteStore opens (or creates) a sqlite-backed store at path.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows one writer at a time; a pooled connection per writer
	// just turns lock contention into SQLITE_BUSY errors.
	db.SetMaxOpenConns(1)

	if err := Migrate(ctx, db, "sqlite"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return &SQLiteStore{sqlStore{db: db}}, nil
}

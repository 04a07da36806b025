package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver
)

const defaultPragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS loan_decisions (
		id                    INTEGER PRIMARY KEY AUTOINCREMENT,
		age                   REAL NOT NULL,
		income                REAL NOT NULL,
		loan_amount           REAL NOT NULL,
		credit_score          REAL NOT NULL,
		dti_ratio             REAL NOT NULL,
		education             TEXT NOT NULL,
		employment_type       TEXT NOT NULL,
		prediction_label      INTEGER NOT NULL CHECK (prediction_label IN (0, 1)),
		probability_of_reject REAL CHECK (probability_of_reject BETWEEN 0 AND 1),
		hints                 TEXT NOT NULL DEFAULT '[]',
		created_at            INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS loan_decisions_created_at_idx ON loan_decisions (created_at)`,
}

// DB wraps a SQLite database file
type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the SQLite file at path and verifies the connection
func Open(ctx context.Context, path string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Migrate creates the schema if it does not exist yet
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

func dsn(path string) string {
	if strings.HasPrefix(path, "file:") {
		if strings.Contains(path, "?") {
			return path + "&" + defaultPragmas
		}
		return path + "?" + defaultPragmas
	}
	return "file:" + path + "?" + defaultPragmas
}

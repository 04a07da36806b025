package postgres

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS loan_decisions (
		id                    BIGSERIAL PRIMARY KEY,
		age                   DOUBLE PRECISION NOT NULL,
		income                DOUBLE PRECISION NOT NULL,
		loan_amount           DOUBLE PRECISION NOT NULL,
		credit_score          DOUBLE PRECISION NOT NULL,
		dti_ratio             DOUBLE PRECISION NOT NULL,
		education             TEXT NOT NULL,
		employment_type       TEXT NOT NULL,
		prediction_label      SMALLINT NOT NULL CHECK (prediction_label IN (0, 1)),
		probability_of_reject DOUBLE PRECISION CHECK (probability_of_reject BETWEEN 0 AND 1),
		hints                 TEXT[] NOT NULL DEFAULT '{}',
		created_at            TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS loan_decisions_created_at_idx ON loan_decisions (created_at)`,
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

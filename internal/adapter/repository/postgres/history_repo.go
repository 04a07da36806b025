package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/simaogato/loanscore-backend/internal/domain"
)

// historyAppendLock is the advisory lock key serializing history appends
const historyAppendLock int64 = 0x6c6f616e

// historyRepository implements domain.HistoryRepository
type historyRepository struct {
	db  *DB
	now func() time.Time
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *DB) domain.HistoryRepository {
	return &historyRepository{db: db, now: time.Now}
}

// Append stores the application and its decision in a single database transaction.
// Appenders are serialized on an advisory lock so IDs commit in the order they are assigned.
func (r *historyRepository) Append(ctx context.Context, input domain.ApplicationInput, decision domain.Decision) (*domain.HistoryRecord, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, appendError(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, historyAppendLock); err != nil {
		return nil, appendError(fmt.Errorf("failed to acquire append lock: %w", err))
	}

	query := `
		INSERT INTO loan_decisions (
			age, income, loan_amount, credit_score, dti_ratio,
			education, employment_type,
			prediction_label, probability_of_reject, hints, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	var probability sql.NullFloat64
	if decision.ProbabilityOfReject != nil {
		probability = sql.NullFloat64{Float64: *decision.ProbabilityOfReject, Valid: true}
	}

	createdAt := r.now().UTC()
	var id int64
	err = dbTx.QueryRowContext(ctx, query,
		input.Age,
		input.Income,
		input.LoanAmount,
		input.CreditScore,
		input.DTIRatio,
		string(input.Education),
		string(input.EmploymentType),
		decision.Label.Prediction(),
		probability,
		pq.Array(decision.Hints),
		createdAt,
	).Scan(&id)
	if err != nil {
		return nil, appendError(fmt.Errorf("failed to insert decision: %w", err))
	}

	if err := dbTx.Commit(); err != nil {
		return nil, appendError(fmt.Errorf("failed to commit transaction: %w", err))
	}

	return &domain.HistoryRecord{
		ID:        id,
		Input:     input,
		Decision:  decision,
		CreatedAt: createdAt,
	}, nil
}

// ListAll retrieves every decision, most recent first
func (r *historyRepository) ListAll(ctx context.Context) ([]*domain.HistoryRecord, error) {
	query := `
		SELECT id, age, income, loan_amount, credit_score, dti_ratio,
		       education, employment_type,
		       prediction_label, probability_of_reject, hints, created_at
		FROM loan_decisions
		ORDER BY id DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list", Err: fmt.Errorf("failed to list decisions: %w", err)}
	}
	defer rows.Close()

	records := make([]*domain.HistoryRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, &domain.PersistenceError{Op: "list", Err: err}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.PersistenceError{Op: "list", Err: fmt.Errorf("failed to iterate decisions: %w", err)}
	}

	return records, nil
}

// Delete removes one decision by ID
func (r *historyRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM loan_decisions WHERE id = $1`, id)
	if err != nil {
		return &domain.PersistenceError{Op: "delete", Err: fmt.Errorf("failed to delete decision: %w", err)}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &domain.PersistenceError{Op: "delete", Err: fmt.Errorf("failed to read affected rows: %w", err)}
	}
	if affected == 0 {
		return fmt.Errorf("decision %d: %w", id, domain.ErrRecordNotFound)
	}

	return nil
}

func scanRecord(rows *sql.Rows) (*domain.HistoryRecord, error) {
	var record domain.HistoryRecord
	var education, employment string
	var prediction int
	var probability sql.NullFloat64
	var hints []string

	err := rows.Scan(
		&record.ID,
		&record.Input.Age,
		&record.Input.Income,
		&record.Input.LoanAmount,
		&record.Input.CreditScore,
		&record.Input.DTIRatio,
		&education,
		&employment,
		&prediction,
		&probability,
		pq.Array(&hints),
		&record.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan decision: %w", err)
	}

	record.Input.Education = domain.Education(education)
	record.Input.EmploymentType = domain.EmploymentType(employment)

	var p *float64
	if probability.Valid {
		p = &probability.Float64
	}
	decision, err := domain.RestoreDecision(prediction, p, hints)
	if err != nil {
		return nil, fmt.Errorf("failed to restore decision %d: %w", record.ID, err)
	}
	record.Decision = decision
	record.CreatedAt = record.CreatedAt.UTC()

	return &record, nil
}

func appendError(err error) error {
	return &domain.PersistenceError{Op: "append", Err: err}
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/simaogato/loanscore-backend/internal/domain"
)

// historyRepository implements domain.HistoryRepository on a local SQLite file.
// SQLite allows one writer at a time, so appends are serialized in-process.
type historyRepository struct {
	db  *DB
	now func() time.Time
	mu  sync.Mutex
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *DB) domain.HistoryRepository {
	return &historyRepository{db: db, now: time.Now}
}

// Append stores the application and its decision in a single transaction
func (r *historyRepository) Append(ctx context.Context, input domain.ApplicationInput, decision domain.Decision) (*domain.HistoryRecord, error) {
	hints := decision.Hints
	if hints == nil {
		hints = []string{}
	}
	encodedHints, err := json.Marshal(hints)
	if err != nil {
		return nil, appendError(fmt.Errorf("failed to encode hints: %w", err))
	}

	var probability sql.NullFloat64
	if decision.ProbabilityOfReject != nil {
		probability = sql.NullFloat64{Float64: *decision.ProbabilityOfReject, Valid: true}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, appendError(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer dbTx.Rollback()

	createdAt := r.now().UTC()
	result, err := dbTx.ExecContext(ctx, `
		INSERT INTO loan_decisions (
			age, income, loan_amount, credit_score, dti_ratio,
			education, employment_type,
			prediction_label, probability_of_reject, hints, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		input.Age,
		input.Income,
		input.LoanAmount,
		input.CreditScore,
		input.DTIRatio,
		string(input.Education),
		string(input.EmploymentType),
		decision.Label.Prediction(),
		probability,
		string(encodedHints),
		createdAt.UnixNano(),
	)
	if err != nil {
		return nil, appendError(fmt.Errorf("failed to insert decision: %w", err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, appendError(fmt.Errorf("failed to read inserted id: %w", err))
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
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, age, income, loan_amount, credit_score, dti_ratio,
		       education, employment_type,
		       prediction_label, probability_of_reject, hints, created_at
		FROM loan_decisions
		ORDER BY id DESC`)
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
	r.mu.Lock()
	defer r.mu.Unlock()

	result, err := r.db.ExecContext(ctx, `DELETE FROM loan_decisions WHERE id = ?`, id)
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
	var education, employment, encodedHints string
	var prediction int
	var probability sql.NullFloat64
	var createdAt int64

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
		&encodedHints,
		&createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan decision: %w", err)
	}

	var hints []string
	if err := json.Unmarshal([]byte(encodedHints), &hints); err != nil {
		return nil, fmt.Errorf("failed to decode hints of decision %d: %w", record.ID, err)
	}

	var p *float64
	if probability.Valid {
		p = &probability.Float64
	}
	decision, err := domain.RestoreDecision(prediction, p, hints)
	if err != nil {
		return nil, fmt.Errorf("failed to restore decision %d: %w", record.ID, err)
	}

	record.Input.Education = domain.Education(education)
	record.Input.EmploymentType = domain.EmploymentType(employment)
	record.Decision = decision
	record.CreatedAt = time.Unix(0, createdAt).UTC()

	return &record, nil
}

func appendError(err error) error {
	return &domain.PersistenceError{Op: "append", Err: err}
}

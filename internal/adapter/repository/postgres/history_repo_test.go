package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/loanscore-backend/internal/domain"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func newMockRepo(t *testing.T) (*historyRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := &historyRepository{
		db:  &DB{DB: db},
		now: func() time.Time { return fixedNow },
	}
	return repo, mock
}

func scenario(t *testing.T) (domain.ApplicationInput, domain.Decision) {
	t.Helper()
	input := domain.ApplicationInput{
		Age:            30,
		Income:         50000,
		LoanAmount:     20000,
		CreditScore:    600,
		DTIRatio:       0.5,
		Education:      domain.EducationBachelors,
		EmploymentType: domain.EmploymentFullTime,
	}
	p := 0.62
	decision, err := domain.ComposeDecision(input, 1, &p)
	require.NoError(t, err)
	return input, decision
}

func TestHistoryRepository_Append(t *testing.T) {
	ctx := context.Background()
	repo, mock := newMockRepo(t)
	input, decision := scenario(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(historyAppendLock).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("INSERT INTO loan_decisions").
		WithArgs(30.0, 50000.0, 20000.0, 600.0, 0.5, "Bachelor's", "Full-time", 1, 0.62, sqlmock.AnyArg(), fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectCommit()

	record, err := repo.Append(ctx, input, decision)

	require.NoError(t, err)
	assert.Equal(t, int64(7), record.ID)
	assert.Equal(t, input, record.Input)
	assert.Equal(t, decision, record.Decision)
	assert.Equal(t, fixedNow, record.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepository_AppendWithoutProbability(t *testing.T) {
	ctx := context.Background()
	repo, mock := newMockRepo(t)
	input, _ := scenario(t)
	decision, err := domain.ComposeDecision(input, 0, nil)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("INSERT INTO loan_decisions").
		WithArgs(30.0, 50000.0, 20000.0, 600.0, 0.5, "Bachelor's", "Full-time", 0, nil, sqlmock.AnyArg(), fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	record, err := repo.Append(ctx, input, decision)

	require.NoError(t, err)
	assert.Nil(t, record.Decision.Confidence)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepository_AppendFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(mock sqlmock.Sqlmock)
	}{
		{
			name: "Begin fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(errors.New("connection refused"))
			},
		},
		{
			name: "Lock fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("pg_advisory_xact_lock").WillReturnError(errors.New("lock timeout"))
				mock.ExpectRollback()
			},
		},
		{
			name: "Insert fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery("INSERT INTO loan_decisions").WillReturnError(errors.New("disk full"))
				mock.ExpectRollback()
			},
		},
		{
			name: "Commit fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery("INSERT INTO loan_decisions").
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
				mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			input, decision := scenario(t)
			tt.setup(mock)

			record, err := repo.Append(context.Background(), input, decision)

			assert.Nil(t, record)
			var perr *domain.PersistenceError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, "append", perr.Op)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

var listColumns = []string{
	"id", "age", "income", "loan_amount", "credit_score", "dti_ratio",
	"education", "employment_type", "prediction_label", "probability_of_reject", "hints", "created_at",
}

func TestHistoryRepository_ListAll(t *testing.T) {
	repo, mock := newMockRepo(t)
	earlier := fixedNow.Add(-24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("FROM loan_decisions")).
		WillReturnRows(sqlmock.NewRows(listColumns).
			AddRow(2, 30.0, 50000.0, 20000.0, 600.0, 0.5, "Bachelor's", "Full-time", 1, 0.62, `{"Low Credit Score","High DTI Ratio"}`, fixedNow).
			AddRow(1, 45.0, 90000.0, 10000.0, 720.0, 0.2, "PhD", "Self-employed", 0, nil, `{}`, earlier))

	records, err := repo.ListAll(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, int64(2), records[0].ID)
	assert.Equal(t, domain.LabelRejected, records[0].Decision.Label)
	assert.Equal(t, 62.0, *records[0].Decision.Confidence)
	assert.Equal(t, []string{domain.HintLowCreditScore, domain.HintHighDTIRatio}, records[0].Decision.Hints)
	assert.Equal(t, domain.EducationBachelors, records[0].Input.Education)

	assert.Equal(t, int64(1), records[1].ID)
	assert.Equal(t, domain.LabelApproved, records[1].Decision.Label)
	assert.Nil(t, records[1].Decision.Confidence)
	assert.Empty(t, records[1].Decision.Hints)
	assert.Equal(t, earlier, records[1].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepository_ListAllEmpty(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("FROM loan_decisions").WillReturnRows(sqlmock.NewRows(listColumns))

	records, err := repo.ListAll(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestHistoryRepository_ListAllFailure(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("FROM loan_decisions").WillReturnError(errors.New("connection reset"))

	_, err := repo.ListAll(context.Background())

	var perr *domain.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "list", perr.Op)
}

func TestHistoryRepository_Delete(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM loan_decisions WHERE id = $1")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM loan_decisions WHERE id = $1")).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.Delete(context.Background(), 3))
	assert.ErrorIs(t, repo.Delete(context.Background(), 4), domain.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS loan_decisions").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, (&DB{DB: db}).Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

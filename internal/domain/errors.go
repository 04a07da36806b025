package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrModelUnavailable is returned by every prediction once the classifier artifact failed to load
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrFeatureMismatch means the feature record and the classifier artifact disagree on feature names or order
	ErrFeatureMismatch = errors.New("feature mismatch between record and model")

	// ErrInvalidApplication means an ApplicationInput reached the feature builder without passing validation
	ErrInvalidApplication = errors.New("invalid application input")

	// ErrInvalidPrediction means the classifier produced a label or probability outside its contract
	ErrInvalidPrediction = errors.New("invalid prediction")

	// ErrRecordNotFound is returned when a history record does not exist
	ErrRecordNotFound = errors.New("history record not found")
)

// ValidationError reports a rejected input field.
// Field holds the raw field name (e.g. "Age"), Message is safe to show to end users.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// PersistenceError wraps a failed History Store operation.
// The operation wrote nothing.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

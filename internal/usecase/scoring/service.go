package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/simaogato/loanscore-backend/internal/domain"
	"github.com/simaogato/loanscore-backend/internal/logging"
	"github.com/simaogato/loanscore-backend/internal/metrics"
)

// Classifier scores a feature record. It is satisfied by *classifier.Adapter.
type Classifier interface {
	Predict(ctx context.Context, features domain.FeatureRecord) (int, error)
	PredictProbability(ctx context.Context, features domain.FeatureRecord) (float64, bool, error)
}

// Options tunes how the service talks to the history store
type Options struct {
	// StorageTimeout bounds each history append attempt. Zero means no bound.
	StorageTimeout time.Duration
	// MaxAttempts is the number of append attempts before giving up
	MaxAttempts int
	// RetryDelay is the wait before the first retry. It doubles on every retry.
	RetryDelay time.Duration
}

// DefaultOptions returns the options used when none are configured
func DefaultOptions() Options {
	return Options{
		StorageTimeout: 5 * time.Second,
		MaxAttempts:    3,
		RetryDelay:     50 * time.Millisecond,
	}
}

// SubmitResult represents the outcome of one submission.
// Persisted is false when the decision could not be written to the history store;
// Record is nil in that case.
type SubmitResult struct {
	Decision  domain.Decision
	Record    *domain.HistoryRecord
	Persisted bool
}

// ScoringService runs the decision pipeline for submitted applications
type ScoringService struct {
	Classifier  Classifier
	HistoryRepo domain.HistoryRepository
	Policy      domain.ValidationPolicy
	Options     Options
	Logger      *zap.Logger
}

// NewScoringService creates a new ScoringService instance
func NewScoringService(
	classifier Classifier,
	historyRepo domain.HistoryRepository,
	policy domain.ValidationPolicy,
	opts Options,
	logger *zap.Logger,
) *ScoringService {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScoringService{
		Classifier:  classifier,
		HistoryRepo: historyRepo,
		Policy:      policy,
		Options:     opts,
		Logger:      logger,
	}
}

// Submit validates, scores and records one application.
// Logic:
//  1. Validate the raw fields against the configured policy
//  2. Build the feature record in the order the model expects
//  3. Ask the classifier for a label and, when supported, a probability
//  4. Compose the decision with its advisory hints
//  5. Append the decision to the history store, retrying transient failures
//
// A validation failure or an unavailable model aborts the pipeline and nothing is stored.
// A persistence failure does not: the decision is returned with Persisted set to false.
func (s *ScoringService) Submit(ctx context.Context, raw map[string]string) (*SubmitResult, error) {
	logger := logging.FromContext(ctx, s.Logger)

	// 1. Validate
	input, err := s.Policy.Validate(raw)
	if err != nil {
		metrics.RecordFailure(metrics.StageValidation)
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			logger.Info("application rejected by validation", zap.String("field", verr.Field), zap.String("reason", verr.Message))
		}
		return nil, err
	}

	// 2. Build features
	features, err := domain.BuildFeatures(input)
	if err != nil {
		metrics.RecordFailure(metrics.StageFeatures)
		return nil, fmt.Errorf("failed to build features: %w", err)
	}

	// 3. Classify
	prediction, err := s.Classifier.Predict(ctx, features)
	if err != nil {
		metrics.RecordFailure(metrics.StageClassifier)
		logger.Error("classifier failed", zap.Error(err))
		return nil, fmt.Errorf("failed to classify application: %w", err)
	}

	var probability *float64
	p, ok, err := s.Classifier.PredictProbability(ctx, features)
	if err != nil {
		metrics.RecordFailure(metrics.StageClassifier)
		logger.Error("classifier probability failed", zap.Error(err))
		return nil, fmt.Errorf("failed to estimate probability: %w", err)
	}
	if ok {
		probability = &p
	}

	// 4. Compose
	decision, err := domain.ComposeDecision(input, prediction, probability)
	if err != nil {
		metrics.RecordFailure(metrics.StageCompose)
		return nil, fmt.Errorf("failed to compose decision: %w", err)
	}
	metrics.RecordDecision(string(decision.Label))

	// 5. Persist
	record, err := s.persist(ctx, logger, input, decision)
	if err != nil {
		metrics.RecordFailure(metrics.StagePersist)
		logger.Error("decision not recorded in history",
			zap.String("label", string(decision.Label)),
			zap.Error(err),
		)
		return &SubmitResult{Decision: decision, Persisted: false}, nil
	}

	logger.Info("application scored",
		zap.Int64("record_id", record.ID),
		zap.String("label", string(decision.Label)),
		zap.Strings("hints", decision.Hints),
	)
	return &SubmitResult{Decision: decision, Record: record, Persisted: true}, nil
}

// persist appends with exponential backoff between attempts
func (s *ScoringService) persist(ctx context.Context, logger *zap.Logger, input domain.ApplicationInput, decision domain.Decision) (*domain.HistoryRecord, error) {
	delay := s.Options.RetryDelay
	for attempt := 1; ; attempt++ {
		record, err := s.appendOnce(ctx, input, decision)
		if err == nil {
			return record, nil
		}
		if attempt >= s.Options.MaxAttempts || ctx.Err() != nil {
			return nil, err
		}

		metrics.RecordPersistenceRetry()
		logger.Warn("history append failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, err
		case <-timer.C:
		}
		delay *= 2
	}
}

func (s *ScoringService) appendOnce(ctx context.Context, input domain.ApplicationInput, decision domain.Decision) (*domain.HistoryRecord, error) {
	if s.Options.StorageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Options.StorageTimeout)
		defer cancel()
	}
	return s.HistoryRepo.Append(ctx, input, decision)
}

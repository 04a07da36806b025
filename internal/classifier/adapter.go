package classifier

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/simaogato/loanscore-backend/internal/domain"
	"github.com/simaogato/loanscore-backend/internal/metrics"
)

// Loader produces the classifier. It is called at most once per Adapter.
type Loader func() (Classifier, error)

// Adapter owns the process-wide classifier instance.
//
// The model is loaded on first use (or by Warm) exactly once; concurrent first callers share
// the same load. A failed load is permanent: every later call returns domain.ErrModelUnavailable
// without retrying. After a successful load the model is read concurrently without locking.
type Adapter struct {
	load    Loader
	timeout time.Duration
	logger  *zap.Logger

	group singleflight.Group
	state atomic.Pointer[loadResult]
}

type loadResult struct {
	model   Classifier
	version string
	err     error
}

// NewAdapter creates an Adapter around loader.
// timeout bounds how long a caller waits for the load; zero waits as long as the caller's context.
func NewAdapter(loader Loader, timeout time.Duration, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		load:    loader,
		timeout: timeout,
		logger:  logger,
	}
}

// NewFileAdapter creates an Adapter that loads the artifact at path
func NewFileAdapter(path string, timeout time.Duration, logger *zap.Logger) *Adapter {
	return NewAdapter(func() (Classifier, error) {
		return LoadArtifact(path)
	}, timeout, logger)
}

// Warm triggers the load and reports its outcome
func (a *Adapter) Warm(ctx context.Context) error {
	_, err := a.model(ctx)
	return err
}

// Version returns the loaded artifact version, or "" when no versioned model is loaded
func (a *Adapter) Version() string {
	if r := a.state.Load(); r != nil {
		return r.version
	}
	return ""
}

// Predict returns the raw label for features
func (a *Adapter) Predict(ctx context.Context, features domain.FeatureRecord) (int, error) {
	model, err := a.model(ctx)
	if err != nil {
		return 0, err
	}
	return model.Predict(features)
}

// PredictProbability returns the probability of the rejected class.
// ok is false when the model does not support probabilities.
func (a *Adapter) PredictProbability(ctx context.Context, features domain.FeatureRecord) (float64, bool, error) {
	model, err := a.model(ctx)
	if err != nil {
		return 0, false, err
	}
	return model.PredictProbability(features)
}

func (a *Adapter) model(ctx context.Context) (Classifier, error) {
	if r := a.state.Load(); r != nil {
		return r.model, r.err
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	ch := a.group.DoChan("model", func() (interface{}, error) {
		if r := a.state.Load(); r != nil {
			return r, nil
		}
		r := a.doLoad()
		a.state.Store(r)
		return r, nil
	})

	select {
	case res := <-ch:
		r := res.Val.(*loadResult)
		return r.model, r.err
	case <-ctx.Done():
		// the load keeps running and its outcome is kept for later callers
		return nil, fmt.Errorf("%w: load not finished: %w", domain.ErrModelUnavailable, ctx.Err())
	}
}

func (a *Adapter) doLoad() *loadResult {
	start := time.Now()
	model, err := a.load()
	if err == nil && model == nil {
		err = errors.New("loader returned no model")
	}
	elapsed := time.Since(start)
	metrics.RecordModelLoad(elapsed, err == nil)

	if err != nil {
		a.logger.Error("Classifier artifact failed to load; predictions disabled until restart",
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return &loadResult{err: fmt.Errorf("%w: %w", domain.ErrModelUnavailable, err)}
	}

	r := &loadResult{model: model}
	if v, ok := model.(interface{ Version() string }); ok {
		r.version = v.Version()
	}
	a.logger.Info("Classifier artifact loaded",
		zap.String("version", r.version),
		zap.Duration("elapsed", elapsed))
	return r
}

package classifier

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/simaogato/loanscore-backend/internal/domain"
)

type fixedClassifier struct {
	label int
}

func (f fixedClassifier) Predict(domain.FeatureRecord) (int, error) {
	return f.label, nil
}

func (f fixedClassifier) PredictProbability(domain.FeatureRecord) (float64, bool, error) {
	return 0, false, nil
}

func TestAdapter_LoadsOnceUnderConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t)

	var loads atomic.Int32
	release := make(chan struct{})
	adapter := NewAdapter(func() (Classifier, error) {
		loads.Add(1)
		<-release
		return fixedClassifier{label: 1}, nil
	}, 0, nil)

	const callers = 32
	var wg sync.WaitGroup
	results := make([]int, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = adapter.Predict(context.Background(), nil)
		}(i)
	}

	// give callers time to pile up on the in-flight load
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 1, results[i])
	}
}

func TestAdapter_FailureIsPermanent(t *testing.T) {
	var loads atomic.Int32
	adapter := NewAdapter(func() (Classifier, error) {
		loads.Add(1)
		return nil, errors.New("corrupt artifact")
	}, 0, nil)

	for i := 0; i < 3; i++ {
		_, err := adapter.Predict(context.Background(), nil)
		assert.ErrorIs(t, err, domain.ErrModelUnavailable)
		assert.Contains(t, err.Error(), "corrupt artifact")

		_, _, err = adapter.PredictProbability(context.Background(), nil)
		assert.ErrorIs(t, err, domain.ErrModelUnavailable)
	}

	assert.Equal(t, int32(1), loads.Load())
	assert.Equal(t, "", adapter.Version())
}

func TestAdapter_MissingArtifact(t *testing.T) {
	adapter := NewFileAdapter(filepath.Join(t.TempDir(), "nope.yaml"), time.Second, nil)

	err := adapter.Warm(context.Background())
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)

	_, err = adapter.Predict(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
}

func TestAdapter_NilModelIsFailure(t *testing.T) {
	adapter := NewAdapter(func() (Classifier, error) { return nil, nil }, 0, nil)

	err := adapter.Warm(context.Background())
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
}

func TestAdapter_LoadTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	adapter := NewAdapter(func() (Classifier, error) {
		<-release
		return fixedClassifier{label: 0}, nil
	}, 10*time.Millisecond, nil)

	_, err := adapter.Predict(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// the pending load still completes and is reused
	close(release)
	require.Eventually(t, func() bool {
		return adapter.Warm(context.Background()) == nil
	}, time.Second, 5*time.Millisecond)

	label, err := adapter.Predict(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, label)
}

func TestAdapter_Version(t *testing.T) {
	adapter := NewFileAdapter(filepath.Join("testdata", "logistic.json"), time.Second, nil)
	assert.Equal(t, "", adapter.Version())

	require.NoError(t, adapter.Warm(context.Background()))
	assert.Equal(t, "test-logistic-1", adapter.Version())
}

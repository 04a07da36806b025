package classifier

import (
	"errors"
	"fmt"
	"math"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/simaogato/loanscore-backend/internal/domain"
)

// Classifier is a trained binary classifier over a FeatureRecord.
// Predict returns domain.PredictionApproved (0) or domain.PredictionRejected (1).
// PredictProbability returns the probability of the rejected class; ok is false when
// the model cannot produce probabilities.
type Classifier interface {
	Predict(features domain.FeatureRecord) (int, error)
	PredictProbability(features domain.FeatureRecord) (p float64, ok bool, err error)
}

// Model kinds understood by ParseArtifact
const (
	KindLogistic = "logistic"
	KindLinear   = "linear"
)

const defaultThreshold = 0.5

// NumericCoefficient standardizes a numeric feature and weights it
type NumericCoefficient struct {
	Mean   float64 `yaml:"mean"`
	Scale  float64 `yaml:"scale"`
	Weight float64 `yaml:"weight"`
}

// Artifact is the on-disk description of a trained linear model.
// YAML and JSON encodings are both accepted.
type Artifact struct {
	Version     string                        `yaml:"version"`
	Kind        string                        `yaml:"kind"`
	Features    []string                      `yaml:"features"`
	Intercept   float64                       `yaml:"intercept"`
	Threshold   *float64                      `yaml:"threshold"`
	Numeric     map[string]NumericCoefficient `yaml:"numeric"`
	Categorical map[string]map[string]float64 `yaml:"categorical"`
}

// LinearModel scores a FeatureRecord with a linear function.
// Logistic models squash the score into a probability; linear models only expose the sign.
type LinearModel struct {
	artifact  Artifact
	threshold float64
}

// LoadArtifact reads and parses a model artifact from disk
func LoadArtifact(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifact: %w", err)
	}
	return ParseArtifact(data)
}

// ParseArtifact decodes an artifact and checks it against the canonical feature order
func ParseArtifact(data []byte) (*LinearModel, error) {
	var a Artifact
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to parse model artifact: %w", err)
	}

	if a.Version == "" {
		return nil, errors.New("model artifact has no version")
	}
	if a.Kind != KindLogistic && a.Kind != KindLinear {
		return nil, fmt.Errorf("unsupported model kind %q", a.Kind)
	}
	if !slices.Equal(a.Features, domain.FeatureNames) {
		return nil, fmt.Errorf("%w: model expects %v, builder produces %v", domain.ErrFeatureMismatch, a.Features, domain.FeatureNames)
	}

	for _, name := range a.Features {
		coef, numeric := a.Numeric[name]
		_, categorical := a.Categorical[name]
		if numeric == categorical {
			return nil, fmt.Errorf("%w: feature %s must be either numeric or categorical", domain.ErrFeatureMismatch, name)
		}
		if numeric && coef.Scale == 0 {
			return nil, fmt.Errorf("numeric feature %s has zero scale", name)
		}
	}

	threshold := defaultThreshold
	if a.Threshold != nil {
		threshold = *a.Threshold
		if threshold <= 0 || threshold >= 1 {
			return nil, fmt.Errorf("threshold %v outside (0,1)", threshold)
		}
	}

	return &LinearModel{artifact: a, threshold: threshold}, nil
}

// Version returns the artifact version
func (m *LinearModel) Version() string {
	return m.artifact.Version
}

// Predict implements Classifier
func (m *LinearModel) Predict(features domain.FeatureRecord) (int, error) {
	score, err := m.score(features)
	if err != nil {
		return 0, err
	}

	if m.artifact.Kind == KindLogistic {
		if sigmoid(score) >= m.threshold {
			return domain.PredictionRejected, nil
		}
		return domain.PredictionApproved, nil
	}

	if score >= 0 {
		return domain.PredictionRejected, nil
	}
	return domain.PredictionApproved, nil
}

// PredictProbability implements Classifier
func (m *LinearModel) PredictProbability(features domain.FeatureRecord) (float64, bool, error) {
	if m.artifact.Kind != KindLogistic {
		return 0, false, nil
	}
	score, err := m.score(features)
	if err != nil {
		return 0, false, err
	}
	return sigmoid(score), true, nil
}

func (m *LinearModel) score(features domain.FeatureRecord) (float64, error) {
	if !slices.Equal(features.Names(), m.artifact.Features) {
		return 0, fmt.Errorf("%w: got %v", domain.ErrFeatureMismatch, features.Names())
	}

	score := m.artifact.Intercept
	for _, f := range features {
		switch f.Kind {
		case domain.FeatureNumeric:
			coef, ok := m.artifact.Numeric[f.Name]
			if !ok {
				return 0, fmt.Errorf("%w: %s is not numeric in model", domain.ErrFeatureMismatch, f.Name)
			}
			score += coef.Weight * (f.Number - coef.Mean) / coef.Scale
		case domain.FeatureCategorical:
			weights, ok := m.artifact.Categorical[f.Name]
			if !ok {
				return 0, fmt.Errorf("%w: %s is not categorical in model", domain.ErrFeatureMismatch, f.Name)
			}
			// unseen categories contribute nothing
			score += weights[f.Category]
		default:
			return 0, fmt.Errorf("%w: feature %s has kind %q", domain.ErrFeatureMismatch, f.Name, f.Kind)
		}
	}
	return score, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

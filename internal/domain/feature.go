package domain

import (
	"fmt"
	"math"
)

// FeatureKind distinguishes numeric from categorical features
type FeatureKind string

const (
	FeatureNumeric     FeatureKind = "NUMERIC"
	FeatureCategorical FeatureKind = "CATEGORICAL"
)

// Feature is one named value handed to the classifier
type Feature struct {
	Name     string
	Kind     FeatureKind
	Number   float64 // set when Kind is FeatureNumeric
	Category string  // set when Kind is FeatureCategorical
}

// FeatureRecord is the ordered feature vector the classifier expects.
// Names and order are fixed by FeatureNames.
type FeatureRecord []Feature

// FeatureNames is the canonical feature order agreed with the classifier artifact
var FeatureNames = []string{
	FieldAge,
	FieldIncome,
	FieldLoanAmount,
	FieldCreditScore,
	FieldDTIRatio,
	FieldEducation,
	FieldEmploymentType,
}

// Names returns the feature names in record order
func (r FeatureRecord) Names() []string {
	names := make([]string, len(r))
	for i, f := range r {
		names[i] = f.Name
	}
	return names
}

// BuildFeatures maps a validated ApplicationInput onto the canonical FeatureRecord.
// It only fails when the input did not go through validation.
func BuildFeatures(in ApplicationInput) (FeatureRecord, error) {
	numbers := []struct {
		name  string
		value float64
	}{
		{FieldAge, in.Age},
		{FieldIncome, in.Income},
		{FieldLoanAmount, in.LoanAmount},
		{FieldCreditScore, in.CreditScore},
		{FieldDTIRatio, in.DTIRatio},
	}

	record := make(FeatureRecord, 0, len(FeatureNames))
	for _, n := range numbers {
		if math.IsNaN(n.value) || math.IsInf(n.value, 0) {
			return nil, fmt.Errorf("%w: %s is not finite", ErrInvalidApplication, n.name)
		}
		record = append(record, Feature{Name: n.name, Kind: FeatureNumeric, Number: n.value})
	}

	if !in.Education.IsValid() {
		return nil, fmt.Errorf("%w: unknown education %q", ErrInvalidApplication, in.Education)
	}
	if !in.EmploymentType.IsValid() {
		return nil, fmt.Errorf("%w: unknown employment type %q", ErrInvalidApplication, in.EmploymentType)
	}

	record = append(record,
		Feature{Name: FieldEducation, Kind: FeatureCategorical, Category: string(in.Education)},
		Feature{Name: FieldEmploymentType, Kind: FeatureCategorical, Category: string(in.EmploymentType)},
	)

	return record, nil
}

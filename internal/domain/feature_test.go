package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFeatures(t *testing.T) {
	record, err := BuildFeatures(scenarioInput())

	require.NoError(t, err)
	assert.Equal(t, FeatureNames, record.Names())
	assert.Equal(t, FeatureRecord{
		{Name: FieldAge, Kind: FeatureNumeric, Number: 30},
		{Name: FieldIncome, Kind: FeatureNumeric, Number: 50000},
		{Name: FieldLoanAmount, Kind: FeatureNumeric, Number: 20000},
		{Name: FieldCreditScore, Kind: FeatureNumeric, Number: 600},
		{Name: FieldDTIRatio, Kind: FeatureNumeric, Number: 0.5},
		{Name: FieldEducation, Kind: FeatureCategorical, Category: "Bachelor's"},
		{Name: FieldEmploymentType, Kind: FeatureCategorical, Category: "Full-time"},
	}, record)
}

func TestBuildFeatures_RejectsUnvalidatedInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *ApplicationInput)
	}{
		{"NaN age", func(in *ApplicationInput) { in.Age = math.NaN() }},
		{"Infinite income", func(in *ApplicationInput) { in.Income = math.Inf(1) }},
		{"Unknown education", func(in *ApplicationInput) { in.Education = "Kindergarten" }},
		{"Empty employment", func(in *ApplicationInput) { in.EmploymentType = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := scenarioInput()
			tt.mutate(&in)

			_, err := BuildFeatures(in)
			assert.ErrorIs(t, err, ErrInvalidApplication)
		})
	}
}

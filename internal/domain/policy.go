package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	MaxAge         = 100.0
	MaxCreditScore = 1000.0
	MaxDTIRatio    = 2.0
)

// ValidationPolicy holds the configurable lower bounds applied by Validate.
// Upper bounds are fixed.
type ValidationPolicy struct {
	Name string

	// AllowZeroIncome accepts Income == 0 when true, otherwise Income must be > 0
	AllowZeroIncome bool

	// MinCreditScore and MinDTIRatio are inclusive lower bounds
	MinCreditScore float64
	MinDTIRatio    float64
}

var (
	// PolicyStandard accepts zero income and a credit score starting at 0
	PolicyStandard = ValidationPolicy{
		Name:            "standard",
		AllowZeroIncome: true,
		MinCreditScore:  0,
		MinDTIRatio:     0,
	}

	// PolicyStrict requires a positive income and a credit score starting at 1
	PolicyStrict = ValidationPolicy{
		Name:            "strict",
		AllowZeroIncome: false,
		MinCreditScore:  1,
		MinDTIRatio:     0,
	}
)

// ParseValidationPolicy resolves a policy by name. Empty selects PolicyStandard.
func ParseValidationPolicy(name string) (ValidationPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyStandard.Name:
		return PolicyStandard, nil
	case PolicyStrict.Name:
		return PolicyStrict, nil
	default:
		return ValidationPolicy{}, fmt.Errorf("unknown validation policy %q", name)
	}
}

// Validate converts raw string fields into an ApplicationInput.
// Rules run in a fixed order and the first failure is returned:
//  1. every numeric field parses to a finite number
//  2. every numeric field is within its bounds
//  3. Education and EmploymentType belong to their option sets
func (p ValidationPolicy) Validate(raw map[string]string) (ApplicationInput, error) {
	numericFields := []string{FieldAge, FieldIncome, FieldLoanAmount, FieldCreditScore, FieldDTIRatio}

	values := make(map[string]float64, len(numericFields))
	for _, field := range numericFields {
		v, err := parseFinite(raw[field], field)
		if err != nil {
			return ApplicationInput{}, err
		}
		values[field] = v
	}

	input := ApplicationInput{
		Age:         values[FieldAge],
		Income:      values[FieldIncome],
		LoanAmount:  values[FieldLoanAmount],
		CreditScore: values[FieldCreditScore],
		DTIRatio:    values[FieldDTIRatio],
	}

	if err := p.checkBounds(input); err != nil {
		return ApplicationInput{}, err
	}

	education := Education(strings.TrimSpace(raw[FieldEducation]))
	if !education.IsValid() {
		return ApplicationInput{}, &ValidationError{Field: FieldEducation, Message: "Please select a valid Education."}
	}
	employment := EmploymentType(strings.TrimSpace(raw[FieldEmploymentType]))
	if !employment.IsValid() {
		return ApplicationInput{}, &ValidationError{Field: FieldEmploymentType, Message: "Please select a valid Employment Type."}
	}

	input.Education = education
	input.EmploymentType = employment
	return input, nil
}

func (p ValidationPolicy) checkBounds(in ApplicationInput) error {
	if in.Age <= 0 || in.Age > MaxAge {
		return &ValidationError{Field: FieldAge, Message: "Age must be greater than 0 and at most 100."}
	}

	if p.AllowZeroIncome {
		if in.Income < 0 {
			return &ValidationError{Field: FieldIncome, Message: "Income cannot be negative."}
		}
	} else if in.Income <= 0 {
		return &ValidationError{Field: FieldIncome, Message: "Income must be greater than 0."}
	}

	if in.LoanAmount <= 0 {
		return &ValidationError{Field: FieldLoanAmount, Message: "Loan Amount must be greater than 0."}
	}

	if in.CreditScore < p.MinCreditScore || in.CreditScore > MaxCreditScore {
		return &ValidationError{
			Field:   FieldCreditScore,
			Message: fmt.Sprintf("Credit Score looks invalid (%s-1000 expected).", formatFloat(p.MinCreditScore)),
		}
	}

	if in.DTIRatio < p.MinDTIRatio || in.DTIRatio > MaxDTIRatio {
		return &ValidationError{
			Field:   FieldDTIRatio,
			Message: fmt.Sprintf("DTI Ratio looks invalid (%s-2 expected). Example: 0.35", formatFloat(p.MinDTIRatio)),
		}
	}

	return nil
}

func parseFinite(raw, field string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ValidationError{Field: field, Message: "Invalid value for " + field}
	}
	return v, nil
}

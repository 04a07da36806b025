package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Label represents the final decision on an application
type Label string

const (
	LabelApproved Label = "APPROVED"
	LabelRejected Label = "REJECTED"
)

// Raw classifier outputs. The artifact contract fixes 0 as approved and 1 as rejected.
const (
	PredictionApproved = 0
	PredictionRejected = 1
)

// LabelFromPrediction converts a raw classifier output into a Label
func LabelFromPrediction(prediction int) (Label, error) {
	switch prediction {
	case PredictionApproved:
		return LabelApproved, nil
	case PredictionRejected:
		return LabelRejected, nil
	default:
		return "", fmt.Errorf("%w: label %d", ErrInvalidPrediction, prediction)
	}
}

// Prediction converts the label back into the raw classifier output
func (l Label) Prediction() int {
	if l == LabelApproved {
		return PredictionApproved
	}
	return PredictionRejected
}

// Advisory hints, in evaluation order
const (
	HintLowCreditScore      = "Low Credit Score"
	HintHighDTIRatio        = "High DTI Ratio"
	HintLoanHighVsIncome    = "Loan Amount high vs Income"
	HintEmploymentStability = "Employment stability risk"
)

const (
	LowCreditScoreThreshold = 650.0
	HighDTIRatioThreshold   = 0.45
	LoanToIncomeLimit       = 0.6
)

// Decision is the outcome of scoring one application.
// RiskPct, SafePct and Confidence are nil when the classifier gave no probability.
type Decision struct {
	Label               Label
	ProbabilityOfReject *float64
	RiskPct             *float64
	SafePct             *float64
	Confidence          *float64
	Hints               []string
}

var hundred = decimal.NewFromInt(100)

// ComposeDecision combines the raw classifier output with rule-based hints.
// probability is the probability of the rejected class, nil when unsupported.
func ComposeDecision(in ApplicationInput, prediction int, probability *float64) (Decision, error) {
	label, err := LabelFromPrediction(prediction)
	if err != nil {
		return Decision{}, err
	}

	decision := Decision{
		Label: label,
		Hints: RiskHints(in),
	}

	if err := decision.applyProbability(probability); err != nil {
		return Decision{}, err
	}
	return decision, nil
}

// RestoreDecision rebuilds a stored decision from its persisted parts.
// Percentages are derived the same way ComposeDecision derives them.
func RestoreDecision(prediction int, probability *float64, hints []string) (Decision, error) {
	label, err := LabelFromPrediction(prediction)
	if err != nil {
		return Decision{}, err
	}

	if hints == nil {
		hints = []string{}
	}
	decision := Decision{Label: label, Hints: hints}
	if err := decision.applyProbability(probability); err != nil {
		return Decision{}, err
	}
	return decision, nil
}

func (d *Decision) applyProbability(probability *float64) error {
	if probability == nil {
		return nil
	}

	p := *probability
	if math.IsNaN(p) || p < 0 || p > 1 {
		return fmt.Errorf("%w: probability %v outside [0,1]", ErrInvalidPrediction, p)
	}

	pd := decimal.NewFromFloat(p)
	risk := percent(pd)
	safe := percent(decimal.NewFromInt(1).Sub(pd))

	confidence := risk
	if d.Label == LabelApproved {
		confidence = safe
	}

	d.ProbabilityOfReject = &p
	d.RiskPct = &risk
	d.SafePct = &safe
	d.Confidence = &confidence
	return nil
}

// RiskHints lists the advisory hints that apply to in.
// Hints never influence the label.
func RiskHints(in ApplicationInput) []string {
	hints := []string{}
	if in.CreditScore < LowCreditScoreThreshold {
		hints = append(hints, HintLowCreditScore)
	}
	if in.DTIRatio > HighDTIRatioThreshold {
		hints = append(hints, HintHighDTIRatio)
	}
	if in.Income > 0 && in.LoanAmount > in.Income*LoanToIncomeLimit {
		hints = append(hints, HintLoanHighVsIncome)
	}
	if in.EmploymentType == EmploymentUnemployed {
		hints = append(hints, HintEmploymentStability)
	}
	return hints
}

// percent returns fraction*100 rounded to two decimal places
func percent(fraction decimal.Decimal) float64 {
	v, _ := fraction.Mul(hundred).Round(2).Float64()
	return v
}

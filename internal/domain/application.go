package domain

import (
	"strconv"
)

// Education represents the applicant's highest completed education level
type Education string

const (
	EducationHighSchool Education = "High School"
	EducationBachelors  Education = "Bachelor's"
	EducationMasters    Education = "Master's"
	EducationPhD        Education = "PhD"
)

// EducationOptions is the closed set of accepted education levels, in display order
var EducationOptions = []Education{
	EducationHighSchool,
	EducationBachelors,
	EducationMasters,
	EducationPhD,
}

// IsValid reports whether e belongs to EducationOptions
func (e Education) IsValid() bool {
	for _, option := range EducationOptions {
		if e == option {
			return true
		}
	}
	return false
}

// EmploymentType represents the applicant's employment situation
type EmploymentType string

const (
	EmploymentFullTime     EmploymentType = "Full-time"
	EmploymentPartTime     EmploymentType = "Part-time"
	EmploymentSelfEmployed EmploymentType = "Self-employed"
	EmploymentUnemployed   EmploymentType = "Unemployed"
)

// EmploymentOptions is the closed set of accepted employment types, in display order
var EmploymentOptions = []EmploymentType{
	EmploymentFullTime,
	EmploymentPartTime,
	EmploymentSelfEmployed,
	EmploymentUnemployed,
}

// IsValid reports whether t belongs to EmploymentOptions
func (t EmploymentType) IsValid() bool {
	for _, option := range EmploymentOptions {
		if t == option {
			return true
		}
	}
	return false
}

// Raw field names accepted from callers
const (
	FieldAge            = "Age"
	FieldIncome         = "Income"
	FieldLoanAmount     = "LoanAmount"
	FieldCreditScore    = "CreditScore"
	FieldDTIRatio       = "DTIRatio"
	FieldEducation      = "Education"
	FieldEmploymentType = "EmploymentType"
)

// ApplicationInput represents one validated loan application.
// Values are only produced by ValidationPolicy.Validate and are never mutated afterwards.
type ApplicationInput struct {
	Age            float64
	Income         float64
	LoanAmount     float64
	CreditScore    float64
	DTIRatio       float64
	Education      Education
	EmploymentType EmploymentType
}

// Fields serializes the input back into raw string fields.
// Numbers use the shortest representation that parses back to the same float64.
func (a ApplicationInput) Fields() map[string]string {
	return map[string]string{
		FieldAge:            formatFloat(a.Age),
		FieldIncome:         formatFloat(a.Income),
		FieldLoanAmount:     formatFloat(a.LoanAmount),
		FieldCreditScore:    formatFloat(a.CreditScore),
		FieldDTIRatio:       formatFloat(a.DTIRatio),
		FieldEducation:      string(a.Education),
		FieldEmploymentType: string(a.EmploymentType),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

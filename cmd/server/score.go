package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/simaogato/loanscore-backend/internal/classifier"
	"github.com/simaogato/loanscore-backend/internal/domain"
	"github.com/simaogato/loanscore-backend/internal/usecase/scoring"
)

var scoreFields = map[string]*string{
	domain.FieldAge:            new(string),
	domain.FieldIncome:         new(string),
	domain.FieldLoanAmount:     new(string),
	domain.FieldCreditScore:    new(string),
	domain.FieldDTIRatio:       new(string),
	domain.FieldEducation:      new(string),
	domain.FieldEmploymentType: new(string),
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score one application and record the decision",
	Long: `Runs a single application through the decision pipeline using the configured
model and history store, then prints the decision as JSON.

Example:
  loanscore score --age 30 --income 50000 --loan-amount 20000 --credit-score 600 \
    --dti-ratio 0.5 --education "Bachelor's" --employment-type Full-time`,
	RunE: runScore,
}

func init() {
	flags := scoreCmd.Flags()
	flags.StringVar(scoreFields[domain.FieldAge], "age", "", "Applicant age")
	flags.StringVar(scoreFields[domain.FieldIncome], "income", "", "Annual income")
	flags.StringVar(scoreFields[domain.FieldLoanAmount], "loan-amount", "", "Requested loan amount")
	flags.StringVar(scoreFields[domain.FieldCreditScore], "credit-score", "", "Credit score")
	flags.StringVar(scoreFields[domain.FieldDTIRatio], "dti-ratio", "", "Debt-to-income ratio, e.g. 0.35")
	flags.StringVar(scoreFields[domain.FieldEducation], "education", "",
		"One of: "+strings.Join(educationNames(), ", "))
	flags.StringVar(scoreFields[domain.FieldEmploymentType], "employment-type", "",
		"One of: "+strings.Join(employmentNames(), ", "))
}

func runScore(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	ctx := cmd.Context()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	model := classifier.NewFileAdapter(cfg.ModelPath, cfg.ModelLoadTimeout, logger)
	service := scoring.NewScoringService(model, st.Repo, cfg.Policy, scoring.Options{
		StorageTimeout: cfg.StorageTimeout,
		MaxAttempts:    cfg.PersistMaxAttempts,
		RetryDelay:     cfg.PersistRetryDelay,
	}, logger)

	raw := make(map[string]string, len(scoreFields))
	for name, value := range scoreFields {
		raw[name] = *value
	}

	result, err := service.Submit(ctx, raw)
	if err != nil {
		return fmt.Errorf("failed to score application: %w", err)
	}
	if !result.Persisted {
		logger.Warn("Decision was not recorded in history")
	} else {
		logger.Debug("Decision recorded", zap.Int64("record_id", result.Record.ID))
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func educationNames() []string {
	names := make([]string, 0, len(domain.EducationOptions))
	for _, e := range domain.EducationOptions {
		names = append(names, string(e))
	}
	return names
}

func employmentNames() []string {
	names := make([]string, 0, len(domain.EmploymentOptions))
	for _, e := range domain.EmploymentOptions {
		names = append(names, string(e))
	}
	return names
}

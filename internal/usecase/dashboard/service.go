package dashboard

import (
	"context"
	"fmt"

	"github.com/simaogato/loanscore-backend/internal/domain"
	"github.com/simaogato/loanscore-backend/internal/usecase/aggregator"
)

// DashboardService handles dashboard-related operations
type DashboardService struct {
	HistoryRepo domain.HistoryRepository
}

// NewDashboardService creates a new DashboardService instance
func NewDashboardService(historyRepo domain.HistoryRepository) *DashboardService {
	return &DashboardService{
		HistoryRepo: historyRepo,
	}
}

// Dashboard computes the decision summary
// Logic:
//   - Read a snapshot of the full history
//   - Summarize it (totals per label and per-day trend)
//
// Nothing is cached, so the summary always reflects every committed decision.
func (s *DashboardService) Dashboard(ctx context.Context) (*domain.DashboardSummary, error) {
	records, err := s.HistoryRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	summary := aggregator.Summarize(records)
	return &summary, nil
}

package history

import (
	"context"
	"fmt"

	"github.com/simaogato/loanscore-backend/internal/domain"
)

// HistoryService handles reads and administrative removal of recorded decisions
type HistoryService struct {
	HistoryRepo domain.HistoryRepository
}

// NewHistoryService creates a new HistoryService instance
func NewHistoryService(historyRepo domain.HistoryRepository) *HistoryService {
	return &HistoryService{
		HistoryRepo: historyRepo,
	}
}

// History returns every recorded decision, most recent first
func (s *HistoryService) History(ctx context.Context) ([]*domain.HistoryRecord, error) {
	records, err := s.HistoryRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return records, nil
}

// DeleteRecord removes one recorded decision
func (s *HistoryService) DeleteRecord(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("decision %d: %w", id, domain.ErrRecordNotFound)
	}
	if err := s.HistoryRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete decision: %w", err)
	}
	return nil
}

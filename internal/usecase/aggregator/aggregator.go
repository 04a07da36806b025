package aggregator

import (
	"sort"

	"github.com/simaogato/loanscore-backend/internal/domain"
)

// Summarize computes the dashboard summary of a history snapshot.
// Logic:
//   - Total: number of records
//   - ApprovedCount: records labelled APPROVED
//   - RejectedCount: Total - ApprovedCount
//   - Trend: records per UTC calendar day of CreatedAt, oldest day first
func Summarize(records []*domain.HistoryRecord) domain.DashboardSummary {
	summary := domain.DashboardSummary{
		Total: len(records),
		Trend: []domain.TrendBucket{},
	}

	perDay := make(map[string]int)
	for _, record := range records {
		if record.Decision.Label == domain.LabelApproved {
			summary.ApprovedCount++
		}
		perDay[record.CreatedAt.UTC().Format(domain.TrendDateLayout)]++
	}
	summary.RejectedCount = summary.Total - summary.ApprovedCount

	for date, count := range perDay {
		summary.Trend = append(summary.Trend, domain.TrendBucket{Date: date, Count: count})
	}
	// YYYY-MM-DD sorts lexicographically in date order
	sort.Slice(summary.Trend, func(i, j int) bool {
		return summary.Trend[i].Date < summary.Trend[j].Date
	})

	return summary
}

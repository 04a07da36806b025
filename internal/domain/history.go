package domain

import "time"

// HistoryRecord is one persisted application and its decision.
// Records are created by a HistoryRepository and never updated.
type HistoryRecord struct {
	ID        int64
	Input     ApplicationInput
	Decision  Decision
	CreatedAt time.Time
}

// TrendDateLayout formats the date of a trend bucket
const TrendDateLayout = "2006-01-02"

// TrendBucket counts the decisions made on one calendar day (UTC)
type TrendBucket struct {
	Date  string
	Count int
}

// DashboardSummary aggregates the decision history.
// It is recomputed on every query and never stored.
type DashboardSummary struct {
	Total         int
	ApprovedCount int
	RejectedCount int
	Trend         []TrendBucket
}

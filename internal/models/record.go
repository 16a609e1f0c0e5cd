package models

import (
	"time"

	"gorm.io/datatypes"
)

// GradingRecord is the persisted form of one grading result. The full
// typed-attribute item is kept verbatim in Item; a few columns are
// denormalized for querying.
type GradingRecord struct {
	AssignmentID int64             `gorm:"primaryKey" json:"assignment_id"`
	AnalyticsID  int64             `gorm:"index" json:"analytics_id"`
	Grade        float64           `json:"grade"`
	Item         datatypes.JSONMap `gorm:"type:json" json:"item"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// AnalyticsSummaryRecord is the persisted form of one aggregated batch
// summary, keyed by the batch analytics id.
type AnalyticsSummaryRecord struct {
	AnalyticsID int64             `gorm:"primaryKey" json:"analytics_id"`
	Item        datatypes.JSONMap `gorm:"type:json" json:"item"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// BatchSummary aggregates the grading results of one batch.
type BatchSummary struct {
	AnalyticsID      int64   `json:"analyticsId"`
	TotalResults     int64   `json:"totalResults"`
	AverageGrade     float64 `json:"averageGrade"`
	AIUsedCount      int64   `json:"aiUsedCount"`
	PlagiarisedCount int64   `json:"plagarisedCount"`
	GeneratedAt      string  `json:"generatedAt"`
	CacheHit         bool    `json:"-"`
}

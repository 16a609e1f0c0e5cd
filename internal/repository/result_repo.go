package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-grader/internal/codec"
	"github.com/noah-isme/gema-grader/internal/models"
)

// ResultRepository defines persistence operations over grading result items
// and aggregated batch summaries. Items are stored and returned in their
// typed-attribute wire form.
type ResultRepository interface {
	PutResult(ctx context.Context, item map[string]any) error
	ScanResults(ctx context.Context) ([]map[string]any, error)
	PutSummary(ctx context.Context, analyticsID int64, item map[string]any) error
	MaxAnalyticsID(ctx context.Context) (int64, error)
}

type resultRepository struct {
	db *gorm.DB
}

// NewResultRepository instantiates a GORM-backed repository.
func NewResultRepository(db *gorm.DB) ResultRepository {
	return &resultRepository{db: db}
}

func (r *resultRepository) PutResult(ctx context.Context, item map[string]any) error {
	plain := codec.DecodeItem(item)

	assignmentID, ok := int64Field(plain, "assignmentId")
	if !ok {
		return fmt.Errorf("result item has no numeric assignmentId")
	}

	analyticsID, _ := int64Field(plain, "analyticsId")
	grade, _ := plain["gradeReceived"].(float64)

	record := models.GradingRecord{
		AssignmentID: assignmentID,
		AnalyticsID:  analyticsID,
		Grade:        grade,
		Item:         item,
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&record).Error
}

func (r *resultRepository) ScanResults(ctx context.Context) ([]map[string]any, error) {
	var records []models.GradingRecord
	if err := r.db.WithContext(ctx).Order("assignment_id ASC").Find(&records).Error; err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(records))
	for _, record := range records {
		items = append(items, map[string]any(record.Item))
	}

	return items, nil
}

func (r *resultRepository) PutSummary(ctx context.Context, analyticsID int64, item map[string]any) error {
	record := models.AnalyticsSummaryRecord{
		AnalyticsID: analyticsID,
		Item:        item,
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&record).Error
}

func (r *resultRepository) MaxAnalyticsID(ctx context.Context) (int64, error) {
	var fromResults int64
	err := r.db.WithContext(ctx).
		Model(&models.GradingRecord{}).
		Select("COALESCE(MAX(analytics_id), 0)").
		Row().Scan(&fromResults)
	if err != nil {
		return 0, err
	}

	var fromSummaries int64
	err = r.db.WithContext(ctx).
		Model(&models.AnalyticsSummaryRecord{}).
		Select("COALESCE(MAX(analytics_id), 0)").
		Row().Scan(&fromSummaries)
	if err != nil {
		return 0, err
	}

	if fromSummaries > fromResults {
		return fromSummaries, nil
	}

	return fromResults, nil
}

func int64Field(doc map[string]any, field string) (int64, bool) {
	switch v := doc[field].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

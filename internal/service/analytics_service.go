package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/gema-grader/internal/codec"
	"github.com/noah-isme/gema-grader/internal/models"
	"github.com/noah-isme/gema-grader/internal/repository"
)

// batchIDSeed is the analytics id assigned to the first batch ever run
// against an empty store.
const batchIDSeed = 1

// AnalyticsService assigns batch ids and aggregates grading results into
// summary records.
type AnalyticsService interface {
	NextBatchID(ctx context.Context) (int64, error)
	Summarize(ctx context.Context, analyticsBatchID int64) (models.BatchSummary, error)
}

type analyticsService struct {
	repo     repository.ResultRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewAnalyticsService constructs the analytics service. The cache client may
// be nil, in which case summaries are recomputed on every call.
func NewAnalyticsService(repo repository.ResultRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) AnalyticsService {
	return &analyticsService{
		repo:     repo,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "analytics_service").Logger(),
		now:      time.Now,
	}
}

// NextBatchID returns max(existing analytics ids) + 1, starting from a fixed
// seed when the store holds no records yet.
func (s *analyticsService) NextBatchID(ctx context.Context) (int64, error) {
	max, err := s.repo.MaxAnalyticsID(ctx)
	if err != nil {
		return 0, fmt.Errorf("resolve max analytics id: %w", err)
	}

	if max <= 0 {
		return batchIDSeed, nil
	}

	return max + 1, nil
}

func (s *analyticsService) Summarize(ctx context.Context, analyticsBatchID int64) (models.BatchSummary, error) {
	cacheKey := fmt.Sprintf("analytics:summary:%d", analyticsBatchID)
	tracer := otel.Tracer("github.com/noah-isme/gema-grader/internal/service/analytics")
	ctx, span := tracer.Start(ctx, "analytics.summarize")
	span.SetAttributes(attribute.Int64("analytics.batch_id", analyticsBatchID))
	defer span.End()

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var summary models.BatchSummary
			if unmarshalErr := json.Unmarshal([]byte(cached), &summary); unmarshalErr == nil {
				summary.CacheHit = true
				span.SetAttributes(attribute.Bool("analytics.cache_hit", true))
				return summary, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read analytics cache")
			span.RecordError(err)
		}
	}

	items, err := s.repo.ScanResults(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scan_results_failed")
		return models.BatchSummary{}, fmt.Errorf("scan results: %w", err)
	}

	summary := s.buildSummary(analyticsBatchID, items)

	item := summaryItem(summary)
	if err := s.repo.PutSummary(ctx, analyticsBatchID, item); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist_summary_failed")
		return models.BatchSummary{}, fmt.Errorf("persist summary: %w", err)
	}

	if s.cache != nil {
		if payload, marshalErr := json.Marshal(summary); marshalErr == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to write analytics cache")
			}
		}
	}

	return summary, nil
}

func (s *analyticsService) buildSummary(analyticsBatchID int64, items []map[string]any) models.BatchSummary {
	summary := models.BatchSummary{
		AnalyticsID: analyticsBatchID,
		GeneratedAt: s.now().UTC().Format(time.RFC3339),
	}

	var gradeTotal float64
	for _, item := range items {
		result, err := models.ResultFromDocument(codec.DecodeItem(item))
		if err != nil {
			s.logger.Warn().Err(err).Msg("skipping malformed result item")
			continue
		}
		if result.AnalyticsID != analyticsBatchID {
			continue
		}

		summary.TotalResults++
		gradeTotal += result.GradeReceived
		if result.AIGeneratedAnalytics.IsAIUsed {
			summary.AIUsedCount++
		}
		if result.PlagiarismAnalytics.IsPlagiarised {
			summary.PlagiarisedCount++
		}
	}

	if summary.TotalResults > 0 {
		summary.AverageGrade = gradeTotal / float64(summary.TotalResults)
	}

	return summary
}

// summaryItem encodes a summary into the typed-attribute form the store
// persists.
func summaryItem(summary models.BatchSummary) map[string]any {
	return codec.EncodeItem(map[string]any{
		"analyticsId":     summary.AnalyticsID,
		"totalResults":    summary.TotalResults,
		"averageGrade":    summary.AverageGrade,
		"aiUsedCount":     summary.AIUsedCount,
		"plagarisedCount": summary.PlagiarisedCount,
		"generatedAt":     summary.GeneratedAt,
	})
}

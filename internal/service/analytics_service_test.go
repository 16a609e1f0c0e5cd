package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grader/internal/codec"
)

func storedResult(assignmentID, analyticsID int64, grade float64, aiUsed, plagiarised bool) map[string]any {
	return codec.EncodeItem(map[string]any{
		"analyticsId":   float64(analyticsID),
		"assignmentId":  float64(assignmentID),
		"gradeReceived": grade,
		"aiGeneratedAnalytics": map[string]any{
			"isAIUsed":               aiUsed,
			"percentageOfAIUsed":     float64(10),
			"highlightedAreaOfAIUse": []any{"line 1"},
		},
		"plagarismAnalytics": map[string]any{
			"isPlagarised":         plagiarised,
			"plagarisedPercentage": float64(5),
			"plagarisedFrom":       []any{"source"},
		},
		"gradeReasoning": "fine",
		"remarks":        "ok",
	})
}

func TestAnalyticsServiceNextBatchID(t *testing.T) {
	repo := newFakeResultRepo()
	svc := NewAnalyticsService(repo, nil, time.Minute, testLogger())

	id, err := svc.NextBatchID(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), id, "empty store starts from the seed")

	repo.maxID = 12
	id, err = svc.NextBatchID(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(13), id)
}

func TestAnalyticsServiceSummarize(t *testing.T) {
	repo := newFakeResultRepo()
	repo.results = []map[string]any{
		storedResult(1, 4, 80, true, false),
		storedResult(2, 4, 90, false, true),
		storedResult(3, 3, 10, true, true), // older batch, excluded
	}

	svc := NewAnalyticsService(repo, nil, time.Minute, testLogger())
	summary, err := svc.Summarize(context.Background(), 4)
	require.NoError(t, err)
	require.Equal(t, int64(4), summary.AnalyticsID)
	require.Equal(t, int64(2), summary.TotalResults)
	require.Equal(t, float64(85), summary.AverageGrade)
	require.Equal(t, int64(1), summary.AIUsedCount)
	require.Equal(t, int64(1), summary.PlagiarisedCount)
	require.False(t, summary.CacheHit)

	item, ok := repo.summaries[4]
	require.True(t, ok, "summary record should be persisted")
	plain := codec.DecodeItem(item)
	require.Equal(t, float64(2), plain["totalResults"])
}

func TestAnalyticsServiceSummarizeCaches(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	repo := newFakeResultRepo()
	repo.results = []map[string]any{storedResult(1, 2, 70, false, false)}

	svc := NewAnalyticsService(repo, client, time.Minute, testLogger())

	summary, err := svc.Summarize(context.Background(), 2)
	require.NoError(t, err)
	require.False(t, summary.CacheHit)

	repo.results = append(repo.results, storedResult(9, 2, 100, false, false))
	cached, err := svc.Summarize(context.Background(), 2)
	require.NoError(t, err)
	require.True(t, cached.CacheHit)
	require.Equal(t, summary.TotalResults, cached.TotalResults)
}

func TestAnalyticsServiceSummarizeEmptyBatch(t *testing.T) {
	svc := NewAnalyticsService(newFakeResultRepo(), nil, time.Minute, testLogger())

	summary, err := svc.Summarize(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, int64(0), summary.TotalResults)
	require.Equal(t, float64(0), summary.AverageGrade)
}

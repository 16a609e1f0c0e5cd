package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grader/internal/codec"
	"github.com/noah-isme/gema-grader/internal/models"
	"github.com/noah-isme/gema-grader/internal/sanitize"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type fakeSource struct {
	docs    map[string]string
	order   []string
	listErr error
	loadErr map[string]error
}

func (f *fakeSource) List(ctx context.Context) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]string(nil), f.order...), nil
}

func (f *fakeSource) Load(ctx context.Context, name string) (string, error) {
	if err := f.loadErr[name]; err != nil {
		return "", err
	}
	text, ok := f.docs[name]
	if !ok {
		return "", fmt.Errorf("document %s not found", name)
	}
	return text, nil
}

type fakeGrader struct {
	requests []models.GradingRequest
	failFor  map[string]error
	docFor   func(request models.GradingRequest) map[string]any
}

func (f *fakeGrader) Grade(ctx context.Context, request models.GradingRequest) (map[string]any, error) {
	f.requests = append(f.requests, request)
	if err := f.failFor[request.DocumentID]; err != nil {
		return nil, err
	}
	if f.docFor != nil {
		return f.docFor(request), nil
	}
	return completeDoc(request), nil
}

func completeDoc(request models.GradingRequest) map[string]any {
	assignmentID, _ := strconv.ParseFloat(request.DocumentID, 64)
	return map[string]any{
		"analyticsId":   float64(request.AnalyticsBatchID),
		"assignmentId":  assignmentID,
		"gradeReceived": float64(80),
		"aiGeneratedAnalytics": map[string]any{
			"isAIUsed": false,
		},
		"plagarismAnalytics": map[string]any{
			"isPlagarised": false,
		},
		"gradeReasoning": "reasoned",
		"remarks":        "remarked",
	}
}

type fakeResultRepo struct {
	results   []map[string]any
	summaries map[int64]map[string]any
	putErrFor map[int64]error
	maxID     int64
	scanErr   error
}

func newFakeResultRepo() *fakeResultRepo {
	return &fakeResultRepo{summaries: make(map[int64]map[string]any), putErrFor: make(map[int64]error)}
}

func (f *fakeResultRepo) PutResult(ctx context.Context, item map[string]any) error {
	plain := codec.DecodeItem(item)
	if id, ok := plain["assignmentId"].(float64); ok {
		if err := f.putErrFor[int64(id)]; err != nil {
			return err
		}
	}
	f.results = append(f.results, item)
	return nil
}

func (f *fakeResultRepo) ScanResults(ctx context.Context) ([]map[string]any, error) {
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	return append([]map[string]any(nil), f.results...), nil
}

func (f *fakeResultRepo) PutSummary(ctx context.Context, analyticsID int64, item map[string]any) error {
	f.summaries[analyticsID] = item
	return nil
}

func (f *fakeResultRepo) MaxAnalyticsID(ctx context.Context) (int64, error) {
	return f.maxID, nil
}

func TestBatchServiceIsolatesItemFailure(t *testing.T) {
	source := &fakeSource{
		docs:  map[string]string{},
		order: []string{"1.txt", "2.txt", "3.txt", "4.txt", "5.txt"},
	}
	for _, name := range source.order {
		source.docs[name] = "essay text"
	}
	grader := &fakeGrader{failFor: map[string]error{"3": errors.New("upstream exploded")}}
	repo := newFakeResultRepo()

	svc := NewBatchService(source, grader, repo, BatchConfig{ValidateResults: true}, testLogger())
	outcomes, err := svc.Run(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, outcomes, 5)

	var failed []models.BatchItemOutcome
	for _, outcome := range outcomes {
		if outcome.Status == models.OutcomeFailed {
			failed = append(failed, outcome)
		}
	}
	require.Len(t, failed, 1)
	require.Equal(t, "3", failed[0].DocumentID)
	require.Contains(t, failed[0].Error, "upstream exploded")
	require.Len(t, repo.results, 4)
}

func TestBatchServiceSkipsNonNumericDocumentIDs(t *testing.T) {
	source := &fakeSource{
		docs:  map[string]string{"7.txt": "hello world", "abc.txt": "ignored"},
		order: []string{"7.txt", "abc.txt"},
	}
	grader := &fakeGrader{}
	repo := newFakeResultRepo()

	svc := NewBatchService(source, grader, repo, BatchConfig{ValidateResults: true}, testLogger())
	outcomes, err := svc.Run(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.Equal(t, "7", outcomes[0].DocumentID)
	require.Equal(t, models.OutcomeSuccess, outcomes[0].Status)

	require.Len(t, grader.requests, 1)
	require.Contains(t, grader.requests[0].DocumentText, "hello world")
	require.Contains(t, grader.requests[0].DocumentText, sanitize.StartMarker)
}

func TestBatchServiceValidationToggle(t *testing.T) {
	incomplete := func(request models.GradingRequest) map[string]any {
		doc := completeDoc(request)
		delete(doc, "remarks")
		return doc
	}
	source := &fakeSource{docs: map[string]string{"7.txt": "essay"}, order: []string{"7.txt"}}

	strict := NewBatchService(source, &fakeGrader{docFor: incomplete}, newFakeResultRepo(), BatchConfig{ValidateResults: true}, testLogger())
	outcomes, err := strict.Run(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, models.OutcomeFailed, outcomes[0].Status)
	require.Contains(t, outcomes[0].Error, "remarks")

	lenientRepo := newFakeResultRepo()
	lenient := NewBatchService(source, &fakeGrader{docFor: incomplete}, lenientRepo, BatchConfig{ValidateResults: false}, testLogger())
	outcomes, err = lenient.Run(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, models.OutcomeSuccess, outcomes[0].Status)
	require.Len(t, lenientRepo.results, 1)
}

func TestBatchServicePersistenceFailureContinues(t *testing.T) {
	source := &fakeSource{
		docs:  map[string]string{"1.txt": "a", "2.txt": "b"},
		order: []string{"1.txt", "2.txt"},
	}
	repo := newFakeResultRepo()
	repo.putErrFor[1] = errors.New("store unavailable")

	svc := NewBatchService(source, &fakeGrader{}, repo, BatchConfig{ValidateResults: true}, testLogger())
	outcomes, err := svc.Run(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	require.Equal(t, models.OutcomeFailed, outcomes[0].Status)
	require.Contains(t, outcomes[0].Error, "store unavailable")
	require.Equal(t, models.OutcomeSuccess, outcomes[1].Status)
}

func TestBatchServiceLoadFailureContinues(t *testing.T) {
	source := &fakeSource{
		docs:    map[string]string{"1.txt": "a", "2.txt": "b"},
		order:   []string{"1.txt", "2.txt"},
		loadErr: map[string]error{"1.txt": errors.New("unreadable")},
	}

	svc := NewBatchService(source, &fakeGrader{}, newFakeResultRepo(), BatchConfig{ValidateResults: true}, testLogger())
	outcomes, err := svc.Run(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	require.Equal(t, models.OutcomeFailed, outcomes[0].Status)
	require.Equal(t, models.OutcomeSuccess, outcomes[1].Status)
}

func TestBatchServiceNoDocumentsIsFatal(t *testing.T) {
	source := &fakeSource{order: []string{}}

	svc := NewBatchService(source, &fakeGrader{}, newFakeResultRepo(), BatchConfig{}, testLogger())
	_, err := svc.Run(context.Background(), 1)
	require.ErrorIs(t, err, ErrNoDocuments)
}

func TestBatchServiceListFailureIsFatal(t *testing.T) {
	source := &fakeSource{listErr: errors.New("bucket unreachable")}

	svc := NewBatchService(source, &fakeGrader{}, newFakeResultRepo(), BatchConfig{}, testLogger())
	_, err := svc.Run(context.Background(), 1)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bucket unreachable")
}

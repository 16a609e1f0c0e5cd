package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/gema-grader/internal/codec"
	"github.com/noah-isme/gema-grader/internal/docsource"
	"github.com/noah-isme/gema-grader/internal/models"
	"github.com/noah-isme/gema-grader/internal/observability"
	"github.com/noah-isme/gema-grader/internal/repository"
	"github.com/noah-isme/gema-grader/internal/sanitize"
	"github.com/noah-isme/gema-grader/pkg/grading"
)

// ErrNoDocuments indicates the source yielded nothing to grade; the run
// cannot proceed at all, which is a top-level failure rather than a
// per-item one.
var ErrNoDocuments = errors.New("no documents found")

// BatchService drives one grading batch over every available document.
type BatchService interface {
	Run(ctx context.Context, analyticsBatchID int64) ([]models.BatchItemOutcome, error)
}

// BatchConfig holds the orchestration toggles.
type BatchConfig struct {
	// ValidateResults controls whether decoded results are checked against
	// the required-field schema before persistence.
	ValidateResults bool
}

type batchService struct {
	source docsource.Source
	grader grading.Grader
	repo   repository.ResultRepository
	cfg    BatchConfig
	logger zerolog.Logger
}

// NewBatchService constructs the batch orchestrator.
func NewBatchService(source docsource.Source, grader grading.Grader, repo repository.ResultRepository, cfg BatchConfig, logger zerolog.Logger) BatchService {
	return &batchService{
		source: source,
		grader: grader,
		repo:   repo,
		cfg:    cfg,
		logger: logger.With().Str("component", "batch_service").Logger(),
	}
}

// Run processes every document strictly sequentially. A single document's
// failure never aborts the batch; the report enumerates every attempted
// document exactly once. Documents whose name does not carry a numeric id
// are skipped silently and do not appear in the report.
func (s *batchService) Run(ctx context.Context, analyticsBatchID int64) ([]models.BatchItemOutcome, error) {
	tracer := otel.Tracer("github.com/noah-isme/gema-grader/internal/service/batch")
	ctx, span := tracer.Start(ctx, "batch.run")
	span.SetAttributes(attribute.Int64("batch.analytics_id", analyticsBatchID))
	defer span.End()

	runID := uuid.NewString()
	logger := s.logger.With().Str("run_id", runID).Int64("analytics_id", analyticsBatchID).Logger()
	start := time.Now()

	names, err := s.source.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list_documents_failed")
		return nil, fmt.Errorf("list documents: %w", err)
	}

	if len(names) == 0 {
		span.RecordError(ErrNoDocuments)
		span.SetStatus(codes.Error, "no_documents")
		return nil, ErrNoDocuments
	}

	outcomes := make([]models.BatchItemOutcome, 0, len(names))
	for _, name := range names {
		documentID := strings.TrimSuffix(name, filepath.Ext(name))
		if _, err := strconv.ParseInt(documentID, 10, 64); err != nil {
			logger.Debug().Str("document", name).Msg("skipping document without numeric id")
			continue
		}

		outcome := s.processDocument(ctx, logger, name, documentID, analyticsBatchID)
		observability.BatchDocuments().WithLabelValues(string(outcome.Status)).Inc()
		outcomes = append(outcomes, outcome)
	}

	observability.BatchDuration().Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("batch.documents", len(outcomes)))
	logger.Info().
		Int("documents", len(outcomes)).
		Dur("duration", time.Since(start)).
		Msg("batch run finished")

	return outcomes, nil
}

func (s *batchService) processDocument(ctx context.Context, logger zerolog.Logger, name, documentID string, analyticsBatchID int64) models.BatchItemOutcome {
	failed := func(stage string, err error) models.BatchItemOutcome {
		logger.Warn().Err(err).Str("document_id", documentID).Str("stage", stage).Msg("document failed")
		return models.BatchItemOutcome{
			DocumentID: documentID,
			Status:     models.OutcomeFailed,
			Error:      err.Error(),
		}
	}

	text, err := s.source.Load(ctx, name)
	if err != nil {
		return failed("load", err)
	}

	request := models.GradingRequest{
		DocumentText:     sanitize.SingleLine(text),
		DocumentID:       documentID,
		AnalyticsBatchID: analyticsBatchID,
	}

	doc, err := s.grader.Grade(ctx, request)
	if err != nil {
		return failed("invoke", err)
	}

	if s.cfg.ValidateResults {
		if err := grading.ValidateResult(doc); err != nil {
			return failed("validate", err)
		}
	}

	if err := s.repo.PutResult(ctx, codec.EncodeItem(doc)); err != nil {
		return failed("persist", err)
	}

	logger.Info().Str("document_id", documentID).Msg("document graded")

	return models.BatchItemOutcome{
		DocumentID: documentID,
		Status:     models.OutcomeSuccess,
	}
}

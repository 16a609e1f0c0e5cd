package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/noah-isme/gema-grader/internal/config"
	"github.com/noah-isme/gema-grader/internal/database"
	"github.com/noah-isme/gema-grader/internal/docsource"
	"github.com/noah-isme/gema-grader/internal/lifecycle"
	"github.com/noah-isme/gema-grader/internal/models"
	"github.com/noah-isme/gema-grader/internal/repository"
	"github.com/noah-isme/gema-grader/internal/service"
	"github.com/noah-isme/gema-grader/pkg/grading"
)

type pipeline struct {
	cfg        config.Config
	logger     zerolog.Logger
	repo       repository.ResultRepository
	batch      service.BatchService
	analytics  service.AnalyticsService
	terminator lifecycle.Terminator
	redis      *redis.Client
}

func main() {
	if err := newRootCommand().ExecuteContext(signalContext()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func signalContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return ctx
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "grader",
		Short:         "Batch grading pipeline for student assignment documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCommand(), newAggregateCommand(), newReportCommand(), newTerminateCommand())

	return root
}

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline: grade every document, aggregate, then optionally self-terminate",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := buildPipeline()
			if err != nil {
				return err
			}
			defer p.close()

			return p.run(cmd.Context())
		},
	}
}

func newAggregateCommand() *cobra.Command {
	var batchID int64

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Aggregate stored grading results into a batch summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := buildPipeline()
			if err != nil {
				return err
			}
			defer p.close()

			id, err := resolveBatchID(cmd.Context(), p.repo, batchID)
			if err != nil {
				return err
			}

			summary, err := p.analytics.Summarize(cmd.Context(), id)
			if err != nil {
				return err
			}

			p.logSummary(summary)
			return nil
		},
	}
	cmd.Flags().Int64Var(&batchID, "batch-id", 0, "analytics batch id to summarize (defaults to the latest)")

	return cmd
}

func newReportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print counts of stored grading results per batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := buildPipeline()
			if err != nil {
				return err
			}
			defer p.close()

			return p.report(cmd.Context())
		},
	}
}

func newTerminateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "terminate",
		Short: "Terminate the current compute instance (guarded by the enable flag)",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := buildPipeline()
			if err != nil {
				return err
			}
			defer p.close()

			return p.terminator.TerminateSelf(cmd.Context())
		},
	}
}

// resolveBatchID resolves the batch to aggregate: the explicit flag value, or
// the highest stored analytics id when the flag is unset. An empty store has
// nothing to aggregate.
func resolveBatchID(ctx context.Context, repo repository.ResultRepository, flagID int64) (int64, error) {
	if flagID > 0 {
		return flagID, nil
	}

	max, err := repo.MaxAnalyticsID(ctx)
	if err != nil {
		return 0, fmt.Errorf("resolve latest batch: %w", err)
	}
	if max <= 0 {
		return 0, fmt.Errorf("no batches to aggregate")
	}

	return max, nil
}

func buildPipeline() (*pipeline, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&models.GradingRecord{}, &models.AnalyticsSummaryRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
	}

	source, err := buildSource(cfg, logger)
	if err != nil {
		return nil, err
	}

	grader, err := buildGrader(cfg, logger)
	if err != nil {
		return nil, err
	}

	repo := repository.NewResultRepository(db)
	batch := service.NewBatchService(source, grader, repo, service.BatchConfig{ValidateResults: cfg.ValidateResults}, logger)
	analytics := service.NewAnalyticsService(repo, redisClient, cfg.AnalyticsCacheTTL, logger)
	terminator := lifecycle.NewInstanceTerminator(lifecycle.Config{
		Enabled:      cfg.TerminateEnabled,
		MetadataURL:  cfg.InstanceMetadataURL,
		TerminateURL: cfg.InstanceTerminateURL,
		Logger:       logger,
	})

	if cfg.MetricsAddr != "" {
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, promhttp.Handler()); err != nil {
				logger.Warn().Err(err).Msg("metrics listener stopped")
			}
		}()
	}

	return &pipeline{
		cfg:        cfg,
		logger:     logger,
		repo:       repo,
		batch:      batch,
		analytics:  analytics,
		terminator: terminator,
		redis:      redisClient,
	}, nil
}

func buildSource(cfg config.Config, logger zerolog.Logger) (docsource.Source, error) {
	switch cfg.SourceKind {
	case "local":
		return docsource.NewLocalDir(cfg.DocumentDir, logger), nil
	case "cloudinary":
		return docsource.NewObjectStore(docsource.ObjectStoreConfig{
			CloudName: cfg.CloudinaryCloud,
			APIKey:    cfg.CloudinaryKey,
			APISecret: cfg.CloudinarySecret,
			Prefix:    cfg.ObjectPrefix,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown document source %q", cfg.SourceKind)
	}
}

func buildGrader(cfg config.Config, logger zerolog.Logger) (grading.Grader, error) {
	switch cfg.GradingProvider {
	case "endpoint":
		return grading.NewEndpointClient(grading.EndpointConfig{
			URL:         cfg.GradingEndpointURL,
			Timeout:     cfg.RequestTimeout,
			MaxAttempts: cfg.MaxAttempts,
			BaseDelay:   cfg.RetryBaseDelay,
			Logger:      logger,
		})
	case "openai":
		return grading.NewOpenAIClient(grading.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
			Logger: logger,
		})
	default:
		return nil, fmt.Errorf("unknown grading provider %q", cfg.GradingProvider)
	}
}

// run drives the full pipeline sequence. Any stage failure not contained
// within a batch item aborts the remaining sequence and surfaces as a
// non-zero exit code.
func (p *pipeline) run(ctx context.Context) error {
	batchID, err := p.analytics.NextBatchID(ctx)
	if err != nil {
		return err
	}

	outcomes, err := p.batch.Run(ctx, batchID)
	if err != nil {
		return err
	}

	var succeeded, failing int
	for _, outcome := range outcomes {
		event := p.logger.Info()
		if outcome.Status == models.OutcomeFailed {
			failing++
			event = p.logger.Warn().Str("error", outcome.Error)
		} else {
			succeeded++
		}
		event.
			Str("document_id", outcome.DocumentID).
			Str("status", string(outcome.Status)).
			Msg("batch item outcome")
	}
	p.logger.Info().
		Int64("analytics_id", batchID).
		Int("succeeded", succeeded).
		Int("failed", failing).
		Msg("batch report")

	summary, err := p.analytics.Summarize(ctx, batchID)
	if err != nil {
		return err
	}
	p.logSummary(summary)

	return p.terminator.TerminateSelf(ctx)
}

func (p *pipeline) report(ctx context.Context) error {
	items, err := p.repo.ScanResults(ctx)
	if err != nil {
		return err
	}

	p.logger.Info().Int("stored_results", len(items)).Msg("result store report")

	return nil
}

func (p *pipeline) logSummary(summary models.BatchSummary) {
	p.logger.Info().
		Int64("analytics_id", summary.AnalyticsID).
		Int64("total_results", summary.TotalResults).
		Float64("average_grade", summary.AverageGrade).
		Int64("ai_used", summary.AIUsedCount).
		Int64("plagiarised", summary.PlagiarisedCount).
		Bool("cache_hit", summary.CacheHit).
		Msg("batch summary")
}

func (p *pipeline) close() {
	if p.redis != nil {
		p.redis.Close()
	}
}

package grading

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-grader/internal/models"
)

var (
	invokeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "grader",
		Subsystem: "invoker",
		Name:      "request_duration_seconds",
		Help:      "Duration of grading model invocations",
	}, []string{"provider"})

	invokeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "grader",
		Subsystem: "invoker",
		Name:      "failures_total",
		Help:      "Number of grading invocations that failed after all attempts",
	}, []string{"provider"})

	invokeRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "grader",
		Subsystem: "invoker",
		Name:      "retries_total",
		Help:      "Number of retried grading attempts",
	}, []string{"provider"})
)

// EndpointConfig defines configuration options for the HTTP grading endpoint
// client.
type EndpointConfig struct {
	URL         string
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
	HTTPClient  *http.Client
	Logger      zerolog.Logger
}

// EndpointClient implements Grader against the grading model HTTP endpoint.
// Transient upstream failures (HTTP 502 and per-attempt timeouts) are retried
// with linearly increasing backoff; everything else fails on the first
// attempt.
type EndpointClient struct {
	cfg      EndpointConfig
	client   *http.Client
	validate *validator.Validate
	tracer   trace.Tracer
	logger   zerolog.Logger
}

// NewEndpointClient builds a grading endpoint client from the provided
// configuration, applying defaults for unset retry and timeout options.
func NewEndpointClient(cfg EndpointConfig) (*EndpointClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("grading endpoint url is required")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}

	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &EndpointClient{
		cfg:      cfg,
		client:   client,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		tracer:   otel.Tracer("github.com/noah-isme/gema-grader/pkg/grading/endpoint"),
		logger:   logger.With().Str("component", "grading_endpoint").Logger(),
	}, nil
}

// Grade submits the request and returns the decoded result document. The
// returned error is always an *InvocationError carrying the attempt count and
// the last underlying cause.
func (c *EndpointClient) Grade(parent context.Context, request models.GradingRequest) (map[string]any, error) {
	ctx, span := c.tracer.Start(parent, "grading.invoke", trace.WithAttributes(
		attribute.String("grading.document_id", request.DocumentID),
		attribute.Int64("grading.analytics_id", request.AnalyticsBatchID),
	))
	defer span.End()

	if err := c.validate.Struct(request); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid_request")
		return nil, &InvocationError{Attempts: 0, Err: fmt.Errorf("invalid grading request: %w", err)}
	}

	payload, err := json.Marshal(request)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "marshal_failed")
		return nil, &InvocationError{Attempts: 0, Err: fmt.Errorf("marshal grading request: %w", err)}
	}

	var last error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		start := time.Now()
		doc, retryable, err := c.attempt(ctx, payload)
		invokeDuration.WithLabelValues("endpoint").Observe(time.Since(start).Seconds())

		if err == nil {
			span.SetAttributes(attribute.Int("grading.attempts", attempt))
			return doc, nil
		}

		last = err
		if !retryable {
			invokeFailures.WithLabelValues("endpoint").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, "invocation_failed")
			return nil, &InvocationError{Attempts: attempt, Err: err}
		}

		if attempt == c.cfg.MaxAttempts {
			break
		}

		delay := time.Duration(attempt) * c.cfg.BaseDelay
		invokeRetries.WithLabelValues("endpoint").Inc()
		c.logger.Warn().
			Err(err).
			Str("document_id", request.DocumentID).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Msg("grading attempt failed, retrying")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			invokeFailures.WithLabelValues("endpoint").Inc()
			span.RecordError(ctx.Err())
			span.SetStatus(codes.Error, "cancelled")
			return nil, &InvocationError{Attempts: attempt, Err: ctx.Err()}
		}
	}

	invokeFailures.WithLabelValues("endpoint").Inc()
	span.RecordError(last)
	span.SetStatus(codes.Error, "attempts_exhausted")

	return nil, &InvocationError{Attempts: c.cfg.MaxAttempts, Err: last}
}

// attempt performs one bounded call against the endpoint. The boolean return
// reports whether the failure is retryable.
func (c *EndpointClient) attempt(ctx context.Context, payload []byte) (map[string]any, bool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("build grading request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return nil, true, fmt.Errorf("grading request timed out: %w", err)
		}
		return nil, false, fmt.Errorf("grading request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return nil, true, fmt.Errorf("read grading response timed out: %w", err)
		}
		return nil, false, fmt.Errorf("read grading response: %w", err)
	}

	if resp.StatusCode == http.StatusBadGateway {
		return nil, true, fmt.Errorf("grading endpoint returned status %d", resp.StatusCode)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, false, fmt.Errorf("grading endpoint returned status %d", resp.StatusCode)
	}

	doc, err := reconcileBody(body)
	if err != nil {
		return nil, false, err
	}

	return doc, false, nil
}

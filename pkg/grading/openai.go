package grading

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-grader/internal/models"
)

// OpenAIConfig defines configuration options for the OpenAI-backed grader.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIClient implements Grader against the OpenAI chat completion API. It
// asks the model for the same canonical typed-attribute document the
// dedicated grading endpoint returns, so downstream decoding and validation
// are shared.
type OpenAIClient struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIClient builds a new grader using the provided configuration.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(openai.DefaultConfig(cfg.APIKey)),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/gema-grader/pkg/grading/openai"),
		logger: logger.With().Str("component", "grading_openai").Logger(),
	}, nil
}

// Grade sends the grading request to OpenAI and decodes the response through
// the shared shape reconciliation.
func (c *OpenAIClient) Grade(parent context.Context, request models.GradingRequest) (map[string]any, error) {
	ctx, span := c.tracer.Start(parent, "grading.openai", trace.WithAttributes(
		attribute.String("model", c.cfg.Model),
		attribute.String("grading.document_id", request.DocumentID),
	))
	defer span.End()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: graderSystemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildGraderPrompt(request),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	invokeDuration.WithLabelValues("openai").Observe(time.Since(start).Seconds())
	if err != nil {
		invokeFailures.WithLabelValues("openai").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &InvocationError{Attempts: 1, Err: fmt.Errorf("openai grade: %w", err)}
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		invokeFailures.WithLabelValues("openai").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &InvocationError{Attempts: 1, Err: err}
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	doc, err := reconcileBody([]byte(content))
	if err != nil {
		invokeFailures.WithLabelValues("openai").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "unrecognized_response")
		return nil, &InvocationError{Attempts: 1, Err: err}
	}

	return doc, nil
}

func graderSystemPrompt() string {
	return "You are an automated assignment grader. Respond with a JSON object in typed-attribute form: every value is a single" +
		"-key object tagged S (string), N (number as string), BOOL, M (map) or L (list). The object must contain analyticsId, " +
		"assignmentId, gradeReceived (0-100), aiGeneratedAnalytics {isAIUsed, percentageOfAIUsed, highlightedAreaOfAIUse}, " +
		"plagarismAnalytics {isPlagarised, plagarisedPercentage, plagarisedFrom}, gradeReasoning (max 60 words) and remarks " +
		"(max 60 words)."
}

func buildGraderPrompt(request models.GradingRequest) string {
	builder := strings.Builder{}
	builder.WriteString("# Assignment ID\n")
	builder.WriteString(request.DocumentID)
	builder.WriteString(fmt.Sprintf("\n\n# Analytics ID\n%d", request.AnalyticsBatchID))
	builder.WriteString("\n\n# Assignment Text\n")
	builder.WriteString(request.DocumentText)
	builder.WriteString("\nReturn JSON.")

	return builder.String()
}

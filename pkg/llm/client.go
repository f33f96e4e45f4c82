package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	maxPlanContentRunes    = 1000
	maxPlanEvaluationRunes = 10000
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "classhive",
		Subsystem: "llm",
		Name:      "request_duration_seconds",
		Help:      "Duration of LLM chat completion requests",
	}, []string{"operation", "model"})

	requestFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classhive",
		Subsystem: "llm",
		Name:      "request_failures_total",
		Help:      "Number of failed LLM chat completion requests",
	}, []string{"operation", "model", "reason"})
)

// Config defines configuration options for the grader client.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
	Logger      zerolog.Logger
}

// Client implements Grader against any OpenAI-compatible chat completions
// endpoint (DeepSeek, LongCat, OpenAI proper) selected via BaseURL.
type Client struct {
	completer ChatCompleter
	cfg       Config
	tracer    trace.Tracer
	logger    zerolog.Logger
	sleep     func(ctx context.Context, d time.Duration)
}

// NewClient builds the grader client. A missing API key is a configuration
// error and fails fast, before any request is attempted.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "deepseek-chat"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.1
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Client{
		completer: openai.NewClientWithConfig(clientConfig),
		cfg:       cfg,
		tracer:    otel.Tracer("github.com/classhive/classhive-api/pkg/llm"),
		logger:    cfg.Logger.With().Str("component", "llm_client").Logger(),
		sleep:     sleepContext,
	}, nil
}

// WithCompleter swaps the transport. Intended for tests.
func (c *Client) WithCompleter(completer ChatCompleter) *Client {
	c.completer = completer
	return c
}

// Evaluate grades the submission content against the fixed rubric and returns
// the narrative verbatim. Every failure path yields a displayable narrative,
// never an error.
func (c *Client) Evaluate(ctx context.Context, content string) string {
	request := c.buildRequest(gradingSystemPrompt, buildEvaluationPrompt(content))
	return c.complete(ctx, "evaluate", "evaluation failed", request)
}

// GeneratePlan produces the four-section study plan from the submission
// content and its stored evaluation. Oversized inputs are silently truncated
// before the request is built.
func (c *Client) GeneratePlan(ctx context.Context, content, evaluation string) string {
	request := c.buildRequest(planningSystemPrompt, buildPlanPrompt(content, evaluation))
	return c.complete(ctx, "plan", "study plan generation failed", request)
}

func (c *Client) buildRequest(systemPrompt, userPrompt string) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	}
}

// complete runs the request with bounded retries. Only timeouts are retried;
// transport errors and malformed responses degrade immediately because the
// request either cannot succeed or already succeeded with a broken contract.
func (c *Client) complete(parent context.Context, operation, failurePrefix string, request openai.ChatCompletionRequest) string {
	ctx, span := c.tracer.Start(parent, "llm."+operation, trace.WithAttributes(
		attribute.String("model", c.cfg.Model),
	))
	defer span.End()

	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		start := time.Now()
		response, err := c.completer.CreateChatCompletion(attemptCtx, request)
		cancel()
		requestDuration.WithLabelValues(operation, c.cfg.Model).Observe(time.Since(start).Seconds())

		if err != nil {
			if !isTimeout(err) {
				requestFailures.WithLabelValues(operation, c.cfg.Model, "transport").Inc()
				span.RecordError(err)
				span.SetStatus(codes.Error, "transport")
				return fmt.Sprintf("%s: network error: %s", failurePrefix, err.Error())
			}

			requestFailures.WithLabelValues(operation, c.cfg.Model, "timeout").Inc()
			c.logger.Warn().
				Str("operation", operation).
				Int("attempt", attempt).
				Int("max_retries", c.cfg.MaxRetries).
				Msg("llm request timed out")

			if attempt == c.cfg.MaxRetries {
				span.SetStatus(codes.Error, "timeout")
				return fmt.Sprintf("%s: request timeout after %d attempts, please retry later", failurePrefix, c.cfg.MaxRetries)
			}

			c.sleep(ctx, c.cfg.RetryDelay)
			continue
		}

		content := responseContent(response)
		if content == "" {
			requestFailures.WithLabelValues(operation, c.cfg.Model, "malformed").Inc()
			span.SetStatus(codes.Error, "malformed")
			return fmt.Sprintf("%s: malformed response from model service", failurePrefix)
		}

		return content
	}

	// Unreachable: the loop always returns on the final attempt.
	return fmt.Sprintf("%s: retry budget exhausted", failurePrefix)
}

func responseContent(response openai.ChatCompletionResponse) string {
	if len(response.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(response.Choices[0].Message.Content)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	openai "github.com/sashabaranov/go-openai"
)

type fakeCompleter struct {
	calls    int
	requests []openai.ChatCompletionRequest
	respond  func(request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls++
	f.requests = append(f.requests, request)
	return f.respond(request)
}

func successResponse(content string) func(openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return func(openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		return openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: content}},
			},
		}, nil
	}
}

func newTestClient(t *testing.T, completer ChatCompleter) *Client {
	t.Helper()

	client, err := NewClient(Config{
		APIKey:     "test-key",
		Model:      "test-model",
		Timeout:    50 * time.Millisecond,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)

	client.WithCompleter(completer)
	client.sleep = func(context.Context, time.Duration) {}
	return client
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
}

func TestEvaluateRetriesTimeoutsThenDegrades(t *testing.T) {
	completer := &fakeCompleter{
		respond: func(openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
			return openai.ChatCompletionResponse{}, context.DeadlineExceeded
		},
	}
	client := newTestClient(t, completer)

	narrative := client.Evaluate(context.Background(), "print('hello')")

	require.Equal(t, 3, completer.calls)
	require.Contains(t, narrative, "timeout")
	require.Contains(t, narrative, "evaluation failed")
}

func TestEvaluateTransportErrorReturnsImmediately(t *testing.T) {
	completer := &fakeCompleter{
		respond: func(openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
			return openai.ChatCompletionResponse{}, errors.New("connection refused")
		},
	}
	client := newTestClient(t, completer)

	narrative := client.Evaluate(context.Background(), "print('hello')")

	require.Equal(t, 1, completer.calls)
	require.Contains(t, narrative, "network error")
	require.Contains(t, narrative, "connection refused")
}

func TestEvaluateMalformedResponseNotRetried(t *testing.T) {
	completer := &fakeCompleter{
		respond: func(openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
			return openai.ChatCompletionResponse{}, nil
		},
	}
	client := newTestClient(t, completer)

	narrative := client.Evaluate(context.Background(), "print('hello')")

	require.Equal(t, 1, completer.calls)
	require.Contains(t, narrative, "malformed response")
}

func TestEvaluateReturnsNarrativeVerbatim(t *testing.T) {
	completer := &fakeCompleter{respond: successResponse("Correct recursion. 88/100")}
	client := newTestClient(t, completer)

	narrative := client.Evaluate(context.Background(), "def factorial(n): ...")

	require.Equal(t, 1, completer.calls)
	require.Equal(t, "Correct recursion. 88/100", narrative)

	request := completer.requests[0]
	require.Len(t, request.Messages, 2)
	require.Equal(t, openai.ChatMessageRoleSystem, request.Messages[0].Role)
	require.Equal(t, openai.ChatMessageRoleUser, request.Messages[1].Role)
	require.Contains(t, request.Messages[1].Content, "def factorial")
	require.Equal(t, "test-model", request.Model)
}

func TestGeneratePlanTruncatesOversizedInput(t *testing.T) {
	completer := &fakeCompleter{respond: successResponse("four section plan")}
	client := newTestClient(t, completer)

	content := strings.Repeat("内", 1500)
	evaluation := strings.Repeat("e", 12000)

	plan := client.GeneratePlan(context.Background(), content, evaluation)
	require.Equal(t, "four section plan", plan)

	prompt := completer.requests[0].Messages[1].Content
	require.Contains(t, prompt, strings.Repeat("内", 1000))
	require.NotContains(t, prompt, strings.Repeat("内", 1001))
	require.Contains(t, prompt, strings.Repeat("e", 10000))
	require.NotContains(t, prompt, strings.Repeat("e", 10001))
}

func TestGeneratePlanTimeoutMarker(t *testing.T) {
	completer := &fakeCompleter{
		respond: func(openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
			return openai.ChatCompletionResponse{}, context.DeadlineExceeded
		},
	}
	client := newTestClient(t, completer)

	plan := client.GeneratePlan(context.Background(), "content", "evaluation")

	require.Equal(t, 3, completer.calls)
	require.Contains(t, plan, "study plan generation failed")
	require.Contains(t, plan, "timeout")
}

package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// Grader turns submission text into a narrative evaluation and, once an
// evaluation exists, a personalized study plan. Both methods degrade to a
// failure narrative instead of returning an error: a failed review is a
// normal, displayable outcome for the hosting request.
type Grader interface {
	Evaluate(ctx context.Context, content string) string
	GeneratePlan(ctx context.Context, content, evaluation string) string
}

// ChatCompleter is the transport the client talks to. *openai.Client
// satisfies it; tests substitute deterministic fakes.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

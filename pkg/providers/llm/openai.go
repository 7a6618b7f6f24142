package llm

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/sonara-ai/sonara-dialogue/pkg/dialogue"
)

// ErrNoChoicesReturned indicates the completion API answered without any
// choices.
var ErrNoChoicesReturned = errors.New("no choices returned from completion")

// chatService is the minimal chat-completion surface, kept as an interface
// so tests can substitute a fake.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// openAIChat adapts the SDK's completion service to chatService.
type openAIChat struct {
	client openai.Client
}

func (s openAIChat) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// OpenAILLM generates reply text through the OpenAI chat completion API.
type OpenAILLM struct {
	chat  chatService
	model openai.ChatModel
}

func NewOpenAILLM(apiKey string, model string) *OpenAILLM {
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	cli := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAILLM{chat: openAIChat{client: cli}, model: openai.ChatModel(model)}
}

func (l *OpenAILLM) Name() string {
	return "openai-llm"
}

// Respond builds the chat transcript from the system prompt, prior history,
// and the user's latest utterance, and returns the model's reply.
func (l *OpenAILLM) Respond(ctx context.Context, systemPrompt string, history []dialogue.Message, userText string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(systemPrompt))
	for _, m := range history {
		switch m.Role {
		case "assistant":
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	messages = append(messages, openai.UserMessage(userText))

	resp, err := l.chat.Create(ctx, openai.ChatCompletionNewParams{
		Model:    l.model,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoicesReturned
	}
	return resp.Choices[0].Message.Content, nil
}

package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"

	"github.com/sonara-ai/sonara-dialogue/pkg/dialogue"
)

// mockChatService implements chatService for testing.
type mockChatService struct {
	resp       openai.ChatCompletion
	err        error
	lastParams openai.ChatCompletionNewParams
}

func (m *mockChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	m.lastParams = params
	return m.resp, m.err
}

func TestRespondSuccess(t *testing.T) {
	mock := &mockChatService{
		resp: openai.ChatCompletion{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "Hello there"}},
			},
		},
	}
	l := &OpenAILLM{chat: mock, model: openai.ChatModelGPT4oMini}

	out, err := l.Respond(context.Background(), "system prompt", nil, "hi")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != "Hello there" {
		t.Errorf("expected 'Hello there', got '%s'", out)
	}

	if len(mock.lastParams.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(mock.lastParams.Messages))
	}
	if mock.lastParams.Messages[0].OfSystem == nil {
		t.Errorf("first message should be the system prompt")
	}
	if mock.lastParams.Messages[1].OfUser == nil {
		t.Errorf("second message should be the user utterance")
	}
}

func TestRespondCarriesHistory(t *testing.T) {
	mock := &mockChatService{
		resp: openai.ChatCompletion{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "ok"}},
			},
		},
	}
	l := &OpenAILLM{chat: mock, model: openai.ChatModelGPT4oMini}

	history := []dialogue.Message{
		{Role: "user", Content: "earlier question"},
		{Role: "assistant", Content: "earlier answer"},
	}
	if _, err := l.Respond(context.Background(), "sys", history, "new question"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// system + 2 history + latest user
	msgs := mock.lastParams.Messages
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	if msgs[2].OfAssistant == nil {
		t.Errorf("history assistant turn should map to an assistant message")
	}
	last := msgs[len(msgs)-1]
	if last.OfUser == nil {
		t.Fatalf("latest user text should be the final message")
	}
	if got := last.OfUser.Content.OfString.Value; got != "new question" {
		t.Errorf("final message content = %q, want 'new question'", got)
	}
}

func TestRespondServiceError(t *testing.T) {
	l := &OpenAILLM{chat: &mockChatService{err: errors.New("service failure")}, model: "m"}
	_, err := l.Respond(context.Background(), "sys", nil, "usr")
	if err == nil || !strings.Contains(err.Error(), "service failure") {
		t.Errorf("expected service failure error, got %v", err)
	}
}

func TestRespondNoChoices(t *testing.T) {
	l := &OpenAILLM{chat: &mockChatService{}, model: "m"}
	_, err := l.Respond(context.Background(), "sys", nil, "usr")
	if !errors.Is(err, ErrNoChoicesReturned) {
		t.Errorf("expected ErrNoChoicesReturned, got %v", err)
	}
}

package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/petems/ushidashi/internal/provider"
)

// OpenAI generates replies with the chat completions endpoint.
type OpenAI struct {
	client openai.Client
	model  string
}

var _ Generator = (*OpenAI)(nil)

// NewOpenAI returns a Generator for model. Extra request options are
// applied after the key.
func NewOpenAI(apiKey, model string, opts ...option.RequestOption) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("openai chat: API key must not be empty")
	}
	if model == "" {
		return nil, errors.New("openai chat: model must not be empty")
	}
	reqOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAI{client: openai.NewClient(reqOpts...), model: model}, nil
}

func (o *OpenAI) Reply(ctx context.Context, messages []Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(o.model),
	}
	for _, m := range messages {
		p, err := convertMessage(m)
		if err != nil {
			return "", err
		}
		params.Messages = append(params.Messages, p)
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", provider.Wrap(service, err)
	}
	if n := len(resp.Choices); n != 1 {
		return "", provider.Violation(service, "expected exactly one choice, got %d", n)
	}
	return resp.Choices[0].Message.Content, nil
}

func convertMessage(m Message) (openai.ChatCompletionMessageParamUnion, error) {
	switch m.Role {
	case RoleSystem:
		return openai.SystemMessage(m.Content), nil
	case RoleUser:
		return openai.UserMessage(m.Content), nil
	case RoleAssistant:
		asst := openai.ChatCompletionAssistantMessageParam{}
		asst.Content.OfString = openai.String(m.Content)
		return openai.ChatCompletionMessageParamUnion{OfAssistant: &asst}, nil
	default:
		return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("openai chat: unknown message role %q", m.Role)
	}
}

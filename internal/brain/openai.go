package brain

import (
	"context"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// openaiProvider implements Provider using an OpenAI-compatible chat API.
type openaiProvider struct {
	client    *openai.Client
	model     string
	maxTokens int64
}

func newOpenAIProvider(apiKey, baseURL, model string, maxTokens int64) *openaiProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &openaiProvider{
		client:    &client,
		model:     model,
		maxTokens: maxTokens,
	}
}

func (o *openaiProvider) Send(ctx context.Context, systemPrompt string, history []Message) (*Response, error) {
	msgs := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(systemPrompt)}
	for _, m := range history {
		if m.Role == RoleAssistant {
			msgs = append(msgs, openai.AssistantMessage(m.Text))
		} else {
			msgs = append(msgs, openai.UserMessage(m.Text))
		}
	}

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:     o.model,
		Messages:  msgs,
		MaxTokens: openai.Int(o.maxTokens),
	})
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return &Response{}, nil
	}
	return &Response{Text: resp.Choices[0].Message.Content}, nil
}

package llm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/fursa-app/opportunity-cli/pkg/chatapi"
)

// openAIProvider adapts an OpenAI-compatible chat endpoint (Groq, Cerebras)
// to the Provider interface.
type openAIProvider struct {
	name   string
	model  string
	client chatapi.Client
}

// NewOpenAIProvider wraps a chatapi client as a pool provider.
func NewOpenAIProvider(name, model string, client chatapi.Client) Provider {
	return &openAIProvider{name: name, model: model, client: client}
}

func (p *openAIProvider) Name() string {
	return p.name
}

func (p *openAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	chatReq := chatapi.ChatCompletionRequest{
		Model: p.model,
		Messages: []chatapi.Message{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
	}
	if req.Temperature > 0 {
		chatReq.Temperature = &req.Temperature
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = &req.MaxTokens
	}

	resp, err := p.client.ChatCompletion(ctx, chatReq)
	if err != nil {
		return "", eris.Wrapf(err, "llm: %s completion", p.name)
	}
	if len(resp.Choices) == 0 {
		return "", eris.Errorf("llm: %s returned no choices", p.name)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

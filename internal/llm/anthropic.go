package llm

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

// anthropicProvider adapts the Anthropic Messages API to the Provider
// interface so an Anthropic endpoint can sit in the same pool as the
// OpenAI-compatible ones.
type anthropicProvider struct {
	name   string
	model  string
	client sdk.Client
}

// NewAnthropicProvider creates a pool provider backed by the official SDK.
// baseURL may be empty to use the default API endpoint.
func NewAnthropicProvider(name, apiKey, model, baseURL string) Provider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &anthropicProvider{
		name:   name,
		model:  model,
		client: sdk.NewClient(opts...),
	}
}

func (p *anthropicProvider) Name() string {
	return p.name
}

func (p *anthropicProvider) Complete(ctx context.Context, req Request) (string, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(p.model),
		MaxTokens: req.MaxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.User)),
		},
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(req.Temperature)
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", eris.Wrapf(err, "llm: %s completion", p.name)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", eris.Errorf("llm: %s returned no text content", p.name)
	}
	return strings.TrimSpace(b.String()), nil
}

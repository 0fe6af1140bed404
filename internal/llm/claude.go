package llm

import (
	"context"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"
)

type ClaudeClient struct {
	client *anthropic.Client
	model  string
}

func NewClaudeClient(apiKey string, model string, baseURL string) *ClaudeClient {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	client := anthropic.NewClient(apiKey, opts...)

	return &ClaudeClient{
		client: client,
		model:  model,
	}
}

func (c *ClaudeClient) Generate(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, c.model, []anthropic.MessageContent{
		anthropic.NewTextMessageContent(prompt),
	})
}

// GenerateJSON: the Anthropic API has no JSON response mode, so the contract
// is enforced by instruction. Callers still run the balanced-brace recovery
// pass on the output.
func (c *ClaudeClient) GenerateJSON(ctx context.Context, prompt, model string, temperature float32) (string, error) {
	if model == "" {
		model = c.model
	}
	full := prompt + "\n\nRéponds UNIQUEMENT avec un objet JSON valide, sans texte autour."
	return c.generate(ctx, model, []anthropic.MessageContent{
		anthropic.NewTextMessageContent(full),
	})
}

func (c *ClaudeClient) GenerateVision(ctx context.Context, prompt string, images []Image) (string, error) {
	content := []anthropic.MessageContent{}
	for _, img := range images {
		content = append(content, anthropic.NewImageMessageContent(
			anthropic.NewMessageContentSource(
				anthropic.MessagesContentSourceTypeBase64, img.MIME, img.Data)))
	}
	content = append(content, anthropic.NewTextMessageContent(prompt))
	return c.generate(ctx, c.model, content)
}

func (c *ClaudeClient) generate(ctx context.Context, model string, content []anthropic.MessageContent) (string, error) {
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model: anthropic.Model(model),
		Messages: []anthropic.Message{
			{
				Role:    anthropic.RoleUser,
				Content: content,
			},
		},
		MaxTokens: 4000,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Content) > 0 && resp.Content[0].Text != nil {
		return *resp.Content[0].Text, nil
	}
	return "", fmt.Errorf("no response content")
}

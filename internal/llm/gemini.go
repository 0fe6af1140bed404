package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, apiKey string, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GeminiClient{
		client: client,
		model:  model,
	}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.model)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	return textFromResponse(resp)
}

func (c *GeminiClient) GenerateJSON(ctx context.Context, prompt, modelName string, temperature float32) (string, error) {
	if modelName == "" {
		modelName = c.model
	}
	model := c.client.GenerativeModel(modelName)
	model.ResponseMIMEType = "application/json"
	if temperature >= 0 {
		model.SetTemperature(temperature)
	}
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	return textFromResponse(resp)
}

func (c *GeminiClient) GenerateVision(ctx context.Context, prompt string, images []Image) (string, error) {
	model := c.client.GenerativeModel(c.model)
	parts := []genai.Part{genai.Text(prompt)}
	for _, img := range images {
		// genai wants the bare format, not the full MIME type.
		format := strings.TrimPrefix(img.MIME, "image/")
		parts = append(parts, genai.ImageData(format, img.Data))
	}
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", err
	}
	return textFromResponse(resp)
}

func textFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		var b strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				b.WriteString(string(txt))
			}
		}
		if b.Len() > 0 {
			return b.String(), nil
		}
	}
	return "", fmt.Errorf("no response candidates or content")
}

package generation

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is the generative model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

// Params are the generation parameters forwarded with every prompt.
type Params struct {
	Temperature     float32
	TopK            float32
	TopP            float32
	MaxOutputTokens int32
}

// DefaultParams favors grounded, low-variance answers.
func DefaultParams() Params {
	return Params{
		Temperature:     0.2,
		TopK:            40,
		TopP:            0.9,
		MaxOutputTokens: 1024,
	}
}

// GeminiCaller implements ModelCaller against the Gemini API.
type GeminiCaller struct {
	client *genai.Client
	model  string
	params Params
}

// NewGeminiCaller creates the model boundary. The API key is required.
func NewGeminiCaller(ctx context.Context, apiKey, model string, params Params) (*GeminiCaller, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("generation: missing API key")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("generation: create client: %w", err)
	}
	return &GeminiCaller{client: client, model: model, params: params}, nil
}

// GenerateText sends one prompt and returns the model's text.
func (g *GeminiCaller) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(
		ctx,
		g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{
			Temperature:     genai.Ptr(g.params.Temperature),
			TopK:            genai.Ptr(g.params.TopK),
			TopP:            genai.Ptr(g.params.TopP),
			MaxOutputTokens: g.params.MaxOutputTokens,
		},
	)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

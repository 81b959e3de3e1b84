package ai

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"storybook-platform/internal/domain"
	"storybook-platform/internal/domain/ports/adapter"
)

var _ adapter.TextGenerator = (*GeminiTextGenerator)(nil)

type GeminiTextGenerator struct {
	client *genai.Client
	model  string
	maxOut int
}

func newGenAIClient(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
}

func NewGeminiTextGenerator(ctx context.Context, apiKey, baseURL, model string, maxOut int) (*GeminiTextGenerator, error) {
	c, err := newGenAIClient(ctx, apiKey, baseURL)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiTextGenerator{client: c, model: model, maxOut: maxOut}, nil
}

func (g *GeminiTextGenerator) Name() string { return "gemini" }

func (g *GeminiTextGenerator) GenerateStory(ctx context.Context, req adapter.StoryRequest) (*adapter.GeneratedStory, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(buildStoryPrompt(req)), &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: storySystemPrompt}}},
		ResponseMIMEType:  "application/json",
		MaxOutputTokens:   int32(g.maxOut),
	})
	if err != nil {
		return nil, err
	}
	text := firstText(resp)
	if text == "" {
		return nil, domain.ErrEmptyResult
	}
	return parseStory(text)
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && p.Text != "" {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

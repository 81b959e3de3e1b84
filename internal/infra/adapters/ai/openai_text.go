package ai

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"github.com/pkoukk/tiktoken-go"

	"storybook-platform/internal/domain"
	"storybook-platform/internal/domain/ports/adapter"
	"storybook-platform/internal/infra/metrics"
)

var _ adapter.TextGenerator = (*OpenAITextGenerator)(nil)

const (
	tokensPerPage   = 220
	minOutputTokens = 800
)

// OpenAITextGenerator writes the story with Chat Completions in JSON mode.
type OpenAITextGenerator struct {
	client    openai.Client
	model     string
	maxTokens int

	encOnce sync.Once
	enc     *tiktoken.Tiktoken
}

func NewOpenAITextGenerator(apiKey, baseURL, model string, maxTokens int) (*OpenAITextGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if maxTokens <= 0 {
		maxTokens = 3000
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	return &OpenAITextGenerator{client: openai.NewClient(opts...), model: model, maxTokens: maxTokens}, nil
}

func (g *OpenAITextGenerator) Name() string { return "openai" }

func (g *OpenAITextGenerator) GenerateStory(ctx context.Context, req adapter.StoryRequest) (*adapter.GeneratedStory, error) {
	prompt := buildStoryPrompt(req)
	metrics.AddPromptTokens(g.model, g.countTokens(storySystemPrompt)+g.countTokens(prompt))

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(storySystemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0.7),
		MaxTokens:   openai.Int(int64(g.outputBudget(req.PageCount))),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return nil, err
	}
	for _, c := range resp.Choices {
		if c.Message.Content != "" {
			return parseStory(c.Message.Content)
		}
	}
	return nil, domain.ErrEmptyResult
}

// outputBudget scales the completion limit with the page count, capped by config.
func (g *OpenAITextGenerator) outputBudget(pages int) int {
	n := pages * tokensPerPage
	if n < minOutputTokens {
		n = minOutputTokens
	}
	if n > g.maxTokens {
		n = g.maxTokens
	}
	return n
}

// countTokens falls back to a length estimate when no encoding can be loaded.
func (g *OpenAITextGenerator) countTokens(s string) int {
	g.encOnce.Do(func() {
		enc, err := tiktoken.EncodingForModel(g.model)
		if err != nil {
			enc, err = tiktoken.GetEncoding("cl100k_base")
		}
		if err == nil {
			g.enc = enc
		}
	})
	if g.enc == nil {
		return len(s) / 4
	}
	return len(g.enc.Encode(s, nil, nil))
}

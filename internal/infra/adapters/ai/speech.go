package ai

import (
	"context"
	"errors"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"storybook-platform/internal/domain"
	"storybook-platform/internal/domain/ports/adapter"
)

var _ adapter.AudioGenerator = (*SpeechGenerator)(nil)

// SpeechGenerator narrates one page with the text-to-speech endpoint.
type SpeechGenerator struct {
	client *openai.Client
	model  string
}

func NewSpeechGenerator(apiKey, baseURL, model string) (*SpeechGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = string(openai.TTSModel1)
	}
	return &SpeechGenerator{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

func (g *SpeechGenerator) Name() string { return "openai-tts" }

func (g *SpeechGenerator) GenerateSpeech(ctx context.Context, req adapter.SpeechRequest) (*adapter.Asset, error) {
	resp, err := g.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(g.model),
		Input:          req.Text,
		Voice:          openai.SpeechVoice(req.Voice),
		Speed:          req.Speed,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Close()
	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, domain.ErrEmptyResult
	}
	return &adapter.Asset{Data: data, MIMEType: "audio/mpeg", Provider: g.Name()}, nil
}

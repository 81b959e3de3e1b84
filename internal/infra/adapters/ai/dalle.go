package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"storybook-platform/internal/domain"
	"storybook-platform/internal/domain/model"
	"storybook-platform/internal/domain/ports/adapter"
)

var _ adapter.ImageGenerator = (*DalleImageGenerator)(nil)

// DalleImageGenerator is the costlier image provider; high quality maps to hd.
type DalleImageGenerator struct {
	client openai.Client
	model  string
}

func NewDalleImageGenerator(apiKey, baseURL, model string) (*DalleImageGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "dall-e-3"
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	return &DalleImageGenerator{client: openai.NewClient(opts...), model: model}, nil
}

func (g *DalleImageGenerator) Name() string { return "dalle" }

func (g *DalleImageGenerator) GenerateImage(ctx context.Context, req adapter.ImageRequest) (*adapter.Asset, error) {
	quality := openai.ImageGenerateParamsQualityStandard
	if req.Quality == model.ImageQualityHigh {
		quality = openai.ImageGenerateParamsQualityHD
	}
	resp, err := g.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         req.Prompt,
		Model:          openai.ImageModel(g.model),
		N:              openai.Int(1),
		Size:           openai.ImageGenerateParamsSize1024x1024,
		Quality:        quality,
		ResponseFormat: openai.ImageGenerateParamsResponseFormatURL,
	})
	if err != nil {
		return nil, err
	}
	for _, img := range resp.Data {
		if img.URL != "" {
			return &adapter.Asset{URL: img.URL, MIMEType: "image/png", Provider: g.Name()}, nil
		}
		if img.B64JSON != "" {
			data, err := base64.StdEncoding.DecodeString(img.B64JSON)
			if err != nil {
				return nil, err
			}
			return &adapter.Asset{Data: data, MIMEType: "image/png", Provider: g.Name()}, nil
		}
	}
	return nil, domain.ErrEmptyResult
}

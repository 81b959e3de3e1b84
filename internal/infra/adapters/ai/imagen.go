package ai

import (
	"context"

	"google.golang.org/genai"

	"storybook-platform/internal/domain"
	"storybook-platform/internal/domain/ports/adapter"
)

var _ adapter.ImageGenerator = (*ImagenGenerator)(nil)

// ImagenGenerator returns image bytes, never a URL.
type ImagenGenerator struct {
	client *genai.Client
	model  string
}

func NewImagenGenerator(ctx context.Context, apiKey, baseURL, model string) (*ImagenGenerator, error) {
	c, err := newGenAIClient(ctx, apiKey, baseURL)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = "imagen-3.0-generate-002"
	}
	return &ImagenGenerator{client: c, model: model}, nil
}

func (g *ImagenGenerator) Name() string { return "imagen" }

func (g *ImagenGenerator) GenerateImage(ctx context.Context, req adapter.ImageRequest) (*adapter.Asset, error) {
	resp, err := g.client.Models.GenerateImages(ctx, g.model, req.Prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    "1:1",
		OutputMIMEType: "image/png",
	})
	if err != nil {
		return nil, err
	}
	for _, gi := range resp.GeneratedImages {
		if gi == nil || gi.Image == nil || len(gi.Image.ImageBytes) == 0 {
			continue
		}
		mime := gi.Image.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		return &adapter.Asset{Data: gi.Image.ImageBytes, MIMEType: mime, Provider: g.Name()}, nil
	}
	return nil, domain.ErrEmptyResult
}

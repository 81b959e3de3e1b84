package ai

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"storybook-platform/internal/domain"
	"storybook-platform/internal/domain/ports/adapter"
	"storybook-platform/internal/infra/metrics"
)

var (
	_ adapter.TextGenerator  = (*TextChain)(nil)
	_ adapter.ImageGenerator = (*ImageChain)(nil)
	_ adapter.AudioGenerator = (*AudioChain)(nil)
)

// firstSuccess tries each provider in order and returns the first usable
// result. An empty result counts as a failure.
func firstSuccess[P interface{ Name() string }, R any](
	ctx context.Context,
	kind string,
	providers []P,
	log *zerolog.Logger,
	call func(ctx context.Context, p P) (R, error),
	empty func(R) bool,
) (R, error) {
	var zero R
	if len(providers) == 0 {
		return zero, domain.ErrProviderUnavailable
	}
	var errs []error
	for i, p := range providers {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		start := time.Now()
		out, err := call(ctx, p)
		if err == nil && empty(out) {
			err = domain.ErrEmptyResult
		}
		metrics.ObserveProviderCall(kind, p.Name(), time.Since(start).Milliseconds(), err == nil)
		if err == nil {
			return out, nil
		}
		errs = append(errs, err)
		log.Warn().Err(err).Str("kind", kind).Str("provider", p.Name()).Msg("provider call failed")
		if i < len(providers)-1 {
			metrics.IncFallback(kind, p.Name())
		}
	}
	return zero, errors.Join(append([]error{domain.ErrProviderUnavailable}, errs...)...)
}

// TextChain asks providers in order until one returns a parseable story.
type TextChain struct {
	providers []adapter.TextGenerator
	log       *zerolog.Logger
}

func NewTextChain(logger *zerolog.Logger, providers ...adapter.TextGenerator) *TextChain {
	return &TextChain{providers: providers, log: logger}
}

func (c *TextChain) Name() string { return "text-chain" }

func (c *TextChain) GenerateStory(ctx context.Context, req adapter.StoryRequest) (*adapter.GeneratedStory, error) {
	return firstSuccess(ctx, "text", c.providers, c.log,
		func(ctx context.Context, p adapter.TextGenerator) (*adapter.GeneratedStory, error) {
			return p.GenerateStory(ctx, req)
		},
		func(s *adapter.GeneratedStory) bool { return s == nil || len(s.Pages) == 0 },
	)
}

// ImageChain puts the fast provider first and the costlier one after it.
type ImageChain struct {
	providers []adapter.ImageGenerator
	log       *zerolog.Logger
}

func NewImageChain(logger *zerolog.Logger, providers ...adapter.ImageGenerator) *ImageChain {
	return &ImageChain{providers: providers, log: logger}
}

func (c *ImageChain) Name() string { return "image-chain" }

func (c *ImageChain) GenerateImage(ctx context.Context, req adapter.ImageRequest) (*adapter.Asset, error) {
	return firstSuccess(ctx, "image", c.providers, c.log,
		func(ctx context.Context, p adapter.ImageGenerator) (*adapter.Asset, error) {
			return p.GenerateImage(ctx, req)
		},
		func(a *adapter.Asset) bool { return a.Empty() },
	)
}

type AudioChain struct {
	providers []adapter.AudioGenerator
	log       *zerolog.Logger
}

func NewAudioChain(logger *zerolog.Logger, providers ...adapter.AudioGenerator) *AudioChain {
	return &AudioChain{providers: providers, log: logger}
}

func (c *AudioChain) Name() string { return "audio-chain" }

func (c *AudioChain) GenerateSpeech(ctx context.Context, req adapter.SpeechRequest) (*adapter.Asset, error) {
	return firstSuccess(ctx, "audio", c.providers, c.log,
		func(ctx context.Context, p adapter.AudioGenerator) (*adapter.Asset, error) {
			return p.GenerateSpeech(ctx, req)
		},
		func(a *adapter.Asset) bool { return a.Empty() },
	)
}

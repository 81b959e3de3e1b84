package ai

import (
	"context"

	"github.com/rs/zerolog"

	"storybook-platform/internal/config"
	"storybook-platform/internal/domain/ports/adapter"
)

type Generators struct {
	Text  adapter.TextGenerator
	Image adapter.ImageGenerator
	Audio adapter.AudioGenerator
}

// Build assembles the provider chains from config. Providers without
// credentials are skipped; synthetic mode (or no provider at all for a
// kind) falls back to the offline generators.
func Build(ctx context.Context, cfg config.AIConfig, logger *zerolog.Logger) (*Generators, error) {
	lim := NewLimiter(cfg.ConcurrentLimit)
	if cfg.Synthetic {
		logger.Warn().Msg("using synthetic generators")
		return &Generators{
			Text:  LimitText(SyntheticText{}, lim),
			Image: LimitImage(SyntheticImage{}, lim),
			Audio: LimitAudio(SyntheticAudio{}, lim),
		}, nil
	}

	var texts []adapter.TextGenerator
	if cfg.OpenAIKey != "" {
		g, err := NewOpenAITextGenerator(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.TextModel, cfg.TextMaxTokens)
		if err != nil {
			return nil, err
		}
		texts = append(texts, LimitText(g, lim))
	}
	if cfg.GeminiKey != "" {
		g, err := NewGeminiTextGenerator(ctx, cfg.GeminiKey, cfg.GeminiURL, cfg.GeminiTextModel, cfg.TextMaxTokens)
		if err != nil {
			return nil, err
		}
		texts = append(texts, LimitText(g, lim))
	}

	var images []adapter.ImageGenerator
	if cfg.ReplicateToken != "" {
		g, err := NewReplicateImageGenerator(cfg.ReplicateToken, cfg.ReplicateModel)
		if err != nil {
			return nil, err
		}
		images = append(images, LimitImage(g, lim))
	}
	if cfg.GeminiKey != "" {
		g, err := NewImagenGenerator(ctx, cfg.GeminiKey, cfg.GeminiURL, cfg.ImagenModel)
		if err != nil {
			return nil, err
		}
		images = append(images, LimitImage(g, lim))
	}
	if cfg.OpenAIKey != "" {
		g, err := NewDalleImageGenerator(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.DalleModel)
		if err != nil {
			return nil, err
		}
		images = append(images, LimitImage(g, lim))
	}

	var audios []adapter.AudioGenerator
	if cfg.OpenAIKey != "" {
		g, err := NewSpeechGenerator(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.TTSModel)
		if err != nil {
			return nil, err
		}
		audios = append(audios, LimitAudio(g, lim))
	}

	if len(images) == 0 {
		logger.Warn().Msg("no image provider configured, using synthetic images")
		images = append(images, LimitImage(SyntheticImage{}, lim))
	}
	if len(audios) == 0 {
		logger.Warn().Msg("no speech provider configured, using synthetic audio")
		audios = append(audios, LimitAudio(SyntheticAudio{}, lim))
	}

	return &Generators{
		Text:  NewTextChain(logger, texts...),
		Image: NewImageChain(logger, images...),
		Audio: NewAudioChain(logger, audios...),
	}, nil
}

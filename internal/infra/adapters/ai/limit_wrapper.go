package ai

import (
	"context"

	"storybook-platform/internal/domain/ports/adapter"
)

// Limiter bounds in-flight provider calls across every generator that shares it.
type Limiter struct {
	sem chan struct{}
}

func NewLimiter(maxConcurrent int) *Limiter {
	if maxConcurrent <= 0 {
		return nil
	}
	return &Limiter{sem: make(chan struct{}, maxConcurrent)}
}

func (l *Limiter) acquire(ctx context.Context) error {
	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Limiter) release() { <-l.sem }

type limitedText struct {
	inner adapter.TextGenerator
	lim   *Limiter
}

func (l *limitedText) Name() string { return l.inner.Name() }

func (l *limitedText) GenerateStory(ctx context.Context, req adapter.StoryRequest) (*adapter.GeneratedStory, error) {
	if err := l.lim.acquire(ctx); err != nil {
		return nil, err
	}
	defer l.lim.release()
	return l.inner.GenerateStory(ctx, req)
}

type limitedImage struct {
	inner adapter.ImageGenerator
	lim   *Limiter
}

func (l *limitedImage) Name() string { return l.inner.Name() }

func (l *limitedImage) GenerateImage(ctx context.Context, req adapter.ImageRequest) (*adapter.Asset, error) {
	if err := l.lim.acquire(ctx); err != nil {
		return nil, err
	}
	defer l.lim.release()
	return l.inner.GenerateImage(ctx, req)
}

type limitedAudio struct {
	inner adapter.AudioGenerator
	lim   *Limiter
}

func (l *limitedAudio) Name() string { return l.inner.Name() }

func (l *limitedAudio) GenerateSpeech(ctx context.Context, req adapter.SpeechRequest) (*adapter.Asset, error) {
	if err := l.lim.acquire(ctx); err != nil {
		return nil, err
	}
	defer l.lim.release()
	return l.inner.GenerateSpeech(ctx, req)
}

// LimitText returns inner unchanged when lim is nil.
func LimitText(inner adapter.TextGenerator, lim *Limiter) adapter.TextGenerator {
	if lim == nil {
		return inner
	}
	return &limitedText{inner: inner, lim: lim}
}

func LimitImage(inner adapter.ImageGenerator, lim *Limiter) adapter.ImageGenerator {
	if lim == nil {
		return inner
	}
	return &limitedImage{inner: inner, lim: lim}
}

func LimitAudio(inner adapter.AudioGenerator, lim *Limiter) adapter.AudioGenerator {
	if lim == nil {
		return inner
	}
	return &limitedAudio{inner: inner, lim: lim}
}

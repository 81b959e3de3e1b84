package ai

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"time"

	"storybook-platform/internal/domain/ports/adapter"
)

// Synthetic generators let the service run end to end without provider keys.
// They respect ctx and answer after a short delay.

var (
	_ adapter.TextGenerator  = (*SyntheticText)(nil)
	_ adapter.ImageGenerator = (*SyntheticImage)(nil)
	_ adapter.AudioGenerator = (*SyntheticAudio)(nil)
)

const syntheticDelay = 50 * time.Millisecond

func wait(ctx context.Context) error {
	select {
	case <-time.After(syntheticDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type SyntheticText struct{}

func (SyntheticText) Name() string { return "synthetic" }

func (SyntheticText) GenerateStory(ctx context.Context, req adapter.StoryRequest) (*adapter.GeneratedStory, error) {
	if err := wait(ctx); err != nil {
		return nil, err
	}
	out := &adapter.GeneratedStory{
		Title:      fmt.Sprintf("%s y %s", req.ChildName, req.Theme),
		Characters: map[string]string{req.ChildName: "a cheerful child with a yellow raincoat and red boots"},
	}
	for i := 1; i <= req.PageCount; i++ {
		out.Pages = append(out.Pages, adapter.GeneratedPage{
			Number:           i,
			Text:             fmt.Sprintf("Página %d: %s descubre algo nuevo sobre %s.", i, req.ChildName, req.Theme),
			SceneDescription: fmt.Sprintf("%s exploring %s, scene %d", req.ChildName, req.Theme, i),
		})
	}
	return out, nil
}

// SyntheticImage returns a small solid PNG whose color depends on the page.
type SyntheticImage struct{}

func (SyntheticImage) Name() string { return "synthetic" }

func (SyntheticImage) GenerateImage(ctx context.Context, req adapter.ImageRequest) (*adapter.Asset, error) {
	if err := wait(ctx); err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	c := color.RGBA{R: uint8(40 * req.PageNumber), G: 160, B: 200, A: 255}
	for x := 0; x < 64; x++ {
		for y := 0; y < 64; y++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return &adapter.Asset{Data: buf.Bytes(), MIMEType: "image/png", Provider: "synthetic"}, nil
}

type SyntheticAudio struct{}

func (SyntheticAudio) Name() string { return "synthetic" }

func (SyntheticAudio) GenerateSpeech(ctx context.Context, req adapter.SpeechRequest) (*adapter.Asset, error) {
	if err := wait(ctx); err != nil {
		return nil, err
	}
	return &adapter.Asset{Data: []byte("ID3" + req.Text), MIMEType: "audio/mpeg", Provider: "synthetic"}, nil
}

package adapter

import (
	"context"

	"storybook-platform/internal/domain/model"
)

// StoryRequest is what the text stage sends to a provider.
type StoryRequest struct {
	ChildName  string
	AgeGroup   string
	Theme      string
	Tone       string
	PageCount  int
	Attributes model.StoryAttributes
}

type GeneratedPage struct {
	Number           int    `json:"numero"`
	Text             string `json:"texto"`
	SceneDescription string `json:"descripcion_escena"`
}

// GeneratedStory is the parsed provider output. Characters maps a character
// name to a fixed visual description when the model supplies one.
type GeneratedStory struct {
	Title      string            `json:"titulo"`
	Pages      []GeneratedPage   `json:"paginas"`
	Characters map[string]string `json:"personajes,omitempty"`
}

// TextGenerator is the port for the story text stage.
type TextGenerator interface {
	Name() string
	GenerateStory(ctx context.Context, req StoryRequest) (*GeneratedStory, error)
}

// ImageRequest carries one page's prompt plus the continuity hints.
type ImageRequest struct {
	StoryID    string
	PageNumber int
	TotalPages int
	Prompt     string
	Quality    model.ImageQuality
}

// Asset is a generated binary. Providers return either a remote URL or the
// bytes themselves.
type Asset struct {
	URL      string
	Data     []byte
	MIMEType string
	Provider string
}

func (a *Asset) Empty() bool { return a == nil || (a.URL == "" && len(a.Data) == 0) }

// ImageGenerator is the port for per-page illustrations.
type ImageGenerator interface {
	Name() string
	GenerateImage(ctx context.Context, req ImageRequest) (*Asset, error)
}

type SpeechRequest struct {
	StoryID    string
	PageNumber int
	Text       string
	Voice      string
	Speed      float64
}

// AudioGenerator is the port for narration.
type AudioGenerator interface {
	Name() string
	GenerateSpeech(ctx context.Context, req SpeechRequest) (*Asset, error)
}

package model

import (
	"fmt"
	"strings"

	"storybook-platform/internal/domain"
)

var NarrationVoices = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}

const (
	DefaultNarrationVoice = "nova"
	DefaultNarrationSpeed = 1.0
	MinNarrationSpeed     = 0.25
	MaxNarrationSpeed     = 4.0
)

type NarrationRequest struct {
	Voice string  `json:"voice"`
	Speed float64 `json:"speed"`
}

// Normalize fills defaults and rejects unknown voices or out of range speeds.
func (r *NarrationRequest) Normalize() error {
	r.Voice = strings.ToLower(strings.TrimSpace(r.Voice))
	if r.Voice == "" {
		r.Voice = DefaultNarrationVoice
	}
	if !contains(NarrationVoices, r.Voice) {
		return fmt.Errorf("%w: unknown voice %q", domain.ErrInvalidArgument, r.Voice)
	}
	if r.Speed == 0 {
		r.Speed = DefaultNarrationSpeed
	}
	if r.Speed < MinNarrationSpeed || r.Speed > MaxNarrationSpeed {
		return fmt.Errorf("%w: speed must be between %.2f and %.1f", domain.ErrInvalidArgument, MinNarrationSpeed, MaxNarrationSpeed)
	}
	return nil
}

// NarrationResult reports a finished narration. Pages reflects the stored audio urls.
type NarrationResult struct {
	StoryID       string  `json:"storyId"`
	Voice         string  `json:"voice"`
	PagesNarrated int     `json:"pagesNarrated"`
	CreditCost    int     `json:"creditCost"`
	Pages         []*Page `json:"pages"`
}

package model

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"storybook-platform/internal/domain"
)

var (
	AgeGroups = []string{"0-2", "3-5", "6-8", "9-12"}
	Tones     = []string{"tierno", "divertido", "educativo"}
)

const (
	maxChildNameLen = 30
	maxThemeLen     = 100
	maxTraitLen     = 30
	maxFreeTextLen  = 200
)

// StoryInput is what a user submits when commissioning a story.
type StoryInput struct {
	ChildName  string          `json:"childName"`
	AgeGroup   string          `json:"childAgeGroup"`
	Theme      string          `json:"theme"`
	Tone       string          `json:"tone"`
	Length     string          `json:"length"`
	Attributes StoryAttributes `json:"traits"`
}

// Validate checks shape only; entitlement is decided by the gate.
func (in StoryInput) Validate(lengths []string) error {
	name := strings.TrimSpace(in.ChildName)
	if name == "" || utf8.RuneCountInString(name) > maxChildNameLen {
		return fmt.Errorf("%w: childName must be 1-%d characters", domain.ErrInvalidArgument, maxChildNameLen)
	}
	if !contains(AgeGroups, in.AgeGroup) {
		return fmt.Errorf("%w: unknown age group %q", domain.ErrInvalidArgument, in.AgeGroup)
	}
	theme := strings.TrimSpace(in.Theme)
	if theme == "" || utf8.RuneCountInString(theme) > maxThemeLen {
		return fmt.Errorf("%w: theme must be 1-%d characters", domain.ErrInvalidArgument, maxThemeLen)
	}
	if !contains(Tones, in.Tone) {
		return fmt.Errorf("%w: unknown tone %q", domain.ErrInvalidArgument, in.Tone)
	}
	if !contains(lengths, in.Length) {
		return fmt.Errorf("%w: unknown length %q", domain.ErrInvalidArgument, in.Length)
	}
	a := in.Attributes
	if utf8.RuneCountInString(a.PetName) > maxTraitLen || utf8.RuneCountInString(a.FavoriteColor) > maxTraitLen {
		return fmt.Errorf("%w: traits must be at most %d characters", domain.ErrInvalidArgument, maxTraitLen)
	}
	for _, v := range []string{a.ArtStyle, a.ColorPalette, a.AuthorName, a.Dedication} {
		if utf8.RuneCountInString(v) > maxFreeTextLen {
			return fmt.Errorf("%w: attribute too long", domain.ErrInvalidArgument)
		}
	}
	if len(a.Characters) > 0 {
		return fmt.Errorf("%w: characters are derived, not accepted as input", domain.ErrInvalidArgument)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

package usecase

import (
	"fmt"
	"sort"
	"strings"

	"storybook-platform/internal/domain/model"
)

const defaultArtStyle = "watercolor"

var artStyleHints = map[string]string{
	"watercolor": "watercolor style, soft washes of color",
	"cartoon":    "bright cartoon style with clean outlines",
	"digital":    "polished digital painting",
	"storybook":  "classic storybook illustration with fine ink lines",
	"pastel":     "gentle pastel crayon drawing",
}

// imagePrompt describes one page for the illustrator. Character descriptions,
// style and palette repeat on every page so the pages look like one book.
func imagePrompt(s *model.Story, scene string, page, total int) string {
	style := s.Attributes.ArtStyle
	if style == "" {
		style = defaultArtStyle
	}
	hint, ok := artStyleHints[style]
	if !ok {
		hint = style + " style"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Children's book illustration, %s, whimsical and friendly atmosphere. ", hint)
	if p := strings.TrimSpace(s.Attributes.ColorPalette); p != "" {
		fmt.Fprintf(&b, "Color palette: %s. ", p)
	} else {
		b.WriteString("Warm and vibrant colors. ")
	}
	fmt.Fprintf(&b, "Scene: %s. ", strings.TrimSpace(scene))
	fmt.Fprintf(&b, "The main character is a child named %s, approximately %s years old. ", s.ChildName, s.AgeGroup)
	if pet := strings.TrimSpace(s.Attributes.PetName); pet != "" {
		fmt.Fprintf(&b, "Their pet is %s. ", pet)
	}
	if len(s.Attributes.Characters) > 0 {
		names := make([]string, 0, len(s.Attributes.Characters))
		for n := range s.Attributes.Characters {
			names = append(names, n)
		}
		sort.Strings(names)
		b.WriteString("Characters, drawn the same on every page: ")
		for i, n := range names {
			if i > 0 {
				b.WriteString("; ")
			}
			fmt.Fprintf(&b, "%s: %s", n, s.Attributes.Characters[n])
		}
		b.WriteString(". ")
	}
	fmt.Fprintf(&b, "Page %d of %d. ", page, total)
	b.WriteString("Soft rounded shapes, gentle lighting, safe and cheerful for children. No text or words in the image.")
	return b.String()
}

package moderation

import (
	"regexp"

	"storybook-platform/internal/domain/ports/adapter"
)

var _ adapter.ContentModerator = (*KeywordModerator)(nil)

// DefaultPatterns covers violence, sexual content, substances, self harm
// and prompt injection attempts. Matching is case-insensitive substring.
var DefaultPatterns = []string{
	"violencia", "matar", "sangre", "arma", "pistola", "cuchillo",
	"sexual", "desnud", "droga", "alcohol", "suicid",
	"terroris", "bomba", "secuestr",
	"ignore previous", "ignore las instrucciones", "system prompt",
	"inyecci[oó]n", "jailbreak", "DAN mode",
}

type rule struct {
	term string
	re   *regexp.Regexp
}

type KeywordModerator struct {
	rules []rule
}

func NewKeywordModerator(patterns ...string) (*KeywordModerator, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	m := &KeywordModerator{rules: make([]rule, 0, len(patterns))}
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, err
		}
		m.rules = append(m.rules, rule{term: p, re: re})
	}
	return m, nil
}

func (m *KeywordModerator) Check(text string) adapter.ModerationResult {
	var flagged []string
	for _, r := range m.rules {
		if r.re.MatchString(text) {
			flagged = append(flagged, r.term)
		}
	}
	return adapter.ModerationResult{Safe: len(flagged) == 0, FlaggedTerms: flagged}
}

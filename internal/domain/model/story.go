package model

import (
	"strings"
	"time"

	"storybook-platform/internal/domain"
)

type StoryStatus string

const (
	StoryStatusQueued           StoryStatus = "queued"
	StoryStatusGeneratingText   StoryStatus = "generating_text"
	StoryStatusGeneratingImages StoryStatus = "generating_images"
	StoryStatusReady            StoryStatus = "ready"
	StoryStatusFailed           StoryStatus = "failed"
)

// Terminal reports whether no further transition is possible.
func (s StoryStatus) Terminal() bool {
	return s == StoryStatusReady || s == StoryStatusFailed
}

// Active reports whether a background run owns the story.
func (s StoryStatus) Active() bool {
	return s == StoryStatusGeneratingText || s == StoryStatusGeneratingImages
}

// Progress checkpoints reported to pollers. They are weights, not measurements.
const (
	ProgressQueued        = 0
	ProgressStarted       = 5
	ProgressTextStarted   = 10
	ProgressTextDone      = 30
	ProgressImagesStarted = 40
	ProgressImagesDone    = 80
	ProgressReady         = 100
)

type ImageQuality string

const (
	ImageQualityStandard ImageQuality = "standard"
	ImageQualityHigh     ImageQuality = "high"
)

// StoryAttributes is the fixed set of optional per-story traits.
// Characters is filled by the text stage and keeps illustrations consistent.
type StoryAttributes struct {
	PetName       string            `json:"petName,omitempty"`
	FavoriteColor string            `json:"favoriteColor,omitempty"`
	ArtStyle      string            `json:"artStyle,omitempty"`
	ColorPalette  string            `json:"colorPalette,omitempty"`
	AuthorName    string            `json:"authorName,omitempty"`
	Dedication    string            `json:"dedication,omitempty"`
	Characters    map[string]string `json:"characters,omitempty"`
}

// Values returns the user supplied trait values, used for input moderation.
func (a StoryAttributes) Values() []string {
	out := make([]string, 0, 6)
	for _, v := range []string{a.PetName, a.FavoriteColor, a.ArtStyle, a.ColorPalette, a.AuthorName, a.Dedication} {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

// WithCharacters returns a copy enriched with derived character descriptions.
func (a StoryAttributes) WithCharacters(chars map[string]string) StoryAttributes {
	cp := a
	if len(chars) == 0 {
		return cp
	}
	cp.Characters = make(map[string]string, len(a.Characters)+len(chars))
	for k, v := range a.Characters {
		cp.Characters[k] = v
	}
	for k, v := range chars {
		cp.Characters[k] = v
	}
	return cp
}

// Story is one generation job and the record it produces.
type Story struct {
	ID             string          `json:"id"`
	UserID         string          `json:"-"`
	Title          string          `json:"title"`
	ChildName      string          `json:"childName"`
	AgeGroup       string          `json:"childAgeGroup"`
	Theme          string          `json:"theme"`
	Tone           string          `json:"tone"`
	Length         string          `json:"length"`
	Attributes     StoryAttributes `json:"traits"`
	Status         StoryStatus     `json:"status"`
	Progress       int             `json:"progress"`
	CreditCost     int             `json:"creditCost"`
	ImageQuality   ImageQuality    `json:"imageQuality"`
	ErrorMessage   string          `json:"error,omitempty"`
	NarrationVoice string          `json:"narrationVoice,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// StoryStatusView is the poll payload; a pure read of the story row.
type StoryStatusView struct {
	Owner    string      `json:"-"`
	Status   StoryStatus `json:"status"`
	Progress int         `json:"progress"`
	Title    string      `json:"title,omitempty"`
	Error    string      `json:"error,omitempty"`
}

func (s *Story) StatusView() StoryStatusView {
	return StoryStatusView{Owner: s.UserID, Status: s.Status, Progress: s.Progress, Title: s.Title, Error: s.ErrorMessage}
}

// NewStory builds a queued story at progress 0.
func NewStory(id, userID string, in StoryInput, cost int, quality ImageQuality) (*Story, error) {
	if id == "" || userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if cost < 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Story{
		ID:           id,
		UserID:       userID,
		ChildName:    strings.TrimSpace(in.ChildName),
		AgeGroup:     in.AgeGroup,
		Theme:        strings.TrimSpace(in.Theme),
		Tone:         in.Tone,
		Length:       in.Length,
		Attributes:   in.Attributes,
		Status:       StoryStatusQueued,
		Progress:     ProgressQueued,
		CreditCost:   cost,
		ImageQuality: quality,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Advance moves the story forward. Progress never goes backwards and a
// terminal story never changes again.
func (s *Story) Advance(status StoryStatus, progress int) bool {
	if s.Status.Terminal() {
		return false
	}
	s.Status = status
	if progress > s.Progress {
		s.Progress = progress
	}
	s.UpdatedAt = time.Now()
	return true
}

// Fail moves the story to the absorbing failed state.
func (s *Story) Fail(msg string) bool {
	if s.Status.Terminal() {
		return false
	}
	s.Status = StoryStatusFailed
	s.ErrorMessage = msg
	s.UpdatedAt = time.Now()
	return true
}

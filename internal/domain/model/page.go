package model

import "time"

// Page belongs to exactly one story. A nil ImageURL means the illustration
// failed; the page is still delivered.
type Page struct {
	ID          string    `json:"id"`
	StoryID     string    `json:"storyId"`
	PageNumber  int       `json:"pageNumber"`
	Text        string    `json:"text"`
	ImageURL    *string   `json:"imageUrl"`
	ImagePrompt string    `json:"-"`
	AudioURL    *string   `json:"audioUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (p *Page) HasImage() bool { return p.ImageURL != nil && *p.ImageURL != "" }

func (p *Page) HasAudio() bool { return p.AudioURL != nil && *p.AudioURL != "" }

// StoryWithPages is the read model returned to the owner.
type StoryWithPages struct {
	Story *Story  `json:"story"`
	Pages []*Page `json:"pages"`
}

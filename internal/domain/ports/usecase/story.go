package usecase

import "context"

// StoryRunner drives one started story through its stages to a terminal state.
type StoryRunner interface {
	Run(ctx context.Context, storyID string) error
}

// JobDispatcher hands a started story to background execution that outlives
// the request which started it.
type JobDispatcher interface {
	Dispatch(ctx context.Context, storyID string) error
}

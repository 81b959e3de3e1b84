package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrAlreadyExists       = errors.New("entity already exists")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrForbidden           = errors.New("forbidden")

	// Persistence errors
	ErrInvalidExecContext = errors.New("invalid database execution context")
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// Story lifecycle errors
	ErrInvalidState     = errors.New("story is not in a valid state for this operation")
	ErrAlreadyStarted   = errors.New("story generation already started")
	ErrContentRejected  = errors.New("content did not pass safety filters")
	ErrUnparseableStory = errors.New("text generator returned unparseable story")
	ErrAlreadyNarrated  = errors.New("story already has narration")
	ErrNoPages          = errors.New("story has no pages")
	ErrQueueFull        = errors.New("generation queue is full")
	ErrLockHeld         = errors.New("lock is held by another owner")

	// Adapter errors
	ErrProviderUnavailable = errors.New("no generation provider available")
	ErrEmptyResult         = errors.New("provider returned an empty result")
)

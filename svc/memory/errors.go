package memory

import "errors"

var (
	// ErrUpgradeRequired means the user's tier does not allow the operation.
	ErrUpgradeRequired = errors.New("quota exceeded, upgrade required")

	ErrEmptyContent        = errors.New("memory content is empty")
	ErrInvalidUserID       = errors.New("user id is required")
	ErrNoMemories          = errors.New("no memories selected for summary")
	ErrMemoryNotFound      = errors.New("memory not found")
	ErrRepository          = errors.New("memory repository failure")
	ErrSummarizationFailed = errors.New("summarization failed")
)

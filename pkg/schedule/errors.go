package schedule

import "errors"

var (
	// ErrEmptyExpression is returned when an empty cron expression is parsed
	ErrEmptyExpression = errors.New("empty cron expression")

	// ErrInvalidExpression is returned when a cron expression cannot be parsed
	ErrInvalidExpression = errors.New("invalid cron expression")
)

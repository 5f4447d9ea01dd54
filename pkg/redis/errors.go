package redis

import "errors"

var (
	ErrEmptyConnectionURL           = errors.New("redis: connection URL is empty")
	ErrFailedToParseRedisConnString = errors.New("redis: invalid connection URL")
	// ErrRedisNotReady means every connection attempt failed to ping.
	ErrRedisNotReady     = errors.New("redis: server not ready after retries")
	ErrHealthcheckFailed = errors.New("redis: healthcheck failed")
)

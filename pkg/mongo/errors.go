package mongo

import "errors"

var (
	// ErrFailedToConnectToMongo is returned once every connection attempt
	// has failed; the last driver error is joined to it.
	ErrFailedToConnectToMongo = errors.New("mongo: failed to connect")
	ErrHealthcheckFailed      = errors.New("mongo: healthcheck failed")
)

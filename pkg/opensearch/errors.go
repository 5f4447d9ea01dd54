package opensearch

import "errors"

var (
	// ErrConnectionFailed means the client could not be created.
	ErrConnectionFailed = errors.New("opensearch connection failed")

	// ErrHealthcheckFailed means the cluster is unreachable or unhealthy.
	ErrHealthcheckFailed = errors.New("opensearch healthcheck failed")

	ErrNoAddresses      = errors.New("no opensearch addresses configured")
	ErrIndexSetupFailed = errors.New("opensearch index setup failed")
)

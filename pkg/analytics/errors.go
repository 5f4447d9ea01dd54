package analytics

import "errors"

var (
	ErrSinkClosed       = errors.New("analytics sink is closed")
	ErrFailedToStore    = errors.New("failed to store analytics events")
	ErrBulkIndexPartial = errors.New("bulk index reported item failures")
)

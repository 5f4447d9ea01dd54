package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.String(strconv.Itoa(i), err.Error()))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error records a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}

// UserID records the user identifier under the key "user_id".
func UserID(id string) slog.Attr {
	return slog.String("user_id", id)
}

// Tier records a subscription tier under the key "tier".
func Tier(tier any) slog.Attr {
	return slog.Any("tier", tier)
}

// Operation records a metered operation under the key "operation".
func Operation(op any) slog.Attr {
	return slog.Any("operation", op)
}

// JobID records a scheduled job identifier under the key "job_id".
func JobID(id string) slog.Attr {
	return slog.String("job_id", id)
}

// ExecutionID records a job execution identifier under the key "execution_id".
func ExecutionID(id any) slog.Attr {
	return slog.Any("execution_id", id)
}

// EventType records the event type under the key "event_type".
func EventType(eventType any) slog.Attr {
	return slog.Any("event_type", eventType)
}

// Duration records a duration under the key "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Count records a number of affected items under the key "count".
func Count(n int64) slog.Attr {
	return slog.Int64("count", n)
}

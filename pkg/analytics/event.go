package analytics

import "time"

// EventType names a subscription lifecycle event.
type EventType string

const (
	EventUpgrade            EventType = "upgrade"
	EventDowngrade          EventType = "downgrade"
	EventExtend             EventType = "extend"
	EventUsageReset         EventType = "usage_reset"
	EventLimitReached       EventType = "limit_reached"
	EventGracePeriodEntered EventType = "grace_period_entered"
	EventGracePeriodExpired EventType = "grace_period_expired"
	EventMonthlyReset       EventType = "monthly_reset"
	EventReactivation       EventType = "reactivation"
)

// Event is a single analytics record. Subscription carries a snapshot of the
// record the event was raised for; Data carries event specific fields.
type Event struct {
	ID           string         `json:"id" bson:"_id"`
	Type         EventType      `json:"event_type" bson:"event_type"`
	UserID       string         `json:"user_id,omitempty" bson:"user_id,omitempty"`
	Subscription any            `json:"subscription_data,omitempty" bson:"subscription_data,omitempty"`
	Data         map[string]any `json:"analytics_data,omitempty" bson:"analytics_data,omitempty"`
	Timestamp    time.Time      `json:"timestamp" bson:"timestamp"`
}

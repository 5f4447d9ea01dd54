package subscription

import (
	"time"

	"github.com/dmitrymomot/memkeep/pkg/calendar"
)

// State is the lifecycle state derived from a record at a point in time.
type State string

const (
	StateActiveFree  State = "active_free"
	StateActivePro   State = "active_pro"
	StateGrace       State = "grace"
	StateExpiredFree State = "expired_free"
)

// EffectiveStatus is what quota checks and displays act on. It is computed
// on every read and never stored.
type EffectiveStatus struct {
	State              State      `json:"state"`
	EffectiveTier      Tier       `json:"effective_tier"`
	IsActive           bool       `json:"is_active"`
	IsExpired          bool       `json:"is_expired"`
	IsInGracePeriod    bool       `json:"is_in_grace_period"`
	GracePeriodEnd     *time.Time `json:"grace_period_end,omitempty"`
	GraceDaysRemaining int        `json:"grace_days_remaining"`
}

// Derive computes the effective status of rec at now. It reads only tier,
// status and end date, so a stored "active" record whose end date has passed
// is already reported as grace before the daily job persists the change.
//
//	free                         -> active_free (expired_free if stored expired)
//	pro, now <= end, not expired -> active_pro
//	pro, now <= end + grace      -> grace
//	pro, later                   -> expired_free
func Derive(rec Record, policy Policy, now time.Time) EffectiveStatus {
	now = calendar.UTC(now)

	if rec.Tier != TierPro {
		if rec.Status == StatusExpired {
			return expiredFree()
		}
		return EffectiveStatus{State: StateActiveFree, EffectiveTier: TierFree, IsActive: true}
	}

	if rec.EndDate == nil {
		// Pro without an end date only comes from hand-edited data.
		if rec.Status == StatusExpired {
			return expiredFree()
		}
		return EffectiveStatus{State: StateActivePro, EffectiveTier: TierPro, IsActive: true}
	}

	end := calendar.UTC(*rec.EndDate)
	if rec.Status != StatusExpired && !now.After(end) {
		return EffectiveStatus{State: StateActivePro, EffectiveTier: TierPro, IsActive: true}
	}

	graceEnd := policy.GracePeriodEnd(end)
	if !now.After(graceEnd) && policy.GracePeriodDays > 0 {
		return EffectiveStatus{
			State:              StateGrace,
			EffectiveTier:      TierGrace,
			IsExpired:          true,
			IsInGracePeriod:    true,
			GracePeriodEnd:     &graceEnd,
			GraceDaysRemaining: calendar.DaysUntilCeil(now, graceEnd),
		}
	}

	st := expiredFree()
	st.GracePeriodEnd = &graceEnd
	return st
}

func expiredFree() EffectiveStatus {
	return EffectiveStatus{State: StateExpiredFree, EffectiveTier: TierFree, IsExpired: true}
}

package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrymomot/memkeep/pkg/analytics"
	"github.com/dmitrymomot/memkeep/pkg/logger"
)

// Reason explains a quota decision.
type Reason string

const (
	ReasonWithinLimit    Reason = "within_limit"
	ReasonUnlimited      Reason = "unlimited"
	ReasonLimitReached   Reason = "limit_reached"
	ReasonNoSubscription Reason = "no_subscription"
)

// Decision is the typed answer to a quota check.
type Decision struct {
	Allowed       bool      `json:"allowed"`
	Reason        Reason    `json:"reason"`
	Operation     Operation `json:"operation"`
	EffectiveTier Tier      `json:"effective_tier"`
	Used          int64     `json:"used"`
	Limit         int64     `json:"limit"`
	Requested     int64     `json:"requested"`
}

// Evaluate decides op for rec at now. Grace usage is measured against the
// grace counters, not the expired pro counters.
func Evaluate(rec Record, policy Policy, op Operation, amount int64, now time.Time) Decision {
	status := Derive(rec, policy, now)
	limits := policy.LimitsFor(status.EffectiveTier)
	used := usageFor(rec, status, op, now)

	d := Decision{
		Operation:     op,
		EffectiveTier: status.EffectiveTier,
		Used:          used,
		Limit:         limits.For(op),
		Requested:     amount,
	}

	switch {
	case d.Limit == Unlimited:
		d.Allowed, d.Reason = true, ReasonUnlimited
	case limits.Allows(op, used, amount):
		d.Allowed, d.Reason = true, ReasonWithinLimit
	default:
		d.Reason = ReasonLimitReached
	}
	return d
}

func usageFor(rec Record, status EffectiveStatus, op Operation, now time.Time) int64 {
	if status.IsInGracePeriod {
		if op == OperationGenerateSummary {
			return rec.GraceSummaryPagesUsed
		}
		return rec.GraceMemoriesUsed
	}
	if op == OperationGenerateSummary {
		return rec.monthlyPagesAt(now)
	}
	return rec.TotalMemoriesSaved
}

// Check evaluates op for the user. A missing record is denied with
// ErrNotFound; store failures are returned as is and never turned into a
// decision.
func (s *Service) Check(ctx context.Context, userID string, op Operation, amount int64) (Decision, error) {
	if !op.Valid() {
		return Decision{}, ErrInvalidOperation
	}
	if amount <= 0 {
		return Decision{}, ErrInvalidAmount
	}

	rec, err := s.GetSubscription(ctx, userID)
	if err != nil {
		denied := Decision{Operation: op, Requested: amount, Reason: ReasonNoSubscription}
		if errors.Is(err, ErrNotFound) {
			s.log.ErrorContext(ctx, "quota check for user without subscription record",
				logger.UserID(userID), logger.Operation(op))
			return denied, err
		}
		s.log.ErrorContext(ctx, "quota check failed",
			logger.UserID(userID), logger.Operation(op), logger.Error(err))
		return denied, err
	}

	d := Evaluate(*rec, s.policy, op, amount, s.now())
	if !d.Allowed {
		s.log.InfoContext(ctx, "quota limit reached",
			logger.UserID(userID),
			logger.Operation(op),
			logger.Tier(d.EffectiveTier),
			logger.Count(d.Used),
		)
		s.emit(ctx, analytics.EventLimitReached, rec, map[string]any{
			"operation":      op,
			"effective_tier": d.EffectiveTier,
			"used":           d.Used,
			"limit":          d.Limit,
			"requested":      amount,
		})
	}
	return d, nil
}

// CanPerform reports whether the user may perform op for amount units
// (1 for a memory save, the estimated page count for a summary).
func (s *Service) CanPerform(ctx context.Context, userID string, op Operation, amount int64) (bool, error) {
	d, err := s.Check(ctx, userID, op, amount)
	if err != nil {
		return false, err
	}
	return d.Allowed, nil
}

// Counter is one usage line of a UsageReport. Limit is Unlimited when not
// enforced.
type Counter struct {
	Used  int64 `json:"used"`
	Limit int64 `json:"limit"`
}

// Remaining returns the units left, or Unlimited.
func (c Counter) Remaining() int64 {
	if c.Limit == Unlimited {
		return Unlimited
	}
	return max(0, c.Limit-c.Used)
}

// UsageReport summarises a user's quota position for dashboards.
type UsageReport struct {
	UserID           string          `json:"user_id"`
	Status           EffectiveStatus `json:"status"`
	Memories         Counter         `json:"memories"`
	SummaryPages     Counter         `json:"summary_pages"`
	MonthlyResetDate time.Time       `json:"monthly_reset_date"`
}

// Usage returns the usage report for the user.
func (s *Service) Usage(ctx context.Context, userID string) (UsageReport, error) {
	rec, err := s.GetSubscription(ctx, userID)
	if err != nil {
		return UsageReport{}, err
	}

	now := s.now()
	status := Derive(*rec, s.policy, now)
	limits := s.policy.LimitsFor(status.EffectiveTier)

	return UsageReport{
		UserID: userID,
		Status: status,
		Memories: Counter{
			Used:  usageFor(*rec, status, OperationSaveMemory, now),
			Limit: limits.Memories,
		},
		SummaryPages: Counter{
			Used:  usageFor(*rec, status, OperationGenerateSummary, now),
			Limit: limits.MonthlySummaryPages,
		},
		MonthlyResetDate: rec.MonthlyResetDate,
	}, nil
}

package subscription

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/dmitrymomot/memkeep/pkg/analytics"
	"github.com/dmitrymomot/memkeep/pkg/calendar"
	"github.com/dmitrymomot/memkeep/pkg/logger"
)

// Reactivate restores a lapsed or cancelled pro subscription for another
// pro period. It is allowed from grace, from cancelled and from expired
// records with pro history. Payment is simulated: any non-empty payment
// method is accepted.
func (s *Service) Reactivate(ctx context.Context, userID, paymentMethod string) (*Record, error) {
	paymentMethod = strings.TrimSpace(paymentMethod)
	if paymentMethod == "" {
		return nil, ErrInvalidPaymentMethod
	}

	rec, err := s.GetSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	status := Derive(*rec, s.policy, now)
	switch {
	case !rec.hasProHistory():
		return nil, invalidTransition("user %s never had a pro subscription", userID)
	case status.State == StateActivePro && rec.Status == StatusActive:
		return nil, invalidTransition("subscription of user %s is already active", userID)
	}

	patch := s.proPeriodPatch(*rec, now, s.policy.ProPeriodDays)
	if err := s.save(ctx, rec, patch); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "subscription reactivated",
		logger.UserID(userID),
		slog.String("from_state", string(status.State)),
	)
	s.emit(ctx, analytics.EventReactivation, rec, map[string]any{
		"payment_method": paymentMethod,
		"previous_state": status.State,
	})
	return rec, nil
}

// proPeriodPatch starts a fresh pro period of days from now. Grace usage is
// cleared and a monthly counter from an earlier month is reset.
func (s *Service) proPeriodPatch(rec Record, now time.Time, days int) Patch {
	end := calendar.AddDays(now, days)
	patch := Patch{
		Tier:                  lo.ToPtr(TierPro),
		Status:                lo.ToPtr(StatusActive),
		StartDate:             &now,
		EndDate:               &end,
		ProHistory:            lo.ToPtr(true),
		GraceMemoriesUsed:     lo.ToPtr[int64](0),
		GraceSummaryPagesUsed: lo.ToPtr[int64](0),
	}
	if calendar.BeforeMonthOf(rec.MonthlyResetDate, now) {
		patch.MonthlySummaryPagesUsed = lo.ToPtr[int64](0)
		patch.MonthlyResetDate = lo.ToPtr(calendar.FirstOfMonth(now))
	}
	return patch
}

package subscription

import (
	"context"
	"time"

	"github.com/samber/lo"

	"github.com/dmitrymomot/memkeep/pkg/analytics"
	"github.com/dmitrymomot/memkeep/pkg/calendar"
	"github.com/dmitrymomot/memkeep/pkg/logger"
)

// IncrementMemory adds one saved memory and returns the new lifetime total.
// During grace the grace counter grows as well. The increment is a
// read-then-write; concurrent saves may undercount.
func (s *Service) IncrementMemory(ctx context.Context, userID string) (int64, error) {
	rec, err := s.GetSubscription(ctx, userID)
	if err != nil {
		return 0, userNotFound(err)
	}

	now := s.now()
	total := rec.TotalMemoriesSaved + 1
	patch := Patch{TotalMemoriesSaved: &total}
	if Derive(*rec, s.policy, now).IsInGracePeriod {
		patch.GraceMemoriesUsed = lo.ToPtr(rec.GraceMemoriesUsed + 1)
	}

	if err := s.update(ctx, userID, patch); err != nil {
		return 0, userNotFound(err)
	}
	return total, nil
}

// IncrementSummaryPages adds pages to the monthly counter and returns the
// new value. A counter left over from an earlier month restarts at zero and
// the reset marker moves to the current month.
func (s *Service) IncrementSummaryPages(ctx context.Context, userID string, pages int64) (int64, error) {
	if pages <= 0 {
		return 0, ErrInvalidAmount
	}

	rec, err := s.GetSubscription(ctx, userID)
	if err != nil {
		return 0, userNotFound(err)
	}

	now := s.now()
	used := rec.monthlyPagesAt(now) + pages
	patch := Patch{MonthlySummaryPagesUsed: &used}
	if calendar.BeforeMonthOf(rec.MonthlyResetDate, now) {
		patch.MonthlyResetDate = lo.ToPtr(calendar.FirstOfMonth(now))
	}
	if Derive(*rec, s.policy, now).IsInGracePeriod {
		patch.GraceSummaryPagesUsed = lo.ToPtr(rec.GraceSummaryPagesUsed + pages)
	}

	if err := s.update(ctx, userID, patch); err != nil {
		return 0, userNotFound(err)
	}
	return used, nil
}

// ResetResult is the outcome of a monthly reset.
type ResetResult struct {
	UsersUpdated int64     `json:"users_updated"`
	ResetDate    time.Time `json:"reset_date"`
}

// ResetMonthlySummaries zeroes the monthly page counter of every record and
// moves the marker to the first of the current month. Running it twice in a
// month writes again but changes nothing.
func (s *Service) ResetMonthlySummaries(ctx context.Context) (ResetResult, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	now := s.now()
	marker := calendar.FirstOfMonth(now)
	n, err := s.store.BulkUpdateAll(ctx, Patch{
		MonthlySummaryPagesUsed: lo.ToPtr[int64](0),
		MonthlyResetDate:        &marker,
		UpdatedAt:               &now,
	})
	if err != nil {
		s.log.ErrorContext(ctx, "monthly summary reset failed", logger.Error(err))
		return ResetResult{}, err
	}

	res := ResetResult{UsersUpdated: n, ResetDate: marker}
	s.log.InfoContext(ctx, "monthly summary usage reset", logger.Count(n))
	s.emit(ctx, analytics.EventMonthlyReset, nil, map[string]any{
		"users_updated": n,
		"reset_date":    marker,
	})
	return res, nil
}

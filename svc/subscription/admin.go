package subscription

import (
	"context"

	"github.com/samber/lo"

	"github.com/dmitrymomot/memkeep/pkg/analytics"
	"github.com/dmitrymomot/memkeep/pkg/calendar"
	"github.com/dmitrymomot/memkeep/pkg/logger"
)

// AdminOptions carries the optional inputs of an admin upgrade.
type AdminOptions struct {
	// ExtendDays is the length of the pro period. Zero means the policy's
	// pro period.
	ExtendDays int
	Reason     string
}

// ResetOptions selects the counters ResetUsage clears.
type ResetOptions struct {
	Memories  bool
	Summaries bool
}

// Upgrade moves the user to pro. Users in grace or with an expired or
// cancelled subscription can be upgraded; an active pro user cannot.
func (s *Service) Upgrade(ctx context.Context, userID string, opts AdminOptions) (*Record, error) {
	days := opts.ExtendDays
	if days < 0 {
		return nil, ErrInvalidDays
	}
	if days == 0 {
		days = s.policy.ProPeriodDays
	}

	rec, err := s.GetSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if st := Derive(*rec, s.policy, now); st.State == StateActivePro && rec.Status == StatusActive {
		return nil, invalidTransition("user %s is already on an active pro subscription", userID)
	}

	patch := s.proPeriodPatch(*rec, now, days)
	if err := s.save(ctx, rec, patch); err != nil {
		return nil, err
	}

	s.adminDone(ctx, analytics.EventUpgrade, rec, opts.Reason, map[string]any{"days": days})
	return rec, nil
}

// Downgrade moves the user to an active free subscription and clears the
// end date.
func (s *Service) Downgrade(ctx context.Context, userID, reason string) (*Record, error) {
	rec, err := s.GetSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rec.Tier == TierFree {
		return nil, invalidTransition("user %s is already on the free tier", userID)
	}

	patch := Patch{
		Tier:                  lo.ToPtr(TierFree),
		Status:                lo.ToPtr(StatusActive),
		ClearEndDate:          true,
		ProHistory:            lo.ToPtr(true),
		GraceMemoriesUsed:     lo.ToPtr[int64](0),
		GraceSummaryPagesUsed: lo.ToPtr[int64](0),
	}
	if err := s.save(ctx, rec, patch); err != nil {
		return nil, err
	}

	s.adminDone(ctx, analytics.EventDowngrade, rec, reason, nil)
	return rec, nil
}

// Extend adds days to a pro subscription. A subscription still running is
// extended from its end date; a lapsed one from now, which also ends grace.
func (s *Service) Extend(ctx context.Context, userID string, days int, reason string) (*Record, error) {
	if days <= 0 {
		return nil, ErrInvalidDays
	}

	rec, err := s.GetSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rec.Tier != TierPro {
		return nil, invalidTransition("user %s has no pro subscription to extend", userID)
	}

	now := s.now()
	from := now
	if rec.EndDate != nil && rec.EndDate.After(now) {
		from = calendar.UTC(*rec.EndDate)
	}
	end := calendar.AddDays(from, days)

	patch := Patch{EndDate: &end}
	if rec.Status == StatusExpired {
		patch.Status = lo.ToPtr(StatusActive)
		patch.GraceMemoriesUsed = lo.ToPtr[int64](0)
		patch.GraceSummaryPagesUsed = lo.ToPtr[int64](0)
	}
	if err := s.save(ctx, rec, patch); err != nil {
		return nil, err
	}

	s.adminDone(ctx, analytics.EventExtend, rec, reason, map[string]any{
		"days":     days,
		"end_date": end,
	})
	return rec, nil
}

// ResetUsage clears the selected counters, grace counters included.
func (s *Service) ResetUsage(ctx context.Context, userID string, opts ResetOptions, reason string) (*Record, error) {
	if !opts.Memories && !opts.Summaries {
		return nil, ErrNothingToReset
	}

	rec, err := s.GetSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}

	var patch Patch
	if opts.Memories {
		patch.TotalMemoriesSaved = lo.ToPtr[int64](0)
		patch.GraceMemoriesUsed = lo.ToPtr[int64](0)
	}
	if opts.Summaries {
		patch.MonthlySummaryPagesUsed = lo.ToPtr[int64](0)
		patch.GraceSummaryPagesUsed = lo.ToPtr[int64](0)
		patch.MonthlyResetDate = lo.ToPtr(calendar.FirstOfMonth(s.now()))
	}
	if err := s.save(ctx, rec, patch); err != nil {
		return nil, err
	}

	s.adminDone(ctx, analytics.EventUsageReset, rec, reason, map[string]any{
		"memories":  opts.Memories,
		"summaries": opts.Summaries,
	})
	return rec, nil
}

// ListItem pairs a record with its effective status.
type ListItem struct {
	Record Record          `json:"record"`
	Status EffectiveStatus `json:"status"`
}

// ListPage is one page of ListSubscriptions.
type ListPage struct {
	Items    []ListItem `json:"items"`
	Total    int64      `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
}

// ListSubscriptions returns one page of records for admin listings.
func (s *Service) ListSubscriptions(ctx context.Context, filter Filter, page, pageSize int) (ListPage, error) {
	page, pageSize = normalizePage(page, pageSize)

	records, total, err := s.queryPage(ctx, filter, page, pageSize)
	if err != nil {
		return ListPage{}, err
	}

	now := s.now()
	return ListPage{
		Items: lo.Map(records, func(r Record, _ int) ListItem {
			return ListItem{Record: r, Status: Derive(r, s.policy, now)}
		}),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (s *Service) adminDone(ctx context.Context, t analytics.EventType, rec *Record, reason string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["admin"] = true
	if reason != "" {
		data["reason"] = reason
	}

	s.log.InfoContext(ctx, "subscription changed by admin",
		logger.UserID(rec.UserID),
		logger.EventType(t),
		logger.Tier(rec.Tier),
	)
	s.emit(ctx, t, rec, data)
}

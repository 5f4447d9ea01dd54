package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/dmitrymomot/memkeep/pkg/analytics"
	"github.com/dmitrymomot/memkeep/pkg/calendar"
	"github.com/dmitrymomot/memkeep/pkg/logger"
)

// BatchStatus is the terminal state of a batch transition run.
type BatchStatus string

const (
	BatchSuccess        BatchStatus = "success"
	BatchPartialSuccess BatchStatus = "partial_success"
	BatchFailed         BatchStatus = "failed"
)

// Phase names a pass of the daily expiry run.
type Phase string

const (
	PhaseEnterGrace  Phase = "active_to_grace"
	PhaseExpireGrace Phase = "grace_to_free"
)

// TransitionError records a user whose transition failed.
type TransitionError struct {
	UserID string `json:"user_id"`
	Phase  Phase  `json:"phase"`
	Error  string `json:"error"`
}

// ExpirationResult is the outcome of ProcessExpirations.
type ExpirationResult struct {
	Status        BatchStatus       `json:"status"`
	MovedToGrace  []string          `json:"moved_to_grace"`
	ExpiredToFree []string          `json:"expired_to_free"`
	Errors        []TransitionError `json:"errors"`
	ProcessedAt   time.Time         `json:"processed_at"`
}

// ExpireActive moves an active pro record past its end date into grace:
// status becomes expired and the tier stays pro. Grace counters are kept;
// grace starts at the end date, not when this job runs, and usage in between
// already counts against the allowance.
func (s *Service) ExpireActive(ctx context.Context, rec Record) error {
	patch := Patch{
		Status:    lo.ToPtr(StatusExpired),
		UpdatedAt: lo.ToPtr(s.now()),
	}
	if err := s.updateWithRetry(ctx, rec.UserID, patch); err != nil {
		return err
	}

	patch.Apply(&rec)
	s.log.InfoContext(ctx, "subscription entered grace period", logger.UserID(rec.UserID))
	s.emit(ctx, analytics.EventGracePeriodEntered, &rec, map[string]any{
		"grace_period_end": s.policy.GracePeriodEnd(lo.FromPtr(rec.EndDate)),
	})
	return nil
}

// ExpireGrace downgrades a record whose grace period is over. The status
// stays expired and the end date is kept for audit.
func (s *Service) ExpireGrace(ctx context.Context, rec Record) error {
	patch := Patch{Tier: lo.ToPtr(TierFree), ProHistory: lo.ToPtr(true), UpdatedAt: lo.ToPtr(s.now())}
	if err := s.updateWithRetry(ctx, rec.UserID, patch); err != nil {
		return err
	}

	patch.Apply(&rec)
	s.log.InfoContext(ctx, "subscription grace period expired", logger.UserID(rec.UserID))
	s.emit(ctx, analytics.EventGracePeriodExpired, &rec, nil)
	return nil
}

// ProcessExpirations runs the daily transitions. The active-to-grace pass
// completes before the grace-to-free pass reads, and users moved by the
// first pass are left out of the second. A failing user is recorded and the
// rest of the batch carries on. A failed query or a run where every
// transition failed returns an error alongside the result.
func (s *Service) ProcessExpirations(ctx context.Context) (ExpirationResult, error) {
	now := s.now()
	res := ExpirationResult{
		MovedToGrace:  []string{},
		ExpiredToFree: []string{},
		Errors:        []TransitionError{},
		ProcessedAt:   now,
	}

	due, err := s.collect(ctx, Filter{Tier: TierPro, Status: StatusActive, EndDateUntil: &now})
	if err != nil {
		res.Status = BatchFailed
		return res, err
	}
	for _, rec := range due {
		if err := s.ExpireActive(ctx, rec); err != nil {
			res.Errors = append(res.Errors, s.transitionFailed(ctx, rec.UserID, PhaseEnterGrace, err))
			continue
		}
		res.MovedToGrace = append(res.MovedToGrace, rec.UserID)
	}

	cutoff := calendar.AddDays(now, -s.policy.GracePeriodDays)
	lapsed, err := s.collect(ctx, Filter{Tier: TierPro, Status: StatusExpired, EndDateUntil: &cutoff})
	if err != nil {
		res.Status = BatchFailed
		return res, err
	}
	for _, rec := range lapsed {
		if lo.Contains(res.MovedToGrace, rec.UserID) {
			continue
		}
		if err := s.ExpireGrace(ctx, rec); err != nil {
			res.Errors = append(res.Errors, s.transitionFailed(ctx, rec.UserID, PhaseExpireGrace, err))
			continue
		}
		res.ExpiredToFree = append(res.ExpiredToFree, rec.UserID)
	}

	moved := len(res.MovedToGrace) + len(res.ExpiredToFree)
	switch {
	case len(res.Errors) == 0:
		res.Status = BatchSuccess
	case moved > 0:
		res.Status = BatchPartialSuccess
	default:
		res.Status = BatchFailed
	}

	s.log.InfoContext(ctx, "daily expiry check finished",
		slog.String("status", string(res.Status)),
		logger.Count(int64(moved)),
		slog.Int("failed", len(res.Errors)),
	)
	if res.Status == BatchFailed {
		return res, fmt.Errorf("%w: %d transitions failed", ErrBatchFailed, len(res.Errors))
	}
	return res, nil
}

func (s *Service) transitionFailed(ctx context.Context, userID string, phase Phase, err error) TransitionError {
	s.log.ErrorContext(ctx, "subscription transition failed",
		logger.UserID(userID),
		logger.Operation(phase),
		logger.Error(err),
	)
	return TransitionError{UserID: userID, Phase: phase, Error: err.Error()}
}

// collectPageSize is the page size used when loading batch candidates.
const collectPageSize = 200

// collect loads every matching record before any is modified, so updates
// cannot shift the pages being read.
func (s *Service) collect(ctx context.Context, filter Filter) ([]Record, error) {
	var out []Record
	for page := 1; ; page++ {
		records, total, err := s.queryPage(ctx, filter, page, collectPageSize)
		if err != nil {
			return nil, err
		}
		out = append(out, records...)
		if len(records) == 0 || int64(len(out)) >= total {
			return out, nil
		}
	}
}

func (s *Service) queryPage(ctx context.Context, filter Filter, page, pageSize int) ([]Record, int64, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.store.Query(ctx, filter, page, pageSize)
}

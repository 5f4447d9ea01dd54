// Package subscription is the subscription lifecycle and quota engine.
//
// Every user has one Record holding the stored tier (free or pro), status,
// pro period dates and usage counters. What the rest of the application acts
// on is the EffectiveStatus returned by Derive, computed from the record and
// the current time on every read:
//
//	active_free  -> free limits
//	active_pro   -> pro limits
//	grace        -> grace allowance, counted separately, for GracePeriodDays
//	expired_free -> free limits
//
// Reads never write. Stored transitions happen in three places only: the
// daily expiry job (ProcessExpirations), an explicit Reactivate and the
// admin operations (Upgrade, Downgrade, Extend, ResetUsage).
//
// # Quota checks
//
// Use cases call CanPerform (or Check for the full Decision) before the
// action and IncrementMemory or IncrementSummaryPages after it. Increments
// are bookkeeping: a failure is logged by the caller and does not undo the
// action. A user without a record is denied with ErrNotFound, which is a
// different signal than an over-limit denial.
//
//	pages := subscription.EstimatePages(text)
//	ok, err := svc.CanPerform(ctx, userID, subscription.OperationGenerateSummary, pages)
//
// # Jobs
//
// Jobs returns the monthly_summary_reset and daily_expiry_check definitions
// for a jobrunner.Runner.
package subscription

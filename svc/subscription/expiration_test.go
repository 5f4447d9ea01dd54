package subscription_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/memkeep/pkg/analytics"
	"github.com/dmitrymomot/memkeep/pkg/calendar"
	"github.com/dmitrymomot/memkeep/pkg/logger"
	"github.com/dmitrymomot/memkeep/svc/subscription"
)

func TestService_ProcessExpirations(t *testing.T) {
	t.Parallel()

	t.Run("both passes", func(t *testing.T) {
		t.Parallel()

		due := proRecord("due", testNow.Add(-calendar.Day), subscription.StatusActive)
		due.GraceMemoriesUsed = 3
		lapsed := proRecord("lapsed", testNow.Add(-8*calendar.Day), subscription.StatusExpired)
		running := proRecord("running", testNow.Add(5*calendar.Day), subscription.StatusActive)
		// Missed several daily runs: enters grace today, downgraded on a later run.
		late := proRecord("late", testNow.Add(-8*calendar.Day), subscription.StatusActive)

		store := subscription.NewMemoryStore(due, lapsed, running, late, currentFree("free"))
		sink := analytics.NewMemorySink()
		svc := newService(t, store, withEvents(sink))
		ctx := context.Background()

		res, err := svc.ProcessExpirations(ctx)
		require.NoError(t, err)
		assert.Equal(t, subscription.BatchSuccess, res.Status)
		assert.ElementsMatch(t, []string{"due", "late"}, res.MovedToGrace)
		assert.Equal(t, []string{"lapsed"}, res.ExpiredToFree)
		assert.Empty(t, res.Errors)
		assert.Equal(t, testNow, res.ProcessedAt)

		got := getRecord(t, store, "due")
		assert.Equal(t, subscription.TierPro, got.Tier)
		assert.Equal(t, subscription.StatusExpired, got.Status)
		assert.Equal(t, int64(3), got.GraceMemoriesUsed, "grace usage before the run still counts")

		st, err := svc.GetEffectiveStatus(ctx, "due")
		require.NoError(t, err)
		assert.Equal(t, subscription.TierGrace, st.EffectiveTier)
		assert.Equal(t, 6, st.GraceDaysRemaining)

		got = getRecord(t, store, "lapsed")
		assert.Equal(t, subscription.TierFree, got.Tier)
		assert.Equal(t, subscription.StatusExpired, got.Status)
		assert.True(t, got.ProHistory)
		require.NotNil(t, got.EndDate)
		assert.Equal(t, testNow.Add(-8*calendar.Day), *got.EndDate)

		got = getRecord(t, store, "late")
		assert.Equal(t, subscription.TierPro, got.Tier)
		assert.Equal(t, subscription.StatusExpired, got.Status)

		assert.Equal(t, running, getRecord(t, store, "running"))

		assert.Len(t, sink.ByType(analytics.EventGracePeriodEntered), 2)
		expired := sink.ByType(analytics.EventGracePeriodExpired)
		require.Len(t, expired, 1)
		assert.Equal(t, "lapsed", expired[0].UserID)

		// The next run downgrades the late user.
		res, err = svc.ProcessExpirations(ctx)
		require.NoError(t, err)
		assert.Empty(t, res.MovedToGrace)
		assert.Equal(t, []string{"late"}, res.ExpiredToFree)
	})

	t.Run("nothing due", func(t *testing.T) {
		t.Parallel()
		svc := newService(t, subscription.NewMemoryStore(currentFree("a")))

		res, err := svc.ProcessExpirations(context.Background())
		require.NoError(t, err)
		assert.Equal(t, subscription.BatchSuccess, res.Status)
		assert.NotNil(t, res.MovedToGrace)
		assert.NotNil(t, res.ExpiredToFree)
		assert.NotNil(t, res.Errors)
	})

	t.Run("partial success", func(t *testing.T) {
		t.Parallel()
		store := newFailingStore(
			proRecord("bad", testNow.Add(-calendar.Day), subscription.StatusActive),
			proRecord("good", testNow.Add(-calendar.Day), subscription.StatusActive),
			proRecord("old", testNow.Add(-10*calendar.Day), subscription.StatusExpired),
		)
		store.failUpdate("bad", -1)
		svc := newService(t, store)

		res, err := svc.ProcessExpirations(context.Background())
		require.NoError(t, err)
		assert.Equal(t, subscription.BatchPartialSuccess, res.Status)
		assert.Equal(t, []string{"good"}, res.MovedToGrace)
		assert.Equal(t, []string{"old"}, res.ExpiredToFree)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, "bad", res.Errors[0].UserID)
		assert.Equal(t, subscription.PhaseEnterGrace, res.Errors[0].Phase)
		assert.NotEmpty(t, res.Errors[0].Error)

		assert.Equal(t, subscription.StatusActive, getRecord(t, store.MemoryStore, "bad").Status)
	})

	t.Run("every transition fails", func(t *testing.T) {
		t.Parallel()
		store := newFailingStore(proRecord("bad", testNow.Add(-10*calendar.Day), subscription.StatusExpired))
		store.failUpdate("bad", -1)
		svc := newService(t, store)

		res, err := svc.ProcessExpirations(context.Background())
		assert.ErrorIs(t, err, subscription.ErrBatchFailed)
		assert.Equal(t, subscription.BatchFailed, res.Status)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, subscription.PhaseExpireGrace, res.Errors[0].Phase)
	})

	t.Run("query failure", func(t *testing.T) {
		t.Parallel()
		store := newFailingStore(proRecord("due", testNow.Add(-calendar.Day), subscription.StatusActive))
		store.failQuery = true
		svc := newService(t, store)

		res, err := svc.ProcessExpirations(context.Background())
		assert.ErrorIs(t, err, subscription.ErrStoreUnavailable)
		assert.Equal(t, subscription.BatchFailed, res.Status)
		assert.Zero(t, store.calls("due"))
	})

	t.Run("transient write failures are retried", func(t *testing.T) {
		t.Parallel()
		store := newFailingStore(proRecord("flaky", testNow.Add(-calendar.Day), subscription.StatusActive))
		store.failUpdate("flaky", 2)
		svc := newService(t, store, subscription.WithWriteRetries(2, 0))

		res, err := svc.ProcessExpirations(context.Background())
		require.NoError(t, err)
		assert.Equal(t, subscription.BatchSuccess, res.Status)
		assert.Equal(t, []string{"flaky"}, res.MovedToGrace)
		assert.Equal(t, 3, store.calls("flaky"))
	})

	t.Run("collects more than one page", func(t *testing.T) {
		t.Parallel()
		records := make([]subscription.Record, 0, 450)
		for i := range 450 {
			records = append(records, proRecord(
				fmt.Sprintf("user-%03d", i),
				testNow.Add(-calendar.Day),
				subscription.StatusActive,
			))
		}
		svc := newService(t, subscription.NewMemoryStore(records...))

		res, err := svc.ProcessExpirations(context.Background())
		require.NoError(t, err)
		assert.Len(t, res.MovedToGrace, 450)
	})
}

func TestService_GraceAllowanceSurvivesDailyRun(t *testing.T) {
	t.Parallel()

	// The paid period ended two hours ago; the daily job has not run yet.
	store := subscription.NewMemoryStore(proRecord("carol", testNow.Add(-2*time.Hour), subscription.StatusActive))
	clock := testNow
	svc := subscription.NewService(store,
		subscription.WithClock(func() time.Time { return clock }),
		subscription.WithLogger(logger.Discard()),
		subscription.WithWriteRetries(0, 0),
	)
	ctx := context.Background()
	limit := svc.Policy().Grace.Memories

	saveUntilDenied := func() int64 {
		var saved int64
		for range 2 * limit {
			ok, err := svc.CanPerform(ctx, "carol", subscription.OperationSaveMemory, 1)
			require.NoError(t, err)
			if !ok {
				break
			}
			_, err = svc.IncrementMemory(ctx, "carol")
			require.NoError(t, err)
			saved++
		}
		return saved
	}

	assert.Equal(t, limit, saveUntilDenied())

	clock = testNow.Add(12 * time.Hour)
	res, err := svc.ProcessExpirations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, res.MovedToGrace)

	assert.Zero(t, saveUntilDenied())

	got := getRecord(t, store, "carol")
	assert.Equal(t, subscription.StatusExpired, got.Status)
	assert.Equal(t, limit, got.GraceMemoriesUsed)
}

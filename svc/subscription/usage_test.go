package subscription_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/memkeep/pkg/analytics"
	"github.com/dmitrymomot/memkeep/pkg/calendar"
	"github.com/dmitrymomot/memkeep/svc/subscription"
)

func TestService_IncrementMemory(t *testing.T) {
	t.Parallel()

	t.Run("monotonic", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore(currentFree("alice"))
		svc := newService(t, store)
		ctx := context.Background()

		var last int64
		for range 5 {
			n, err := svc.IncrementMemory(ctx, "alice")
			require.NoError(t, err)
			assert.Greater(t, n, last)
			last = n
		}
		assert.Equal(t, int64(5), last)

		rec := getRecord(t, store, "alice")
		assert.Equal(t, int64(5), rec.TotalMemoriesSaved)
		assert.Zero(t, rec.GraceMemoriesUsed)
		assert.Equal(t, testNow, rec.UpdatedAt)
	})

	t.Run("grace counter grows in grace", func(t *testing.T) {
		t.Parallel()
		rec := proRecord("bob", testNow.Add(-calendar.Day), subscription.StatusExpired)
		rec.TotalMemoriesSaved = 50
		store := subscription.NewMemoryStore(rec)
		svc := newService(t, store)

		n, err := svc.IncrementMemory(context.Background(), "bob")
		require.NoError(t, err)
		assert.Equal(t, int64(51), n)

		got := getRecord(t, store, "bob")
		assert.Equal(t, int64(1), got.GraceMemoriesUsed)
	})

	t.Run("missing user", func(t *testing.T) {
		t.Parallel()
		svc := newService(t, subscription.NewMemoryStore())

		_, err := svc.IncrementMemory(context.Background(), "ghost")
		assert.ErrorIs(t, err, subscription.ErrUserNotFound)
		assert.ErrorIs(t, err, subscription.ErrNotFound)
	})

	t.Run("store unavailable", func(t *testing.T) {
		t.Parallel()
		store := newFailingStore(currentFree("alice"))
		store.failUpdate("alice", -1)
		svc := newService(t, store)

		_, err := svc.IncrementMemory(context.Background(), "alice")
		assert.ErrorIs(t, err, subscription.ErrStoreUnavailable)
		assert.NotErrorIs(t, err, subscription.ErrUserNotFound)
	})
}

func TestService_IncrementSummaryPages(t *testing.T) {
	t.Parallel()

	t.Run("adds pages", func(t *testing.T) {
		t.Parallel()
		rec := currentFree("alice")
		rec.MonthlySummaryPagesUsed = 2
		store := subscription.NewMemoryStore(rec)
		svc := newService(t, store)

		n, err := svc.IncrementSummaryPages(context.Background(), "alice", 3)
		require.NoError(t, err)
		assert.Equal(t, int64(5), n)
		assert.Equal(t, calendar.FirstOfMonth(testNow), getRecord(t, store, "alice").MonthlyResetDate)
	})

	t.Run("stale marker restarts the month", func(t *testing.T) {
		t.Parallel()
		rec := freeRecord("alice")
		rec.MonthlySummaryPagesUsed = 5
		store := subscription.NewMemoryStore(rec)
		svc := newService(t, store)

		n, err := svc.IncrementSummaryPages(context.Background(), "alice", 2)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		got := getRecord(t, store, "alice")
		assert.Equal(t, int64(2), got.MonthlySummaryPagesUsed)
		assert.Equal(t, calendar.FirstOfMonth(testNow), got.MonthlyResetDate)
	})

	t.Run("grace pages", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore(proRecord("bob", testNow.Add(-2*calendar.Day), subscription.StatusActive))
		svc := newService(t, store)

		_, err := svc.IncrementSummaryPages(context.Background(), "bob", 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), getRecord(t, store, "bob").GraceSummaryPagesUsed)
	})

	t.Run("invalid amount", func(t *testing.T) {
		t.Parallel()
		svc := newService(t, subscription.NewMemoryStore(currentFree("alice")))

		_, err := svc.IncrementSummaryPages(context.Background(), "alice", 0)
		assert.ErrorIs(t, err, subscription.ErrInvalidAmount)
	})

	t.Run("missing user", func(t *testing.T) {
		t.Parallel()
		svc := newService(t, subscription.NewMemoryStore())

		_, err := svc.IncrementSummaryPages(context.Background(), "ghost", 1)
		assert.ErrorIs(t, err, subscription.ErrUserNotFound)
	})
}

func TestService_ResetMonthlySummaries(t *testing.T) {
	t.Parallel()

	a := currentFree("a")
	a.MonthlySummaryPagesUsed = 4
	b := freeRecord("b")
	b.MonthlySummaryPagesUsed = 5
	c := proRecord("c", testNow.Add(calendar.Day), subscription.StatusActive)
	c.MonthlySummaryPagesUsed = 70
	c.TotalMemoriesSaved = 900

	store := subscription.NewMemoryStore(a, b, c)
	sink := analytics.NewMemorySink()
	svc := newService(t, store, withEvents(sink))
	ctx := context.Background()

	res, err := svc.ResetMonthlySummaries(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.UsersUpdated)
	assert.Equal(t, calendar.FirstOfMonth(testNow), res.ResetDate)

	for _, id := range []string{"a", "b", "c"} {
		rec := getRecord(t, store, id)
		assert.Zero(t, rec.MonthlySummaryPagesUsed, id)
		assert.Equal(t, res.ResetDate, rec.MonthlyResetDate, id)
	}
	assert.Equal(t, int64(900), getRecord(t, store, "c").TotalMemoriesSaved)

	before := getRecord(t, store, "c")
	again, err := svc.ResetMonthlySummaries(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.ResetDate, again.ResetDate)
	assert.Equal(t, before, getRecord(t, store, "c"))

	assert.Len(t, sink.ByType(analytics.EventMonthlyReset), 2)
}

func TestService_EnsureSubscription(t *testing.T) {
	t.Parallel()

	store := subscription.NewMemoryStore()
	svc := newService(t, store)
	ctx := context.Background()

	rec, err := svc.EnsureSubscription(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, subscription.TierFree, rec.Tier)
	assert.Equal(t, subscription.StatusActive, rec.Status)
	assert.Nil(t, rec.EndDate)
	assert.Equal(t, calendar.FirstOfMonth(testNow), rec.MonthlyResetDate)
	assert.Equal(t, int64(1), store.Writes())

	_, err = svc.IncrementMemory(ctx, "alice")
	require.NoError(t, err)
	writes := store.Writes()

	again, err := svc.EnsureSubscription(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), again.TotalMemoriesSaved)
	assert.Equal(t, writes, store.Writes())
	assert.Equal(t, 1, store.Len())

	_, err = svc.EnsureSubscription(ctx, "")
	assert.ErrorIs(t, err, subscription.ErrInvalidUserID)
}

package subscription_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/memkeep/pkg/analytics"
	"github.com/dmitrymomot/memkeep/pkg/calendar"
	"github.com/dmitrymomot/memkeep/pkg/logger"
	"github.com/dmitrymomot/memkeep/svc/subscription"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T, store subscription.Store, opts ...subscription.Option) *subscription.Service {
	t.Helper()
	base := []subscription.Option{
		subscription.WithClock(calendar.Fixed(testNow)),
		subscription.WithLogger(logger.Discard()),
		subscription.WithWriteRetries(0, 0),
	}
	return subscription.NewService(store, append(base, opts...)...)
}

func withEvents(sink *analytics.MemorySink) subscription.Option {
	return subscription.WithEmitter(analytics.NewEmitter(sink, analytics.WithEmitterLogger(logger.Discard())))
}

func freeRecord(userID string) subscription.Record {
	return subscription.NewDefaultRecord(userID, testNow.AddDate(0, -2, 0))
}

// currentFree is a free record whose monthly marker is in the test month.
func currentFree(userID string) subscription.Record {
	rec := freeRecord(userID)
	rec.MonthlyResetDate = calendar.FirstOfMonth(testNow)
	return rec
}

func proRecord(userID string, end time.Time, status subscription.Status) subscription.Record {
	rec := currentFree(userID)
	rec.Tier = subscription.TierPro
	rec.Status = status
	rec.StartDate = end.AddDate(0, 0, -30)
	rec.EndDate = lo.ToPtr(end)
	rec.ProHistory = true
	return rec
}

func getRecord(t *testing.T, store subscription.Store, userID string) subscription.Record {
	t.Helper()
	rec, err := store.Get(context.Background(), userID)
	require.NoError(t, err)
	return *rec
}

var errBoom = errors.New("connection reset")

// failingStore fails updates for selected users and can fail every call.
type failingStore struct {
	*subscription.MemoryStore

	mu          sync.Mutex
	failUpdates map[string]int // remaining failures per user, -1 for always
	failQuery   bool
	failGet     bool
	updateCalls map[string]int
}

func newFailingStore(records ...subscription.Record) *failingStore {
	return &failingStore{
		MemoryStore: subscription.NewMemoryStore(records...),
		failUpdates: map[string]int{},
		updateCalls: map[string]int{},
	}
}

func (s *failingStore) failUpdate(userID string, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failUpdates[userID] = times
}

func (s *failingStore) calls(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateCalls[userID]
}

func (s *failingStore) Get(ctx context.Context, userID string) (*subscription.Record, error) {
	if s.failGet {
		return nil, errors.Join(subscription.ErrStoreUnavailable, errBoom)
	}
	return s.MemoryStore.Get(ctx, userID)
}

func (s *failingStore) Update(ctx context.Context, userID string, patch subscription.Patch) error {
	s.mu.Lock()
	s.updateCalls[userID]++
	left, ok := s.failUpdates[userID]
	if ok && left != 0 {
		if left > 0 {
			s.failUpdates[userID] = left - 1
		}
		s.mu.Unlock()
		return errors.Join(subscription.ErrStoreUnavailable, errBoom)
	}
	s.mu.Unlock()
	return s.MemoryStore.Update(ctx, userID, patch)
}

func (s *failingStore) Query(ctx context.Context, f subscription.Filter, page, pageSize int) ([]subscription.Record, int64, error) {
	if s.failQuery {
		return nil, 0, errors.Join(subscription.ErrStoreUnavailable, errBoom)
	}
	return s.MemoryStore.Query(ctx, f, page, pageSize)
}

package subscription

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dmitrymomot/memkeep/pkg/analytics"
	"github.com/dmitrymomot/memkeep/pkg/calendar"
	"github.com/dmitrymomot/memkeep/pkg/logger"
)

// Service is the subscription lifecycle and quota engine.
type Service struct {
	store        Store
	policy       Policy
	clock        calendar.Clock
	log          *slog.Logger
	events       *analytics.Emitter
	storeTimeout time.Duration
	writeRetries uint64
	retryDelay   time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithPolicy replaces DefaultPolicy.
func WithPolicy(p Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithClock overrides the time source.
func WithClock(c calendar.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithEmitter enables analytics events.
func WithEmitter(e *analytics.Emitter) Option {
	return func(s *Service) {
		s.events = e
	}
}

// WithStoreTimeout bounds every store call. Defaults to 5s.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

// WithWriteRetries sets how often a failed per-user write in a batch job is
// retried and the pause between attempts. Zero retries disables retrying.
func WithWriteRetries(retries uint64, delay time.Duration) Option {
	return func(s *Service) {
		s.writeRetries = retries
		if delay >= 0 {
			s.retryDelay = delay
		}
	}
}

// NewService panics if store is nil or the policy is invalid.
func NewService(store Store, opts ...Option) *Service {
	if store == nil {
		panic("subscription: store is required")
	}

	s := &Service{
		store:        store,
		policy:       DefaultPolicy(),
		clock:        calendar.SystemClock,
		log:          slog.Default(),
		storeTimeout: 5 * time.Second,
		writeRetries: 2,
		retryDelay:   200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.policy.Validate(); err != nil {
		panic("subscription: " + err.Error())
	}

	return s
}

// Policy returns the active policy.
func (s *Service) Policy() Policy {
	return s.policy
}

// EnsureSubscription creates the default free record on first sign-in and
// returns the existing record on every later call.
func (s *Service) EnsureSubscription(ctx context.Context, userID string) (*Record, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	rec, err := s.store.CreateDefault(ctx, userID, s.now())
	if err != nil {
		s.log.ErrorContext(ctx, "failed to ensure subscription", logger.UserID(userID), logger.Error(err))
		return nil, err
	}
	return rec, nil
}

// GetSubscription returns the stored record.
func (s *Service) GetSubscription(ctx context.Context, userID string) (*Record, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.store.Get(ctx, userID)
}

// GetEffectiveStatus derives the status of the user's record at the current
// time. It never writes.
func (s *Service) GetEffectiveStatus(ctx context.Context, userID string) (EffectiveStatus, error) {
	rec, err := s.GetSubscription(ctx, userID)
	if err != nil {
		return EffectiveStatus{}, err
	}
	return Derive(*rec, s.policy, s.now()), nil
}

func (s *Service) update(ctx context.Context, userID string, patch Patch) error {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if patch.UpdatedAt == nil {
		now := s.now()
		patch.UpdatedAt = &now
	}
	return s.store.Update(ctx, userID, patch)
}

// save writes patch and merges it into rec once stored.
func (s *Service) save(ctx context.Context, rec *Record, patch Patch) error {
	now := s.now()
	patch.UpdatedAt = &now
	if err := s.update(ctx, rec.UserID, patch); err != nil {
		return err
	}
	patch.Apply(rec)
	return nil
}

// updateWithRetry retries transient failures with a constant backoff. A
// missing record is final.
func (s *Service) updateWithRetry(ctx context.Context, userID string, patch Patch) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.retryDelay), s.writeRetries),
		ctx,
	)
	return backoff.Retry(func() error {
		err := s.update(ctx, userID, patch)
		if errors.Is(err, ErrNotFound) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

func (s *Service) now() time.Time {
	return calendar.UTC(s.clock())
}

func (s *Service) emit(ctx context.Context, t analytics.EventType, rec *Record, data map[string]any) {
	if s.events == nil {
		return
	}
	var userID string
	var snapshot any
	if rec != nil {
		userID = rec.UserID
		snapshot = rec.Clone()
	}
	s.events.Emit(ctx, t, userID, snapshot, data)
}

func validateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidUserID
	}
	return nil
}

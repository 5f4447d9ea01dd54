package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/dmitrymomot/memkeep/pkg/calendar"
	"github.com/dmitrymomot/memkeep/pkg/logger"
	"github.com/dmitrymomot/memkeep/svc/subscription"
)

// Quota is the part of the subscription engine the use cases depend on.
type Quota interface {
	CanPerform(ctx context.Context, userID string, op subscription.Operation, amount int64) (bool, error)
	IncrementMemory(ctx context.Context, userID string) (int64, error)
	IncrementSummaryPages(ctx context.Context, userID string, pages int64) (int64, error)
}

// Service runs the quota-gated use cases.
type Service struct {
	quota      Quota
	repo       Repository
	summarizer Summarizer
	clock      calendar.Clock
	log        *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
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

// NewService panics if any dependency is nil.
func NewService(quota Quota, repo Repository, summarizer Summarizer, opts ...Option) *Service {
	if quota == nil {
		panic("memory: quota cannot be nil")
	}
	if repo == nil {
		panic("memory: repository cannot be nil")
	}
	if summarizer == nil {
		panic("memory: summarizer cannot be nil")
	}

	s := &Service{
		quota:      quota,
		repo:       repo,
		summarizer: summarizer,
		clock:      calendar.SystemClock,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaveMemory stores a memory if the user's tier allows one more.
func (s *Service) SaveMemory(ctx context.Context, in SaveInput) (*Memory, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return nil, ErrInvalidUserID
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, ErrEmptyContent
	}

	if err := s.allow(ctx, in.UserID, subscription.OperationSaveMemory, 1); err != nil {
		return nil, err
	}

	m := Memory{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		Title:     strings.TrimSpace(in.Title),
		Content:   in.Content,
		URL:       strings.TrimSpace(in.URL),
		Tags:      lo.Uniq(lo.Compact(lo.Map(in.Tags, func(t string, _ int) string { return strings.TrimSpace(t) }))),
		CreatedAt: calendar.UTC(s.clock()),
	}
	if err := s.repo.Save(ctx, m); err != nil {
		return nil, errors.Join(ErrRepository, err)
	}

	if _, err := s.quota.IncrementMemory(ctx, in.UserID); err != nil {
		s.log.WarnContext(ctx, "failed to count saved memory",
			logger.UserID(in.UserID), slog.String("memory_id", m.ID), logger.Error(err))
	}
	return &m, nil
}

// GenerateSummary summarizes the selected memories. The page count is
// estimated from the combined text before the summarizer is called.
func (s *Service) GenerateSummary(ctx context.Context, in SummaryInput) (*Summary, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return nil, ErrInvalidUserID
	}
	ids := lo.Uniq(lo.Compact(in.MemoryIDs))
	if len(ids) == 0 {
		return nil, ErrNoMemories
	}

	memories, err := s.repo.GetMany(ctx, in.UserID, ids)
	if err != nil {
		return nil, errors.Join(ErrRepository, err)
	}
	if len(memories) != len(ids) {
		found := lo.Map(memories, func(m Memory, _ int) string { return m.ID })
		missing, _ := lo.Difference(ids, found)
		return nil, errors.Join(ErrMemoryNotFound, fmt.Errorf("ids %v", missing))
	}

	byID := lo.KeyBy(memories, func(m Memory) string { return m.ID })
	ordered := lo.Map(ids, func(id string, _ int) Memory { return byID[id] })
	text := summaryText(ordered)
	pages := subscription.EstimatePages(text)

	if err := s.allow(ctx, in.UserID, subscription.OperationGenerateSummary, pages); err != nil {
		return nil, err
	}

	out, err := s.summarizer.Summarize(ctx, text)
	if err != nil {
		return nil, errors.Join(ErrSummarizationFailed, err)
	}

	if _, err := s.quota.IncrementSummaryPages(ctx, in.UserID, pages); err != nil {
		s.log.WarnContext(ctx, "failed to count summary pages",
			logger.UserID(in.UserID), logger.Count(pages), logger.Error(err))
	}

	return &Summary{
		UserID:    in.UserID,
		MemoryIDs: ids,
		Text:      out,
		Pages:     pages,
		CreatedAt: calendar.UTC(s.clock()),
	}, nil
}

func (s *Service) allow(ctx context.Context, userID string, op subscription.Operation, amount int64) error {
	ok, err := s.quota.CanPerform(ctx, userID, op, amount)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUpgradeRequired
	}
	return nil
}

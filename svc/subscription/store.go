package subscription

import (
	"context"
	"time"
)

// Store persists subscription records. Implementations return ErrNotFound
// for a missing record and wrap infrastructure failures with
// ErrStoreUnavailable. Only the job runner's jobs call BulkUpdateAll.
type Store interface {
	Get(ctx context.Context, userID string) (*Record, error)
	// CreateDefault inserts the default free record unless one exists. An
	// existing record is returned untouched and nothing is written.
	CreateDefault(ctx context.Context, userID string, now time.Time) (*Record, error)
	// Update merges the non-nil fields of patch into the record.
	Update(ctx context.Context, userID string, patch Patch) error
	// BulkUpdateAll applies patch to every record and returns how many
	// records matched.
	BulkUpdateAll(ctx context.Context, patch Patch) (int64, error)
	// Query returns one page (1-based) of records matching filter, ordered
	// by user id, and the total number of matches.
	Query(ctx context.Context, filter Filter, page, pageSize int) ([]Record, int64, error)
}

// Patch is a field-level update. Nil fields are left alone.
type Patch struct {
	Tier                    *Tier
	Status                  *Status
	StartDate               *time.Time
	EndDate                 *time.Time
	ClearEndDate            bool
	TotalMemoriesSaved      *int64
	MonthlySummaryPagesUsed *int64
	MonthlyResetDate        *time.Time
	GraceMemoriesUsed       *int64
	GraceSummaryPagesUsed   *int64
	ProHistory              *bool
	UpdatedAt               *time.Time
}

// Apply merges p into rec.
func (p Patch) Apply(rec *Record) {
	if p.Tier != nil {
		rec.Tier = *p.Tier
	}
	if p.Status != nil {
		rec.Status = *p.Status
	}
	if p.StartDate != nil {
		rec.StartDate = p.StartDate.UTC()
	}
	if p.ClearEndDate {
		rec.EndDate = nil
	} else if p.EndDate != nil {
		end := p.EndDate.UTC()
		rec.EndDate = &end
	}
	if p.TotalMemoriesSaved != nil {
		rec.TotalMemoriesSaved = *p.TotalMemoriesSaved
	}
	if p.MonthlySummaryPagesUsed != nil {
		rec.MonthlySummaryPagesUsed = *p.MonthlySummaryPagesUsed
	}
	if p.MonthlyResetDate != nil {
		rec.MonthlyResetDate = p.MonthlyResetDate.UTC()
	}
	if p.GraceMemoriesUsed != nil {
		rec.GraceMemoriesUsed = *p.GraceMemoriesUsed
	}
	if p.GraceSummaryPagesUsed != nil {
		rec.GraceSummaryPagesUsed = *p.GraceSummaryPagesUsed
	}
	if p.ProHistory != nil {
		rec.ProHistory = *p.ProHistory
	}
	if p.UpdatedAt != nil {
		rec.UpdatedAt = p.UpdatedAt.UTC()
	}
}

// Filter selects records for Query. Zero fields match everything.
type Filter struct {
	Tier   Tier
	Status Status
	// EndDateUntil matches records whose end date is set and not after it.
	EndDateUntil *time.Time
}

// Match reports whether rec satisfies f.
func (f Filter) Match(rec Record) bool {
	if f.Tier != "" && rec.Tier != f.Tier {
		return false
	}
	if f.Status != "" && rec.Status != f.Status {
		return false
	}
	if f.EndDateUntil != nil {
		if rec.EndDate == nil || rec.EndDate.After(*f.EndDateUntil) {
			return false
		}
	}
	return true
}

// DefaultPageSize is used when Query gets a non-positive page size.
const DefaultPageSize = 50

// MaxPageSize caps Query page sizes.
const MaxPageSize = 500

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return page, min(pageSize, MaxPageSize)
}

package subscription

import (
	"time"

	"github.com/dmitrymomot/memkeep/pkg/calendar"
)

// Tier is the stored subscription level. TierGrace never appears in a
// stored record; it is only produced by Derive.
type Tier string

const (
	TierFree  Tier = "free"
	TierPro   Tier = "pro"
	TierGrace Tier = "grace"
)

// Status is the stored subscription status.
type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Record is the per-user subscription document.
type Record struct {
	UserID                  string     `json:"user_id" bson:"_id"`
	Tier                    Tier       `json:"tier" bson:"tier"`
	Status                  Status     `json:"status" bson:"status"`
	StartDate               time.Time  `json:"start_date" bson:"start_date"`
	EndDate                 *time.Time `json:"end_date" bson:"end_date"`
	TotalMemoriesSaved      int64      `json:"total_memories_saved" bson:"total_memories_saved"`
	MonthlySummaryPagesUsed int64      `json:"monthly_summary_pages_used" bson:"monthly_summary_pages_used"`
	MonthlyResetDate        time.Time  `json:"monthly_reset_date" bson:"monthly_reset_date"`
	GraceMemoriesUsed       int64      `json:"grace_memories_used" bson:"grace_memories_used"`
	GraceSummaryPagesUsed   int64      `json:"grace_summary_pages_used" bson:"grace_summary_pages_used"`
	ProHistory              bool       `json:"pro_history" bson:"pro_history"`
	CreatedAt               time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at" bson:"updated_at"`
}

// NewDefaultRecord returns the free-tier record created at first sign-in.
func NewDefaultRecord(userID string, now time.Time) Record {
	now = calendar.UTC(now)
	return Record{
		UserID:           userID,
		Tier:             TierFree,
		Status:           StatusActive,
		StartDate:        now,
		MonthlyResetDate: calendar.FirstOfMonth(now),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	r.EndDate = calendar.UTCPtr(r.EndDate)
	return r
}

// normalize forces every timestamp to UTC. Stores call it on the way out so
// the drivers' local-time decoding never leaks into date math.
func (r *Record) normalize() {
	r.StartDate = calendar.UTC(r.StartDate)
	r.EndDate = calendar.UTCPtr(r.EndDate)
	r.MonthlyResetDate = calendar.UTC(r.MonthlyResetDate)
	r.CreatedAt = calendar.UTC(r.CreatedAt)
	r.UpdatedAt = calendar.UTC(r.UpdatedAt)
}

// monthlyPagesAt returns the summary pages counted for the month of now.
// A marker from an earlier month means the reset has not run yet; the
// usage is read as zero without writing.
func (r Record) monthlyPagesAt(now time.Time) int64 {
	if calendar.BeforeMonthOf(r.MonthlyResetDate, now) {
		return 0
	}
	return r.MonthlySummaryPagesUsed
}

func (r Record) hasProHistory() bool {
	return r.Tier == TierPro || r.ProHistory
}

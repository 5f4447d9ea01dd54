package subscription

import (
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/memkeep/pkg/calendar"
)

// Unlimited marks a limit that is never enforced.
const Unlimited int64 = -1

// Limits are the quota ceilings of one tier. Memories is a lifetime count,
// MonthlySummaryPages resets every calendar month.
type Limits struct {
	Memories            int64 `yaml:"memories"`
	MonthlySummaryPages int64 `yaml:"monthly_summary_pages"`
}

// For returns the limit that applies to op.
func (l Limits) For(op Operation) int64 {
	if op == OperationGenerateSummary {
		return l.MonthlySummaryPages
	}
	return l.Memories
}

// Allows reports whether used+amount stays within the limit for op.
func (l Limits) Allows(op Operation, used, amount int64) bool {
	limit := l.For(op)
	return limit == Unlimited || used+amount <= limit
}

func (l Limits) validate(tier Tier) error {
	if l.Memories < Unlimited || l.MonthlySummaryPages < Unlimited {
		return errors.Join(ErrInvalidPolicy, fmt.Errorf("%s limits must be non-negative or unlimited", tier))
	}
	return nil
}

// Policy maps tiers to limits and carries the period lengths. It is a value
// type, copies never share state.
type Policy struct {
	Free            Limits `yaml:"free"`
	Pro             Limits `yaml:"pro"`
	Grace           Limits `yaml:"grace"`
	GracePeriodDays int    `yaml:"grace_period_days"`
	ProPeriodDays   int    `yaml:"pro_period_days"`
}

// DefaultPolicy returns the production limits.
func DefaultPolicy() Policy {
	return Policy{
		Free:            Limits{Memories: 100, MonthlySummaryPages: 5},
		Pro:             Limits{Memories: Unlimited, MonthlySummaryPages: 100},
		Grace:           Limits{Memories: 5, MonthlySummaryPages: 1},
		GracePeriodDays: 7,
		ProPeriodDays:   30,
	}
}

// LimitsFor returns the limits of an effective tier.
func (p Policy) LimitsFor(t Tier) Limits {
	switch t {
	case TierPro:
		return p.Pro
	case TierGrace:
		return p.Grace
	default:
		return p.Free
	}
}

// GracePeriodEnd returns the last instant of the grace window for endDate.
func (p Policy) GracePeriodEnd(endDate time.Time) time.Time {
	return calendar.AddDays(endDate, p.GracePeriodDays)
}

// Validate checks limits and period lengths.
func (p Policy) Validate() error {
	if err := p.Free.validate(TierFree); err != nil {
		return err
	}
	if err := p.Pro.validate(TierPro); err != nil {
		return err
	}
	if err := p.Grace.validate(TierGrace); err != nil {
		return err
	}
	if p.GracePeriodDays < 0 {
		return errors.Join(ErrInvalidPolicy, errors.New("grace period days must not be negative"))
	}
	if p.ProPeriodDays <= 0 {
		return errors.Join(ErrInvalidPolicy, errors.New("pro period days must be positive"))
	}
	return nil
}

// LoadPolicyYAML reads overrides on top of DefaultPolicy. Keys missing from
// the document keep their default.
//
//	pro:
//	  monthly_summary_pages: 200
//	grace_period_days: 14
func LoadPolicyYAML(r io.Reader) (Policy, error) {
	p := DefaultPolicy()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Policy{}, errors.Join(ErrInvalidPolicy, err)
	}

	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Package usage describes detection cost usage over a budget period.
package usage

import (
	"fmt"

	"github.com/kailas-cloud/sentinel/internal/domain"
)

// Period is the aggregation granularity.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod validates a period. Empty means PeriodDay.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", PeriodDay:
		return PeriodDay, nil
	case PeriodMonth:
		return PeriodMonth, nil
	default:
		return "", fmt.Errorf("%w: unknown period %q", domain.ErrInvalidInput, s)
	}
}

// Report is the detection cost usage for one period.
// A zero limit means the period is unlimited.
type Report struct {
	period      Period
	periodStart int64
	periodEnd   int64
	limit       int64
	used        int64
}

// NewReport creates a usage report. start and end are unix millis.
func NewReport(period Period, start, end, limit, used int64) Report {
	return Report{
		period:      period,
		periodStart: start,
		periodEnd:   end,
		limit:       limit,
		used:        used,
	}
}

// Period returns the aggregation granularity.
func (r Report) Period() Period { return r.period }

// PeriodStart returns the period start timestamp (unix millis).
func (r Report) PeriodStart() int64 { return r.periodStart }

// PeriodEnd returns the period end timestamp (unix millis), which is also
// when the budget resets.
func (r Report) PeriodEnd() int64 { return r.periodEnd }

// Limit returns the cost limit, 0 if unlimited.
func (r Report) Limit() int64 { return r.limit }

// Used returns the cost spent in the period.
func (r Report) Used() int64 { return r.used }

// Unlimited reports whether the period has no limit.
func (r Report) Unlimited() bool { return r.limit == 0 }

// Remaining returns the cost left, -1 if unlimited.
func (r Report) Remaining() int64 {
	if r.Unlimited() {
		return -1
	}
	return max(r.limit-r.used, 0)
}

// Exhausted reports whether a limited budget is spent.
func (r Report) Exhausted() bool { return !r.Unlimited() && r.used >= r.limit }

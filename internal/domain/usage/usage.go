// Package usage describes generation call consumption over a budget period.
package usage

import (
	"fmt"
	"strings"
	"time"
)

// Period is the aggregation granularity.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod normalizes s. Empty means PeriodDay.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PeriodDay, nil
	case PeriodDay, PeriodMonth:
		return p, nil
	default:
		return "", fmt.Errorf("period must be %q or %q, got %q", PeriodDay, PeriodMonth, s)
	}
}

// Report is a generation usage report for one period.
type Report struct {
	period      Period
	periodStart time.Time
	periodEnd   time.Time
	limit       int64
	used        int64
}

// NewReport creates a usage report. A zero limit means unlimited.
func NewReport(period Period, start, end time.Time, limit, used int64) Report {
	return Report{
		period:      period,
		periodStart: start,
		periodEnd:   end,
		limit:       limit,
		used:        used,
	}
}

// Period returns the aggregation granularity.
func (r *Report) Period() Period { return r.period }

// PeriodStart returns the inclusive period start (UTC).
func (r *Report) PeriodStart() time.Time { return r.periodStart }

// PeriodEnd returns the exclusive period end, which is also when the counter resets.
func (r *Report) PeriodEnd() time.Time { return r.periodEnd }

// Limit returns the call cap, 0 when unlimited.
func (r *Report) Limit() int64 { return r.limit }

// Used returns the calls consumed in the period.
func (r *Report) Used() int64 { return r.used }

// Remaining returns calls left, or -1 when unlimited.
func (r *Report) Remaining() int64 {
	if r.limit <= 0 {
		return -1
	}
	return max(r.limit-r.used, 0)
}

// Exhausted reports whether the cap is reached.
func (r *Report) Exhausted() bool {
	return r.limit > 0 && r.used >= r.limit
}

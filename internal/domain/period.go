package domain

import (
	"fmt"
	"strings"
	"time"
)

type PeriodType string

const (
	PeriodMonthly   PeriodType = "monthly"
	PeriodQuarterly PeriodType = "quarterly"
	PeriodYearly    PeriodType = "yearly"
	PeriodCustom    PeriodType = "custom"
)

func (t PeriodType) IsValid() bool {
	switch t {
	case PeriodMonthly, PeriodQuarterly, PeriodYearly, PeriodCustom:
		return true
	}
	return false
}

// Period is a reporting window identified by a compact key: "2025-01" for a
// month, "2025-Q1" for a quarter, "2025" for a year and
// "2025-01-15:2025-02-20" for a custom range. Start and End are inclusive
// calendar dates at UTC midnight.
type Period struct {
	Type  PeriodType
	Key   string
	Start time.Time
	End   time.Time
}

// ParsePeriod resolves a period key against its type and computes the window
// bounds.
func ParsePeriod(pt PeriodType, key string) (Period, error) {
	switch pt {
	case PeriodMonthly:
		start, err := time.ParseInLocation("2006-01", key, time.UTC)
		if err != nil {
			return Period{}, fmt.Errorf("%w: monthly key must be YYYY-MM, got %q", ErrInvalidPeriodType, key)
		}
		return periodFrom(pt, start), nil
	case PeriodQuarterly:
		var year, q int
		if _, err := fmt.Sscanf(key, "%4d-Q%1d", &year, &q); err != nil || q < 1 || q > 4 || len(key) != 7 {
			return Period{}, fmt.Errorf("%w: quarterly key must be YYYY-Qn, got %q", ErrInvalidPeriodType, key)
		}
		start := time.Date(year, time.Month(3*(q-1)+1), 1, 0, 0, 0, 0, time.UTC)
		return periodFrom(pt, start), nil
	case PeriodYearly:
		start, err := time.ParseInLocation("2006", key, time.UTC)
		if err != nil {
			return Period{}, fmt.Errorf("%w: yearly key must be YYYY, got %q", ErrInvalidPeriodType, key)
		}
		return periodFrom(pt, start), nil
	case PeriodCustom:
		from, to, ok := strings.Cut(key, ":")
		if !ok {
			return Period{}, fmt.Errorf("%w: custom key must be YYYY-MM-DD:YYYY-MM-DD, got %q", ErrInvalidPeriodType, key)
		}
		start, err := time.ParseInLocation("2006-01-02", from, time.UTC)
		if err != nil {
			return Period{}, fmt.Errorf("%w: %q", ErrInvalidDate, from)
		}
		end, err := time.ParseInLocation("2006-01-02", to, time.UTC)
		if err != nil {
			return Period{}, fmt.Errorf("%w: %q", ErrInvalidDate, to)
		}
		return CustomPeriod(start, end)
	default:
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriodType, pt)
	}
}

// CustomPeriod builds an ad-hoc window from explicit inclusive dates.
func CustomPeriod(start, end time.Time) (Period, error) {
	if start.After(end) {
		return Period{}, ErrInvalidDateRange
	}
	start = dateOnly(start)
	end = dateOnly(end)
	key := start.Format("2006-01-02") + ":" + end.Format("2006-01-02")
	return Period{Type: PeriodCustom, Key: key, Start: start, End: end}, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// periodFrom builds the canonical period starting at start, which must be the
// first day of the window.
func periodFrom(pt PeriodType, start time.Time) Period {
	var end time.Time
	var key string
	switch pt {
	case PeriodMonthly:
		end = start.AddDate(0, 1, -1)
		key = start.Format("2006-01")
	case PeriodQuarterly:
		end = start.AddDate(0, 3, -1)
		key = fmt.Sprintf("%d-Q%d", start.Year(), (int(start.Month())-1)/3+1)
	default:
		end = start.AddDate(1, 0, -1)
		key = start.Format("2006")
	}
	return Period{Type: pt, Key: key, Start: start, End: end}
}

// Prior returns the immediately preceding period: the previous month, quarter
// or year, or for custom windows a range of the same length ending the day
// before Start.
func (p Period) Prior() Period {
	switch p.Type {
	case PeriodMonthly:
		return periodFrom(p.Type, p.Start.AddDate(0, -1, 0))
	case PeriodQuarterly:
		return periodFrom(p.Type, p.Start.AddDate(0, -3, 0))
	case PeriodYearly:
		return periodFrom(p.Type, p.Start.AddDate(-1, 0, 0))
	default:
		days := int(p.End.Sub(p.Start).Hours()/24) + 1
		end := p.Start.AddDate(0, 0, -1)
		prior, _ := CustomPeriod(end.AddDate(0, 0, -(days-1)), end)
		return prior
	}
}

// Label renders the human-readable form used in statement titles, e.g.
// "January 2025", "Q1 2025", "FY 2025".
func (p Period) Label() string {
	switch p.Type {
	case PeriodMonthly:
		return p.Start.Format("January 2006")
	case PeriodQuarterly:
		return fmt.Sprintf("Q%d %d", (int(p.Start.Month())-1)/3+1, p.Start.Year())
	case PeriodYearly:
		return fmt.Sprintf("FY %d", p.Start.Year())
	default:
		return p.Start.Format("Jan 2, 2006") + " to " + p.End.Format("Jan 2, 2006")
	}
}

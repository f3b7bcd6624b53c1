package core

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Lookback is a calendar period of history to fetch, e.g. "10y", "6mo", "90d"
type Lookback struct {
	Years  int
	Months int
	Days   int
}

var lookbackPattern = regexp.MustCompile(`^(\d+)(d|w|mo|y)$`)

// ParseLookback parses strings like "10y", "18mo", "4w" or "90d". "max"
// yields the zero Lookback, which collectors read as all available history.
func ParseLookback(s string) (Lookback, error) {
	if s == "max" {
		return Lookback{}, nil
	}
	m := lookbackPattern.FindStringSubmatch(s)
	if m == nil {
		return Lookback{}, WrapError(ErrConfigInvalid, fmt.Errorf("invalid lookback %q", s))
	}

	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return Lookback{}, WrapError(ErrConfigInvalid, fmt.Errorf("lookback must be positive: %q", s))
	}

	switch m[2] {
	case "y":
		return Lookback{Years: n}, nil
	case "mo":
		return Lookback{Months: n}, nil
	case "w":
		return Lookback{Days: 7 * n}, nil
	default:
		return Lookback{Days: n}, nil
	}
}

// Start returns the first date covered when looking back from end
func (l Lookback) Start(end time.Time) time.Time {
	return DateOf(end).AddDate(-l.Years, -l.Months, -l.Days)
}

// IsZero reports whether no period is set
func (l Lookback) IsZero() bool {
	return l.Years == 0 && l.Months == 0 && l.Days == 0
}

// String renders the period in the same syntax ParseLookback accepts
func (l Lookback) String() string {
	switch {
	case l.IsZero():
		return "max"
	case l.Years > 0 && l.Months == 0 && l.Days == 0:
		return fmt.Sprintf("%dy", l.Years)
	case l.Months > 0 && l.Years == 0 && l.Days == 0:
		return fmt.Sprintf("%dmo", l.Months)
	default:
		return fmt.Sprintf("%dd", l.Years*365+l.Months*30+l.Days)
	}
}

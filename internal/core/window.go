package core

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the ISO-8601 form transaction dates are persisted in.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

type (
	// Window is an inclusive [Start, End] range of calendar days.
	Window struct {
		Start time.Time
		End   time.Time
	}

	SortOrder string
)

// NewWindow builds a window from two days, rejecting an end before the start.
func NewWindow(start, end time.Time) (Window, error) {
	start, end = truncateDay(start), truncateDay(end)
	if start.IsZero() || end.IsZero() {
		return Window{}, ErrInvalidWindow
	}
	if end.Before(start) {
		return Window{}, fmt.Errorf("%w: end %s is before start %s", ErrInvalidWindow,
			end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	return Window{Start: start, End: end}, nil
}

// ParseWindow parses two date strings (YYYY-MM-DD or RFC 3339) into a window.
func ParseWindow(start, end string) (Window, error) {
	s, err := ParseDate(start)
	if err != nil {
		return Window{}, fmt.Errorf("%w: start: %v", ErrInvalidWindow, err)
	}
	e, err := ParseDate(end)
	if err != nil {
		return Window{}, fmt.Errorf("%w: end: %v", ErrInvalidWindow, err)
	}
	return NewWindow(s, e)
}

// YearWindow covers January 1st through December 31st of year.
func YearWindow(year int) Window {
	return Window{
		Start: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
}

// StartKey and EndKey are the bounds as compared against date(t.date).
func (w Window) StartKey() string { return w.Start.Format(time.DateOnly) }
func (w Window) EndKey() string   { return w.End.Format(time.DateOnly) }

func (w Window) String() string {
	return w.StartKey() + ".." + w.EndKey()
}

// ParseDate accepts a calendar day or a full RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t.UTC(), nil
}

// NormalizeTimestamp reduces t to what the transactions.date column keeps:
// UTC at millisecond precision.
func NormalizeTimestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// FormatTimestamp renders t the way the transactions.date column stores it.
func FormatTimestamp(t time.Time) string {
	return NormalizeTimestamp(t).Format(TimestampLayout)
}

// ParseTimestamp reads a transactions.date column value.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		// Rows written by hand may only carry the day.
		if d, derr := time.Parse(time.DateOnly, s); derr == nil {
			return d, nil
		}
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t.UTC(), nil
}

// ParseSortOrder maps "", "asc" and "desc" onto a SortOrder, using def for "".
func ParseSortOrder(s string, def SortOrder) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return def, nil
	case Ascending:
		return Ascending, nil
	case Descending:
		return Descending, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOrder, s)
	}
}

func truncateDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
